package debugbridge

import (
	"fmt"

	"github.com/Mr-Dark-debug/vantage/internal/hub"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/selection"
)

// FrameState is the data of a frame response.
type FrameState struct {
	Frame  *int  `json:"frame"`
	Frames []int `json:"frames"`
}

// Dispatch runs req against h. It must be called on the goroutine that
// owns h.
func Dispatch(h *hub.Hub, req *Request) Response {
	if h == nil || h.Disposed() {
		return Response{ID: req.ID, Error: "viewer disposed"}
	}
	api := h.Core()

	switch req.Op {
	case OpPing:
		return ok(req, "pong")

	case OpState:
		return ok(req, h.Snapshot())

	case OpPick:
		return ok(req, h.PickObjectAt(req.X, req.Y))

	case OpSelect:
		if req.UUID == "" {
			api.Selection.Clear()
			return ok(req, api.Selection.Get())
		}
		sr := selection.Request{UUID: req.UUID}
		if req.Kind != "" {
			k, valid := scene.ParseKind(req.Kind)
			if !valid {
				return fail(req, "unknown kind %q", req.Kind)
			}
			sr.Kind = k
		}
		sel, applied := api.Selection.Select(sr)
		if !applied {
			return fail(req, "cannot select %q", req.UUID)
		}
		return ok(req, sel)

	case OpFrame:
		if req.Frame == nil {
			api.Visibility.ClearFrame()
		} else {
			api.Visibility.SetFrame(*req.Frame)
		}
		st := FrameState{Frames: h.State().Index().Frames()}
		if f, on := api.Visibility.Frame(); on {
			st.Frame = &f
		}
		return ok(req, st)
	}
	return fail(req, "unknown op %q", req.Op)
}

func ok(req *Request, data any) Response {
	return Response{ID: req.ID, OK: true, Data: data}
}

func fail(req *Request, format string, args ...any) Response {
	return Response{ID: req.ID, Error: fmt.Sprintf(format, args...)}
}
