package debugbridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-Dark-debug/vantage/internal/hub"
	"github.com/Mr-Dark-debug/vantage/internal/scene"
	"github.com/Mr-Dark-debug/vantage/internal/selection"
	"github.com/Mr-Dark-debug/vantage/internal/termrender"
)

const doc = `{
  "points": [
    {"uuid": "p1", "frames": [1]},
    {"uuid": "p2", "frames": [2]}
  ],
  "lines": [{"uuid": "l1", "end_a": {"ref": "p1"}, "end_b": {"ref": "p2"}}]
}`

type idleScheduler struct{}

func (idleScheduler) RequestFrame(func(time.Time)) func() { return func() {} }

func newHub(t *testing.T) *hub.Hub {
	t.Helper()
	d, err := scene.Parse([]byte(doc))
	require.NoError(t, err)
	h, err := hub.New(d, termrender.New(40, 20), idleScheduler{})
	require.NoError(t, err)
	t.Cleanup(h.Dispose)
	return h
}

// serve answers every request against h until ctx ends, standing in for
// the UI goroutine.
func serve(ctx context.Context, s *Server, h *hub.Hub) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.Requests():
			req.Respond(Dispatch(h, req))
		}
	}
}

func TestDispatch(t *testing.T) {
	h := newHub(t)

	resp := Dispatch(h, &Request{ID: "1", Op: OpPing})
	assert.True(t, resp.OK)
	assert.Equal(t, "pong", resp.Data)
	assert.Equal(t, "1", resp.ID)

	resp = Dispatch(h, &Request{Op: OpSelect, UUID: "l1"})
	require.True(t, resp.OK, resp.Error)
	assert.Equal(t, selection.Selection{UUID: "l1", Kind: scene.KindLines}, resp.Data)

	resp = Dispatch(h, &Request{Op: OpSelect, UUID: "missing"})
	assert.False(t, resp.OK)
	assert.Equal(t, "l1", h.Core().Selection.Get().UUID)

	resp = Dispatch(h, &Request{Op: OpSelect, UUID: "p1", Kind: "meshes"})
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unknown kind")

	two := 2
	resp = Dispatch(h, &Request{Op: OpFrame, Frame: &two})
	require.True(t, resp.OK)
	st := resp.Data.(FrameState)
	require.NotNil(t, st.Frame)
	assert.Equal(t, 2, *st.Frame)
	assert.Equal(t, []int{1, 2}, st.Frames)

	resp = Dispatch(h, &Request{Op: OpState})
	require.True(t, resp.OK)
	snap := resp.Data.(hub.Snapshot)
	assert.Equal(t, 1, snap.Visible[scene.KindPoints])

	resp = Dispatch(h, &Request{Op: OpSelect})
	require.True(t, resp.OK)
	assert.True(t, h.Core().Selection.Get().Empty())

	resp = Dispatch(h, &Request{Op: "reboot"})
	assert.False(t, resp.OK)

	h.Dispose()
	assert.False(t, Dispatch(h, &Request{Op: OpPing}).OK)
}

func TestDo_RoundTrip(t *testing.T) {
	h := newHub(t)
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go serve(ctx, s, h)

	resp, err := s.Do(ctx, Request{Op: OpPing})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.NotEmpty(t, resp.ID)
}

func TestDo_TimeoutAndClose(t *testing.T) {
	s := New(WithTimeout(20*time.Millisecond), WithQueue(0))
	_, err := s.Do(context.Background(), Request{Op: OpPing})
	assert.ErrorIs(t, err, ErrTimeout)

	s.Close()
	s.Close()
	_, err = s.Do(context.Background(), Request{Op: OpPing})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRespond_OnlyOnce(t *testing.T) {
	req := &Request{ID: "x", reply: make(chan Response, 1)}
	req.Respond(Response{OK: true})
	req.Respond(Response{Error: "second"})
	got := <-req.reply
	assert.True(t, got.OK)
	assert.Equal(t, "x", got.ID)

	(&Request{}).Respond(Response{})
}

func TestHTTP(t *testing.T) {
	h := newHub(t)
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go serve(ctx, s, h)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	body, _ := json.Marshal(Request{ID: "r1", Op: OpSelect, UUID: "p2"})
	res, err = http.Post(srv.URL+"/api/bridge/request", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	var resp Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	assert.True(t, resp.OK, resp.Error)
	assert.Equal(t, "r1", resp.ID)

	res2, err := http.Post(srv.URL+"/api/bridge/request", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	res2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res2.StatusCode)
}

func TestWebSocket(t *testing.T) {
	h := newHub(t)
	s := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go serve(ctx, s, h)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/bridge/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, wsjson.Write(ctx, conn, Request{ID: "a", Op: OpPing}))
	var resp Response
	require.NoError(t, wsjson.Read(ctx, conn, &resp))
	assert.Equal(t, "a", resp.ID)
	assert.True(t, resp.OK)
	assert.Equal(t, "pong", resp.Data)

	require.NoError(t, wsjson.Write(ctx, conn, Request{ID: "b", Op: OpState}))
	var state struct {
		ID   string       `json:"id"`
		Data hub.Snapshot `json:"data"`
	}
	require.NoError(t, wsjson.Read(ctx, conn, &state))
	assert.Equal(t, "b", state.ID)
	assert.Equal(t, 2, state.Data.Visible[scene.KindPoints])

	conn.Close(websocket.StatusNormalClosure, "")
}
