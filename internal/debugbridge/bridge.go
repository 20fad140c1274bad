// Package debugbridge exposes a running viewer to development tooling over
// WebSocket and plain HTTP.
//
// The bridge never touches viewer state itself. Every request is handed to
// the host on the Requests channel; the host answers from its own goroutine
// with Dispatch and Request.Respond, which keeps the state core
// single-threaded.
package debugbridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Mr-Dark-debug/vantage/internal/logging"
)

// Request operations.
const (
	OpPing   = "ping"
	OpState  = "state"
	OpPick   = "pick"
	OpSelect = "select"
	OpFrame  = "frame"
)

var (
	// ErrClosed is returned for requests made after Close.
	ErrClosed = errors.New("debugbridge: closed")
	// ErrTimeout is returned when the host does not answer in time.
	ErrTimeout = errors.New("debugbridge: host did not answer")
)

// Request is one client call.
type Request struct {
	ID    string  `json:"id"`
	Op    string  `json:"op"`
	UUID  string  `json:"uuid,omitempty"`
	Kind  string  `json:"kind,omitempty"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Frame *int    `json:"frame,omitempty"`

	reply chan Response
}

// Response answers a Request.
type Response struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Respond delivers resp to the waiting client. Only the first call has
// any effect.
func (r *Request) Respond(resp Response) {
	if r.reply == nil {
		return
	}
	resp.ID = r.ID
	select {
	case r.reply <- resp:
	default:
	}
}

// Server routes bridge traffic to the host.
type Server struct {
	requests chan *Request
	timeout  time.Duration
	router   chi.Router

	clients atomic.Int64
	served  atomic.Uint64

	closeOnce sync.Once
	closed    chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithTimeout bounds how long a request waits for the host.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithQueue sets the request channel capacity.
func WithQueue(n int) Option {
	return func(s *Server) {
		if n >= 0 {
			s.requests = make(chan *Request, n)
		}
	}
}

// New creates a bridge server.
func New(opts ...Option) *Server {
	s := &Server{
		requests: make(chan *Request, 16),
		timeout:  2 * time.Second,
		closed:   make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Route("/api/bridge", func(r chi.Router) {
		r.Get("/ws", s.handleWS)
		r.Post("/request", s.handleRequest)
	})
	s.router = r
	return s
}

// Requests is the channel the host drains.
func (s *Server) Requests() <-chan *Request { return s.requests }

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Clients is the number of open WebSocket connections.
func (s *Server) Clients() int64 { return s.clients.Load() }

// Close stops accepting requests. Pending requests time out.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logging.For("debugbridge").Info("listening", "addr", addr)

	select {
	case <-ctx.Done():
		s.Close()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Do hands req to the host and waits for its answer.
func (s *Server) Do(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.reply = make(chan Response, 1)
	r := &req

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case <-s.closed:
		return Response{}, ErrClosed
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-timer.C:
		return Response{}, ErrTimeout
	case s.requests <- r:
	}

	select {
	case resp := <-r.reply:
		s.served.Add(1)
		return resp, nil
	case <-s.closed:
		return Response{}, ErrClosed
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-timer.C:
		return Response{}, ErrTimeout
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.clients.Load(),
		"served":  s.served.Load(),
	})
}

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	var req Request
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}
	resp, err := s.Do(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, Response{ID: req.ID, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
	})
	if err != nil {
		logging.For("debugbridge").Warn("websocket accept", "err", err)
		return
	}
	defer conn.CloseNow()

	s.clients.Add(1)
	defer s.clients.Add(-1)

	log := logging.For("debugbridge")
	ctx := r.Context()
	for {
		var req Request
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			if websocket.CloseStatus(err) == -1 {
				log.Debug("websocket read", "err", err)
			}
			return
		}
		resp, err := s.Do(ctx, req)
		if err != nil {
			resp = Response{ID: req.ID, Error: err.Error()}
		}
		if err := wsjson.Write(ctx, conn, resp); err != nil {
			log.Debug("websocket write", "err", err)
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.For("debugbridge").Warn("encode response", "err", err)
	}
}
