package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultFrameInterval is the tick used when none is configured.
const DefaultFrameInterval = time.Second / 30

// Scheduler is a hub.FrameScheduler driven by bubbletea ticks. The hub
// queues at most one callback; the model turns it into a tea.Tick and
// runs it on the UI goroutine when the tick arrives.
type Scheduler struct {
	interval time.Duration
	pending  func(time.Time)
	gen      uint64
	inFlight bool
}

// NewScheduler creates a scheduler ticking every interval.
func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Scheduler{interval: interval}
}

// Interval is the tick period.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// RequestFrame queues fn for the next tick. The returned func cancels it.
func (s *Scheduler) RequestFrame(fn func(time.Time)) func() {
	s.gen++
	gen := s.gen
	s.pending = fn
	return func() {
		if s.gen == gen {
			s.pending = nil
		}
	}
}

// Pending reports whether a callback is queued.
func (s *Scheduler) Pending() bool { return s.pending != nil }

type frameMsg struct {
	gen uint64
	at  time.Time
}

// cmd returns the tick for the queued callback, or nil when nothing is
// queued or a tick is already on its way.
func (s *Scheduler) cmd() tea.Cmd {
	if s.pending == nil || s.inFlight {
		return nil
	}
	s.inFlight = true
	gen := s.gen
	return tea.Tick(s.interval, func(t time.Time) tea.Msg {
		return frameMsg{gen: gen, at: t}
	})
}

// fire runs the callback msg was issued for. A callback cancelled or
// replaced since is dropped.
func (s *Scheduler) fire(msg frameMsg) {
	s.inFlight = false
	if msg.gen != s.gen || s.pending == nil {
		return
	}
	fn := s.pending
	s.pending = nil
	fn(msg.at)
}
