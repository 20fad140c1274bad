package timeutil

import (
	"testing"
	"time"
)

func TestManualClockAdvance(t *testing.T) {
	start := time.Unix(100, 0)
	c := NewManualClock(start)

	if !c.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, c.Now())
	}
	got := c.Advance(250 * time.Millisecond)
	if want := start.Add(250 * time.Millisecond); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFormatFrameTime(t *testing.T) {
	cases := map[time.Duration]string{
		850 * time.Microsecond:   "850µs",
		16700 * time.Microsecond: "16.7ms",
		1200 * time.Millisecond:  "1.2s",
	}
	for in, want := range cases {
		if got := FormatFrameTime(in); got != want {
			t.Errorf("FormatFrameTime(%v) = %q, want %q", in, got, want)
		}
	}
}
