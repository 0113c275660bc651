// Package scrub models a seek-bar drag: the dragged position is kept
// locally and a single seek is issued when the gesture ends.
package scrub

import (
	"context"
	"math"
	"sync"
	"time"
)

// Seeker issues seek requests. Both playback.Controller and the RPC
// client satisfy it.
type Seeker interface {
	Seek(ctx context.Context, position time.Duration) error
}

// Scrubber tracks one drag gesture at a time.
type Scrubber struct {
	mu sync.Mutex

	seeker Seeker

	dragging  bool
	duration  time.Duration
	candidate time.Duration
}

// New creates a scrubber that seeks through seeker.
func New(seeker Seeker) *Scrubber {
	return &Scrubber{seeker: seeker}
}

// Begin starts a drag over a track of the given duration.
func (s *Scrubber) Begin(duration time.Duration, fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dragging = true
	s.duration = duration
	s.candidate = scale(duration, fraction)
}

// Move updates the candidate position. It is ignored outside a drag.
func (s *Scrubber) Move(fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dragging {
		return
	}
	s.candidate = scale(s.duration, fraction)
}

// Release ends the drag and seeks to the candidate position.
func (s *Scrubber) Release(ctx context.Context) error {
	s.mu.Lock()
	if !s.dragging {
		s.mu.Unlock()
		return nil
	}
	s.dragging = false
	target := s.candidate
	s.mu.Unlock()

	return s.seeker.Seek(ctx, target)
}

// Cancel ends the drag without seeking.
func (s *Scrubber) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragging = false
}

// Dragging reports whether a drag is in progress.
func (s *Scrubber) Dragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dragging
}

// Display returns the position a progress bar should show: the candidate
// while dragging, otherwise the confirmed position.
func (s *Scrubber) Display(confirmed time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dragging {
		return s.candidate
	}
	return confirmed
}

// Tap seeks straight to fraction of duration, as the mini player does.
func (s *Scrubber) Tap(ctx context.Context, duration time.Duration, fraction float64) error {
	return s.seeker.Seek(ctx, scale(duration, fraction))
}

// Fraction returns position as a share of duration in [0,1]; 0 while the
// duration is unknown.
func Fraction(position, duration time.Duration) float64 {
	if duration <= 0 || position <= 0 {
		return 0
	}
	if position >= duration {
		return 1
	}
	return float64(position) / float64(duration)
}

func scale(duration time.Duration, fraction float64) time.Duration {
	switch {
	case math.IsNaN(fraction), fraction < 0:
		fraction = 0
	case fraction > 1:
		fraction = 1
	}
	if duration <= 0 {
		return 0
	}
	return time.Duration(float64(duration) * fraction).Truncate(time.Millisecond)
}
