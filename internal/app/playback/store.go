package playback

import (
	"sync"
	"time"

	"github.com/osa030/feedplay/internal/app/queue"
	"github.com/osa030/feedplay/internal/domain/track"
)

// Snapshot is the shared, read-only view of playback.
type Snapshot struct {
	CurrentTrack *track.Track
	IsPlaying    bool
	Position     time.Duration
	Duration     time.Duration // 0 while unknown
	Shuffle      bool
	RepeatMode   queue.RepeatMode

	Generation uint64 // Engine generation the track state belongs to
	Version    uint64 // Incremented on every write
}

// State derives the coarse playback state.
func (s Snapshot) State() State {
	switch {
	case s.CurrentTrack == nil:
		return StateIdle
	case s.IsPlaying:
		return StatePlaying
	default:
		return StatePaused
	}
}

// normalize enforces the snapshot invariants.
func (s *Snapshot) normalize() {
	if s.CurrentTrack == nil {
		s.IsPlaying = false
		s.Position = 0
		s.Duration = 0
		return
	}
	if s.Duration < 0 {
		s.Duration = 0
	}
	if s.Position < 0 {
		s.Position = 0
	}
	if s.Duration > 0 && s.Position > s.Duration {
		s.Position = s.Duration
	}
}

// Store holds the current Snapshot and fans it out to subscribers.
// Only the Controller writes to it.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
	subs map[*Subscription]struct{}
}

// NewStore creates an idle store.
func NewStore() *Store {
	return &Store{
		subs: make(map[*Subscription]struct{}),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe registers an observer. The subscription's channel immediately
// holds the current snapshot and afterwards always holds the latest one;
// intermediate versions are skipped for slow readers.
func (s *Store) Subscribe() *Subscription {
	sub := &Subscription{
		ch:    make(chan Snapshot, 1),
		done:  make(chan struct{}),
		store: s,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub] = struct{}{}
	sub.ch <- s.snap
	return sub
}

// update applies fn, enforces invariants and publishes the result.
func (s *Store) update(fn func(*Snapshot)) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snap
	fn(&next)
	next.normalize()
	next.Version = s.snap.Version + 1
	s.snap = next

	for sub := range s.subs {
		sub.offer(next)
	}
	return next
}

// resetTrack clears per-track state and keeps the policy flags.
func (s *Store) resetTrack(generation uint64) Snapshot {
	return s.update(func(snap *Snapshot) {
		snap.CurrentTrack = nil
		snap.Generation = generation
	})
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, sub)
}

// Subscription delivers snapshots to one observer.
type Subscription struct {
	ch    chan Snapshot
	done  chan struct{}
	once  sync.Once
	store *Store
}

// C returns the snapshot channel.
func (s *Subscription) C() <-chan Snapshot { return s.ch }

// Done is closed when the subscription is closed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close detaches the subscription from the store.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.store.unsubscribe(s)
		close(s.done)
	})
}

// offer replaces any unread snapshot with snap. Called with the store lock held.
func (s *Subscription) offer(snap Snapshot) {
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}
