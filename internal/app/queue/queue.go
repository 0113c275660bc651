// Package queue provides the play queue and its shuffle/repeat resolution.
package queue

import (
	"math/rand"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/feedplay/internal/domain/track"
)

// Errors
var (
	ErrQueueExhausted = errors.New("queue exhausted")
	ErrNoPrevious     = errors.New("no previous track")
	ErrInvalidIndex   = errors.New("start index out of range")
)

// noIndex marks an empty queue.
const noIndex = -1

// Manager owns the ordered track list, the current index and the policy flags.
// It decides what plays next; it never touches the audio engine.
type Manager struct {
	mu sync.Mutex

	tracks       []track.Track
	currentIndex int // noIndex when the queue is empty

	shuffle    bool
	repeatMode RepeatMode

	rng *rand.Rand
}

// Option configures a Manager.
type Option func(*Manager)

// WithRand sets the random source used for shuffle.
func WithRand(rng *rand.Rand) Option {
	return func(m *Manager) {
		m.rng = rng
	}
}

// New creates an empty queue manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		currentIndex: noIndex,
		repeatMode:   RepeatOff,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return m
}

// SetQueue replaces the track list and the current index together.
// An empty list clears the queue. The previous queue is kept if startIndex
// does not address a track of the new list.
func (m *Manager) SetQueue(tracks []track.Track, startIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(tracks) == 0 {
		m.tracks = nil
		m.currentIndex = noIndex
		return nil
	}
	if startIndex < 0 || startIndex >= len(tracks) {
		return errors.Wrapf(ErrInvalidIndex, "index %d for %d tracks", startIndex, len(tracks))
	}

	replaced := make([]track.Track, len(tracks))
	copy(replaced, tracks)
	m.tracks = replaced
	m.currentIndex = startIndex
	return nil
}

// Clear empties the queue. Policy flags are kept.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks = nil
	m.currentIndex = noIndex
}

// Next moves to the next track and returns it.
// With shuffle on, a random track other than the current one is chosen
// (a single-track queue replays itself). Otherwise the following track is
// returned, or ErrQueueExhausted at the end of the queue.
func (m *Manager) Next() (track.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextLocked()
}

// Previous moves to the preceding track and returns it, or ErrNoPrevious at
// the head of the queue. Shuffle does not apply.
func (m *Manager) Previous() (track.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentIndex == noIndex || m.currentIndex-1 < 0 {
		return track.Track{}, ErrNoPrevious
	}
	m.currentIndex--
	return m.tracks[m.currentIndex], nil
}

// ResolveOnFinish picks the track to play after the current one finished
// naturally: repeat-one replays it, shuffle picks a random other track,
// otherwise the queue advances sequentially. ErrQueueExhausted means playback
// should stop.
func (m *Manager) ResolveOnFinish() (track.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentIndex == noIndex {
		return track.Track{}, ErrQueueExhausted
	}
	if m.repeatMode == RepeatOne {
		return m.tracks[m.currentIndex], nil
	}
	return m.nextLocked()
}

func (m *Manager) nextLocked() (track.Track, error) {
	if m.currentIndex == noIndex {
		return track.Track{}, ErrQueueExhausted
	}

	if m.shuffle {
		m.currentIndex = m.randomOtherIndexLocked()
		return m.tracks[m.currentIndex], nil
	}

	if m.currentIndex+1 >= len(m.tracks) {
		return track.Track{}, ErrQueueExhausted
	}
	m.currentIndex++
	return m.tracks[m.currentIndex], nil
}

// randomOtherIndexLocked draws indices until one differs from the current
// index. A single-track queue returns the current index.
func (m *Manager) randomOtherIndexLocked() int {
	n := len(m.tracks)
	if n <= 1 {
		return m.currentIndex
	}
	idx := m.currentIndex
	for idx == m.currentIndex {
		idx = m.rng.Intn(n)
	}
	return idx
}

// Current returns the current track.
func (m *Manager) Current() (track.Track, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentIndex == noIndex {
		return track.Track{}, false
	}
	return m.tracks[m.currentIndex], true
}

// CurrentIndex returns the current index (-1 if the queue is empty).
func (m *Manager) CurrentIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentIndex
}

// Tracks returns a copy of the queued tracks.
func (m *Manager) Tracks() []track.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]track.Track, len(m.tracks))
	copy(result, m.tracks)
	return result
}

// Len returns the number of queued tracks.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tracks)
}

// SetShuffle enables or disables shuffle.
func (m *Manager) SetShuffle(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shuffle = enabled
}

// Shuffle reports whether shuffle is enabled.
func (m *Manager) Shuffle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shuffle
}

// SetRepeatMode sets the repeat mode.
func (m *Manager) SetRepeatMode(mode RepeatMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repeatMode = mode
}

// RepeatMode returns the repeat mode.
func (m *Manager) RepeatMode() RepeatMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.repeatMode
}
