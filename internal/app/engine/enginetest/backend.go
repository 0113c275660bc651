// Package enginetest provides an in-memory engine.Backend for tests.
package enginetest

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/feedplay/internal/app/engine"
	"github.com/osa030/feedplay/internal/domain/track"
)

// ErrClosed is returned by resource operations after Close.
var ErrClosed = errors.New("resource closed")

// DefaultDuration is the length of tracks without an explicit duration.
const DefaultDuration = 3 * time.Minute

// Backend opens fake resources and counts how many are alive.
type Backend struct {
	mu sync.Mutex

	durations map[string]time.Duration
	failures  map[string]error
	gates     map[string]gate

	opened    []string
	resources map[string]*Resource
	live      int
	maxLive   int
	pending   int
}

type gate struct {
	release   chan struct{}
	ignoreCtx bool
}

// NewBackend creates an empty fake backend.
func NewBackend() *Backend {
	return &Backend{
		durations: make(map[string]time.Duration),
		failures:  make(map[string]error),
		gates:     make(map[string]gate),
		resources: make(map[string]*Resource),
	}
}

// SetDuration sets the length reported for track id.
func (b *Backend) SetDuration(id string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.durations[id] = d
}

// Fail makes Open fail for track id.
func (b *Backend) Fail(id string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[id] = err
}

// Hold blocks Open for track id until the returned function is called.
// Open still returns early when its context is cancelled.
func (b *Backend) Hold(id string) func() {
	return b.hold(id, false)
}

// HoldIgnoringCancel blocks Open for track id until released, even after
// its context is cancelled, like an I/O layer that cannot be interrupted.
func (b *Backend) HoldIgnoringCancel(id string) func() {
	return b.hold(id, true)
}

func (b *Backend) hold(id string, ignoreCtx bool) func() {
	g := gate{release: make(chan struct{}), ignoreCtx: ignoreCtx}
	b.mu.Lock()
	b.gates[id] = g
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(g.release) })
	}
}

// Open implements engine.Backend.
func (b *Backend) Open(ctx context.Context, t track.Track) (engine.Resource, error) {
	b.mu.Lock()
	g, held := b.gates[t.ID]
	delete(b.gates, t.ID)
	failure := b.failures[t.ID]
	b.mu.Unlock()

	if held {
		b.mu.Lock()
		b.pending++
		b.mu.Unlock()
		defer func() {
			b.mu.Lock()
			b.pending--
			b.mu.Unlock()
		}()

		if g.ignoreCtx {
			<-g.release
		} else {
			select {
			case <-g.release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if failure != nil {
		return nil, failure
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	dur, ok := b.durations[t.ID]
	if !ok {
		dur = DefaultDuration
	}
	r := &Resource{
		id:       t.ID,
		duration: dur,
		finished: make(chan struct{}),
		backend:  b,
	}
	b.resources[t.ID] = r
	b.opened = append(b.opened, t.ID)
	b.live++
	if b.live > b.maxLive {
		b.maxLive = b.live
	}
	return r, nil
}

// Resource returns the most recently opened resource for track id.
func (b *Backend) Resource(id string) *Resource {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resources[id]
}

// Pending returns the number of Open calls blocked by Hold.
func (b *Backend) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Opened returns the IDs of every track opened so far, in order.
func (b *Backend) Opened() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.opened))
	copy(out, b.opened)
	return out
}

// Live returns the number of resources opened and not yet closed.
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.live
}

// MaxLive returns the highest Live value observed.
func (b *Backend) MaxLive() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxLive
}

func (b *Backend) released() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.live--
}

// Resource is a fake audio session whose clock only moves on Seek or Finish.
type Resource struct {
	id      string
	backend *Backend

	mu       sync.Mutex
	duration time.Duration
	position time.Duration
	playing  bool
	closed   bool
	seekErr  error

	finished   chan struct{}
	finishOnce sync.Once
}

// ID returns the track ID the resource was opened for.
func (r *Resource) ID() string { return r.id }

// Finish simulates natural completion.
func (r *Resource) Finish() {
	r.mu.Lock()
	r.position = r.duration
	r.playing = false
	r.mu.Unlock()
	r.finishOnce.Do(func() { close(r.finished) })
}

// FailSeeks makes every later Seek return err.
func (r *Resource) FailSeeks(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seekErr = err
}

// Closed reports whether Close was called.
func (r *Resource) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Resource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.playing = true
	return nil
}

func (r *Resource) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.playing = false
	return nil
}

func (r *Resource) Seek(position time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.seekErr != nil {
		return r.seekErr
	}
	r.position = position
	return nil
}

func (r *Resource) Position() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.position
}

func (r *Resource) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.duration
}

func (r *Resource) Playing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playing
}

func (r *Resource) Finished() <-chan struct{} {
	return r.finished
}

func (r *Resource) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.playing = false
	r.mu.Unlock()

	r.backend.released()
	return nil
}
