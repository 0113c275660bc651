// Package engine owns the single active audio resource and reports its status.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/feedplay/internal/domain/track"
)

// Config holds engine configuration.
type Config struct {
	StatusInterval time.Duration // Cadence of progress events
	EventBuffer    int           // Capacity of the status channel
}

// Status is a progress report from the handle tagged with Generation.
type Status struct {
	Generation uint64
	IsPlaying  bool
	Position   time.Duration
	Duration   time.Duration
	Finished   bool
}

// handle is the single installed resource and its watcher.
type handle struct {
	res  Resource
	gen  uint64
	stop chan struct{}
	done chan struct{}
}

// Engine manages at most one live Resource at a time.
type Engine struct {
	backend Backend
	config  Config

	// lifecycle serializes teardown and creation of handles.
	lifecycle sync.Mutex

	mu         sync.Mutex
	generation uint64
	loadCancel context.CancelFunc
	handle     *handle
	state      State

	statusCh chan Status
}

// New creates an engine on top of backend.
func New(backend Backend, config Config) *Engine {
	if config.StatusInterval <= 0 {
		config.StatusInterval = 250 * time.Millisecond
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 16
	}
	return &Engine{
		backend:  backend,
		config:   config,
		state:    StateIdle,
		statusCh: make(chan Status, config.EventBuffer),
	}
}

// Events returns the status channel shared by all handles.
// Consumers must compare Status.Generation with Generation().
func (e *Engine) Events() <-chan Status {
	return e.statusCh
}

// Generation returns the tag of the most recent Load or Stop.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Live reports whether a handle is installed.
func (e *Engine) Live() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handle != nil
}

// Load tears down the current handle, opens t and starts playback.
// It returns the generation the new handle is tagged with.
// If another Load or Stop begins first, Load returns ErrSuperseded and
// leaves nothing open.
func (e *Engine) Load(ctx context.Context, t track.Track) (uint64, error) {
	gen := e.Reserve()
	return gen, e.LoadReserved(ctx, gen, t)
}

// Reserve claims the next generation and cancels any in-flight load
// without blocking. The caller completes it with LoadReserved; a later
// Reserve or Stop supersedes it.
func (e *Engine) Reserve() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.generation++
	if e.loadCancel != nil {
		e.loadCancel()
		e.loadCancel = nil
	}
	e.state = StateLoading
	return e.generation
}

// LoadReserved opens t for a generation obtained from Reserve.
func (e *Engine) LoadReserved(ctx context.Context, gen uint64, t track.Track) error {
	e.mu.Lock()
	if e.generation != gen {
		e.mu.Unlock()
		return ErrSuperseded
	}
	loadCtx, cancel := context.WithCancel(ctx)
	e.loadCancel = cancel
	e.mu.Unlock()

	defer e.finishLoad(gen, cancel)

	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if !e.isCurrent(gen) {
		return ErrSuperseded
	}

	e.teardownLocked()

	zlog.Debug().Msgf("engine: opening %s (generation %d)", t.ID, gen)
	res, err := e.backend.Open(loadCtx, t)
	if err != nil {
		if !e.isCurrent(gen) {
			return ErrSuperseded
		}
		e.setStateIfCurrent(gen, StateIdle)
		return &LoadError{TrackID: t.ID, Err: err}
	}

	if !e.isCurrent(gen) {
		closeResource(res)
		return ErrSuperseded
	}

	if err := res.Play(); err != nil {
		closeResource(res)
		e.setStateIfCurrent(gen, StateIdle)
		return &LoadError{TrackID: t.ID, Err: errors.Wrap(err, "start playback")}
	}

	h := &handle{
		res:  res,
		gen:  gen,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	e.mu.Lock()
	if e.generation != gen {
		e.mu.Unlock()
		closeResource(res)
		return ErrSuperseded
	}
	e.handle = h
	e.state = StatePlaying
	e.mu.Unlock()

	go e.watch(h)

	zlog.Info().Msgf("engine: playing %s (generation %d)", t.ID, gen)
	return nil
}

// finishLoad releases the load context, clearing it only if it is still ours.
func (e *Engine) finishLoad(gen uint64, cancel context.CancelFunc) {
	cancel()
	e.mu.Lock()
	if e.generation == gen {
		e.loadCancel = nil
	}
	e.mu.Unlock()
}

// Pause pauses the handle. It is a no-op without one.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle == nil {
		return nil
	}
	if err := e.handle.res.Pause(); err != nil {
		return errors.Wrap(err, "pause")
	}
	if e.state == StatePlaying {
		e.state = StatePaused
	}
	return nil
}

// Resume resumes the handle. It is a no-op without one.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handle == nil {
		return nil
	}
	if err := e.handle.res.Play(); err != nil {
		return errors.Wrap(err, "resume")
	}
	if e.state == StatePaused {
		e.state = StatePlaying
	}
	return nil
}

// Stop cancels any in-flight load, tears down the handle and returns to Idle.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.generation++
	if e.loadCancel != nil {
		e.loadCancel()
		e.loadCancel = nil
	}
	e.state = StateStopped
	e.mu.Unlock()

	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.teardownLocked()

	e.mu.Lock()
	if e.state == StateStopped {
		e.state = StateIdle
	}
	e.mu.Unlock()
}

// Seek moves the handle to target clamped into [0, duration].
// It returns the position actually requested.
func (e *Engine) Seek(target time.Duration) (time.Duration, error) {
	e.mu.Lock()
	h := e.handle
	e.mu.Unlock()

	if h == nil {
		return 0, &SeekError{Target: target, Err: ErrNoHandle}
	}

	clamped := clamp(target, h.res.Duration())
	if err := h.res.Seek(clamped); err != nil {
		return 0, &SeekError{Target: clamped, Err: err}
	}
	return clamped, nil
}

// Snapshot reports the handle's status without waiting for the next tick.
func (e *Engine) Snapshot() (Status, bool) {
	e.mu.Lock()
	h := e.handle
	e.mu.Unlock()

	if h == nil {
		return Status{}, false
	}
	return statusOf(h), true
}

// teardownLocked removes the installed handle. Must hold lifecycle.
func (e *Engine) teardownLocked() {
	e.mu.Lock()
	h := e.handle
	e.handle = nil
	e.mu.Unlock()

	if h == nil {
		return
	}

	close(h.stop)
	<-h.done
	closeResource(h.res)
	zlog.Debug().Msgf("engine: tore down generation %d", h.gen)
}

// watch emits periodic status for h and the single finished event.
func (e *Engine) watch(h *handle) {
	defer close(h.done)

	ticker := time.NewTicker(e.config.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return

		case <-h.res.Finished():
			e.mu.Lock()
			if e.handle == h {
				e.state = StateFinished
			}
			e.mu.Unlock()

			st := statusOf(h)
			st.IsPlaying = false
			st.Finished = true
			if st.Duration > 0 {
				st.Position = st.Duration
			}
			select {
			case e.statusCh <- st:
			case <-h.stop:
			}
			return

		case <-ticker.C:
			select {
			case e.statusCh <- statusOf(h):
			default:
				// Consumer is behind; the next tick carries newer data.
			}
		}
	}
}

func (e *Engine) isCurrent(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation == gen
}

func (e *Engine) setStateIfCurrent(gen uint64, s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation == gen {
		e.state = s
	}
}

func statusOf(h *handle) Status {
	dur := h.res.Duration()
	return Status{
		Generation: h.gen,
		IsPlaying:  h.res.Playing(),
		Position:   clamp(h.res.Position(), dur),
		Duration:   dur,
	}
}

// clamp limits d to [0, max]; max <= 0 means unknown and only the floor applies.
func clamp(d, max time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

func closeResource(res Resource) {
	if err := res.Close(); err != nil {
		zlog.Warn().Err(err).Msg("engine: closing resource")
	}
}
