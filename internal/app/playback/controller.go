package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/feedplay/internal/app/engine"
	"github.com/osa030/feedplay/internal/app/queue"
	"github.com/osa030/feedplay/internal/domain/playlist"
	"github.com/osa030/feedplay/internal/domain/track"
)

// Errors
var (
	ErrTrackNotInContext = errors.New("track not in listing")
	ErrClosed            = errors.New("controller closed")
)

// Player is the engine surface the controller drives.
type Player interface {
	Reserve() uint64
	LoadReserved(ctx context.Context, gen uint64, t track.Track) error
	Pause() error
	Resume() error
	Stop()
	Seek(target time.Duration) (time.Duration, error)
	Snapshot() (engine.Status, bool)
	Events() <-chan engine.Status
	Generation() uint64
}

// Config holds controller configuration.
type Config struct {
	AutoAdvanceDelay time.Duration // Pause between a finished track and the next one
	EventBuffer      int           // Capacity of the Events channel
}

// Controller is the only writer of the Store. It orchestrates the
// engine and the queue.
type Controller struct {
	mu sync.Mutex

	player Player
	queue  *queue.Manager
	store  *Store
	config Config

	advanceCancel func()         // Cancel function for pending auto-advance
	earlyFinish   *engine.Status // Finished status that beat its load commit
	ended         bool           // Current track played to its end

	eventCh chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// NewController creates a controller and starts consuming engine status.
func NewController(player Player, q *queue.Manager, config Config) *Controller {
	if config.EventBuffer <= 0 {
		config.EventBuffer = 32
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		player:  player,
		queue:   q,
		store:   NewStore(),
		config:  config,
		eventCh: make(chan Event, config.EventBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
	c.store.update(func(s *Snapshot) {
		s.Shuffle = q.Shuffle()
		s.RepeatMode = q.RepeatMode()
	})

	c.wg.Add(1)
	go c.run()

	return c
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Snapshot returns the current shared state.
func (c *Controller) Snapshot() Snapshot {
	return c.store.Snapshot()
}

// Subscribe registers a state observer.
func (c *Controller) Subscribe() *Subscription {
	return c.store.Subscribe()
}

// Queue returns a copy of the current queue and its index.
func (c *Controller) Queue() ([]track.Track, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Tracks(), c.queue.CurrentIndex()
}

// PlayTrack replaces the queue and plays t. A nil tracks list plays t as
// a singleton queue. If a later PlayTrack, Next, Previous or Stop starts
// before this load completes, engine.ErrSuperseded is returned and the
// store is left to the newer command.
func (c *Controller) PlayTrack(ctx context.Context, t track.Track, tracks []track.Track, index int) error {
	if tracks == nil {
		tracks = []track.Track{t}
		index = 0
	}
	if index < 0 || index >= len(tracks) || tracks[index].ID != t.ID {
		return errors.Wrapf(queue.ErrInvalidIndex, "track %q is not at index %d", t.ID, index)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.cancelAdvanceLocked()
	if err := c.queue.SetQueue(tracks, index); err != nil {
		c.mu.Unlock()
		return err
	}
	gen := c.player.Reserve()
	c.mu.Unlock()

	return c.load(ctx, gen, t)
}

// PlayContext plays the track with trackID from listing, queueing the
// whole listing.
func (c *Controller) PlayContext(ctx context.Context, listing playlist.Playlist, trackID string) error {
	idx := listing.IndexOf(trackID)
	if idx < 0 {
		return errors.Wrapf(ErrTrackNotInContext, "track %q in %q", trackID, listing.ID)
	}
	return c.PlayTrack(ctx, listing.Tracks[idx], listing.Tracks, idx)
}

// Pause pauses playback. A pending auto-advance stays armed.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ended {
		return nil
	}
	if err := c.player.Pause(); err != nil {
		return err
	}
	c.setPlayingLocked(false)
	return nil
}

// Resume resumes playback. It is a no-op once the track has ended; the
// pending auto-advance takes over from there.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ended {
		return nil
	}
	if err := c.player.Resume(); err != nil {
		return err
	}
	c.setPlayingLocked(true)
	return nil
}

// Stop tears down playback, clears the queue and resets the track state.
// Shuffle and repeat settings are kept.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
}

// Next plays the next track per the shuffle setting, or stops at the end.
func (c *Controller) Next(ctx context.Context) error {
	return c.step(ctx, c.queue.Next, queue.ErrQueueExhausted)
}

// Previous plays the preceding track, or stops at the head of the queue.
func (c *Controller) Previous(ctx context.Context) error {
	return c.step(ctx, c.queue.Previous, queue.ErrNoPrevious)
}

func (c *Controller) step(ctx context.Context, resolve func() (track.Track, error), boundary error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.cancelAdvanceLocked()

	t, err := resolve()
	if err != nil {
		defer c.mu.Unlock()
		if errors.Is(err, boundary) {
			zlog.Debug().Msgf("playback: %v, stopping", err)
			c.stopLocked()
			return nil
		}
		return err
	}
	gen := c.player.Reserve()
	c.mu.Unlock()

	return c.load(ctx, gen, t)
}

// Seek moves playback to position. Rejected seeks are logged and the store
// keeps its last confirmed position.
func (c *Controller) Seek(ctx context.Context, position time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store.Snapshot().CurrentTrack == nil {
		return nil
	}

	confirmed, err := c.player.Seek(position)
	if err != nil {
		zlog.Warn().Err(err).Msg("playback: seek rejected")
		return nil
	}

	gen := c.player.Generation()
	c.store.update(func(s *Snapshot) {
		if s.Generation == gen {
			s.Position = confirmed
		}
	})
	return nil
}

// SetShuffle sets the shuffle flag.
func (c *Controller) SetShuffle(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue.SetShuffle(enabled)
	snap := c.store.update(func(s *Snapshot) {
		s.Shuffle = enabled
	})
	c.sendEventLocked(Event{Type: EventStateChanged, Track: snap.CurrentTrack, State: snap.State(), Generation: snap.Generation})
}

// SetRepeatMode sets the repeat mode.
func (c *Controller) SetRepeatMode(mode queue.RepeatMode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue.SetRepeatMode(mode)
	snap := c.store.update(func(s *Snapshot) {
		s.RepeatMode = mode
	})
	c.sendEventLocked(Event{Type: EventStateChanged, Track: snap.CurrentTrack, State: snap.State(), Generation: snap.Generation})
}

// Close stops playback and releases resources.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	c.closed = true
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
	close(c.eventCh)
}

// load opens t for gen outside the lock and commits the result only if no
// newer command has started meanwhile. gen must have been reserved while
// holding the lock, together with the queue change that selected t.
func (c *Controller) load(ctx context.Context, gen uint64, t track.Track) error {
	err := c.player.LoadReserved(ctx, gen, t)
	if errors.Is(err, engine.ErrSuperseded) {
		zlog.Debug().Msgf("playback: load of %s superseded", t.ID)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.player.Generation() {
		return engine.ErrSuperseded
	}
	if c.closed {
		c.player.Stop()
		return ErrClosed
	}

	c.ended = false
	if err != nil {
		zlog.Error().Err(err).Msgf("playback: failed to load %s", t.ID)
		snap := c.store.resetTrack(gen)
		c.sendEventLocked(Event{Type: EventLoadFailed, Track: &t, State: snap.State(), Generation: gen, Err: err})
		return err
	}

	var duration time.Duration
	if st, ok := c.player.Snapshot(); ok && st.Generation == gen {
		duration = st.Duration
	}

	current := t
	snap := c.store.update(func(s *Snapshot) {
		s.CurrentTrack = &current
		s.IsPlaying = true
		s.Position = 0
		s.Duration = duration
		s.Generation = gen
	})

	zlog.Info().Msgf("playback: now playing %s (generation %d)", t.DisplayName(), gen)
	c.sendEventLocked(Event{Type: EventTrackStarted, Track: snap.CurrentTrack, State: snap.State(), Generation: gen})

	if early := c.earlyFinish; early != nil {
		c.earlyFinish = nil
		if early.Generation == gen {
			c.applyStatusLocked(*early)
		}
	}
	return nil
}

// run consumes engine status until Close.
func (c *Controller) run() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case st := <-c.player.Events():
			c.handleStatus(st)
		}
	}
}

func (c *Controller) handleStatus(st engine.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st.Generation != c.player.Generation() {
		zlog.Debug().Msgf("playback: dropping stale status (generation %d)", st.Generation)
		return
	}
	if st.Generation != c.store.Snapshot().Generation {
		// The load that owns this generation has not committed yet.
		if st.Finished {
			early := st
			c.earlyFinish = &early
		}
		return
	}

	c.applyStatusLocked(st)
}

// applyStatusLocked must be called with lock held.
func (c *Controller) applyStatusLocked(st engine.Status) {
	snap := c.store.update(func(s *Snapshot) {
		s.IsPlaying = st.IsPlaying && !st.Finished
		s.Duration = st.Duration
		s.Position = st.Position
	})

	if !st.Finished {
		return
	}

	c.ended = true
	zlog.Debug().Msgf("playback: generation %d finished", st.Generation)
	c.sendEventLocked(Event{Type: EventTrackFinished, Track: snap.CurrentTrack, State: snap.State(), Generation: st.Generation})
	c.scheduleAdvanceLocked(st.Generation)
}

// scheduleAdvanceLocked resolves and plays the next track after the
// configured delay. Must be called with lock held.
func (c *Controller) scheduleAdvanceLocked(gen uint64) {
	c.cancelAdvanceLocked()
	c.advanceCancel = c.startTimer(c.config.AutoAdvanceDelay, func(ctx context.Context) {
		c.mu.Lock()
		if ctx.Err() != nil || c.player.Generation() != gen {
			c.mu.Unlock()
			return
		}
		c.advanceCancel = nil

		next, err := c.queue.ResolveOnFinish()
		if err != nil {
			zlog.Debug().Msgf("playback: %v, stopping", err)
			c.stopLocked()
			c.mu.Unlock()
			return
		}
		nextGen := c.player.Reserve()
		c.mu.Unlock()

		if err := c.load(c.ctx, nextGen, next); err != nil && !errors.Is(err, engine.ErrSuperseded) {
			zlog.Warn().Err(err).Msgf("playback: auto-advance to %s failed", next.ID)
		}
	})
}

// cancelAdvanceLocked cancels a pending auto-advance. Must be called with lock held.
func (c *Controller) cancelAdvanceLocked() {
	if c.advanceCancel != nil {
		c.advanceCancel()
		c.advanceCancel = nil
	}
}

// stopLocked must be called with lock held.
func (c *Controller) stopLocked() {
	c.cancelAdvanceLocked()
	c.ended = false
	c.player.Stop()
	c.queue.Clear()
	snap := c.store.resetTrack(c.player.Generation())
	c.sendEventLocked(Event{Type: EventStopped, State: snap.State(), Generation: snap.Generation})
}

// setPlayingLocked mirrors the playing flag when a track is current.
func (c *Controller) setPlayingLocked(playing bool) {
	if c.store.Snapshot().CurrentTrack == nil {
		return
	}
	snap := c.store.update(func(s *Snapshot) {
		s.IsPlaying = playing
	})
	c.sendEventLocked(Event{Type: EventStateChanged, Track: snap.CurrentTrack, State: snap.State(), Generation: snap.Generation})
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		// Channel full, drop event
	}
}

// startTimer runs callback after d unless the returned cancel function is
// called first. The callback receives the timer's context so it can detect
// a cancel that raced with firing.
func (c *Controller) startTimer(d time.Duration, callback func(ctx context.Context)) func() {
	ctx, cancel := context.WithCancel(c.ctx)

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-ctx.Done():
		case <-timer.C:
			callback(ctx)
		}
	}()

	return cancel
}
