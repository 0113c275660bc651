package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/feedplay/internal/app/engine"
	"github.com/osa030/feedplay/internal/app/engine/enginetest"
	"github.com/osa030/feedplay/internal/domain/track"
)

func newTrack(id string) track.Track {
	return track.Track{ID: id, Title: id, StreamURL: "https://example.com/" + id + ".mp3"}
}

func newEngine(t *testing.T) (*engine.Engine, *enginetest.Backend) {
	t.Helper()
	backend := enginetest.NewBackend()
	e := engine.New(backend, engine.Config{StatusInterval: 10 * time.Millisecond})
	t.Cleanup(e.Stop)
	return e, backend
}

func TestEngine_Load(t *testing.T) {
	e, backend := newEngine(t)

	gen, err := e.Load(context.Background(), newTrack("a"))

	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)
	assert.Equal(t, gen, e.Generation())
	assert.True(t, e.Live())
	assert.Equal(t, engine.StatePlaying, e.State())
	assert.True(t, backend.Resource("a").Playing())
	assert.Equal(t, 1, backend.Live())
}

func TestEngine_LoadReplacesHandle(t *testing.T) {
	e, backend := newEngine(t)

	_, err := e.Load(context.Background(), newTrack("a"))
	require.NoError(t, err)
	_, err = e.Load(context.Background(), newTrack("b"))
	require.NoError(t, err)

	assert.True(t, backend.Resource("a").Closed())
	assert.False(t, backend.Resource("b").Closed())
	assert.Equal(t, 1, backend.Live())
	assert.Equal(t, 1, backend.MaxLive())
}

func TestEngine_LoadError(t *testing.T) {
	e, backend := newEngine(t)
	backend.Fail("bad", errors.New("unsupported format"))

	_, err := e.Load(context.Background(), newTrack("bad"))

	var loadErr *engine.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "bad", loadErr.TrackID)
	assert.False(t, e.Live())
	assert.Equal(t, engine.StateIdle, e.State())
	assert.Equal(t, 0, backend.Live())
}

func TestEngine_LoadErrorTearsDownPrevious(t *testing.T) {
	e, backend := newEngine(t)
	backend.Fail("bad", errors.New("404"))

	_, err := e.Load(context.Background(), newTrack("a"))
	require.NoError(t, err)
	_, err = e.Load(context.Background(), newTrack("bad"))
	require.Error(t, err)

	assert.True(t, backend.Resource("a").Closed())
	assert.False(t, e.Live())
}

func TestEngine_SupersededLoadIsCancelled(t *testing.T) {
	e, backend := newEngine(t)
	release := backend.Hold("a")
	defer release()

	errA := make(chan error, 1)
	go func() {
		_, err := e.Load(context.Background(), newTrack("a"))
		errA <- err
	}()
	require.Eventually(t, func() bool { return backend.Pending() == 1 }, time.Second, time.Millisecond)

	genB, err := e.Load(context.Background(), newTrack("b"))
	require.NoError(t, err)

	assert.ErrorIs(t, <-errA, engine.ErrSuperseded)
	assert.Equal(t, genB, e.Generation())
	assert.Equal(t, []string{"b"}, backend.Opened())
	assert.Equal(t, 1, backend.MaxLive())
}

func TestEngine_SupersededLoadClosesLateResource(t *testing.T) {
	e, backend := newEngine(t)
	release := backend.HoldIgnoringCancel("a")

	errA := make(chan error, 1)
	go func() {
		_, err := e.Load(context.Background(), newTrack("a"))
		errA <- err
	}()
	require.Eventually(t, func() bool { return backend.Pending() == 1 }, time.Second, time.Millisecond)

	errB := make(chan error, 1)
	go func() {
		_, err := e.Load(context.Background(), newTrack("b"))
		errB <- err
	}()
	require.Eventually(t, func() bool { return e.Generation() == 2 }, time.Second, time.Millisecond)

	release()

	assert.ErrorIs(t, <-errA, engine.ErrSuperseded)
	require.NoError(t, <-errB)
	assert.True(t, backend.Resource("a").Closed())
	assert.False(t, backend.Resource("b").Closed())
	assert.Equal(t, 1, backend.Live())
	assert.Equal(t, 1, backend.MaxLive())
}

func TestEngine_ReservedLoadSupersededBeforeOpen(t *testing.T) {
	e, backend := newEngine(t)

	genA := e.Reserve()
	genB := e.Reserve()

	assert.ErrorIs(t, e.LoadReserved(context.Background(), genA, newTrack("a")), engine.ErrSuperseded)
	require.NoError(t, e.LoadReserved(context.Background(), genB, newTrack("b")))

	assert.Equal(t, genB, e.Generation())
	assert.Equal(t, []string{"b"}, backend.Opened())
	assert.Equal(t, 1, backend.Live())
}

func TestEngine_StopDuringLoad(t *testing.T) {
	e, backend := newEngine(t)
	release := backend.Hold("a")
	defer release()

	errA := make(chan error, 1)
	go func() {
		_, err := e.Load(context.Background(), newTrack("a"))
		errA <- err
	}()
	require.Eventually(t, func() bool { return backend.Pending() == 1 }, time.Second, time.Millisecond)

	e.Stop()

	assert.ErrorIs(t, <-errA, engine.ErrSuperseded)
	assert.False(t, e.Live())
	assert.Equal(t, engine.StateIdle, e.State())
	assert.Equal(t, 0, backend.Live())
}

func TestEngine_Stop(t *testing.T) {
	e, backend := newEngine(t)
	gen, err := e.Load(context.Background(), newTrack("a"))
	require.NoError(t, err)

	e.Stop()
	e.Stop()

	assert.False(t, e.Live())
	assert.Equal(t, engine.StateIdle, e.State())
	assert.Greater(t, e.Generation(), gen)
	assert.True(t, backend.Resource("a").Closed())
	assert.Equal(t, 0, backend.Live())
}

func TestEngine_PauseResume(t *testing.T) {
	e, backend := newEngine(t)

	// No handle: no-ops.
	assert.NoError(t, e.Pause())
	assert.NoError(t, e.Resume())
	assert.Equal(t, engine.StateIdle, e.State())

	_, err := e.Load(context.Background(), newTrack("a"))
	require.NoError(t, err)

	require.NoError(t, e.Pause())
	assert.Equal(t, engine.StatePaused, e.State())
	assert.False(t, backend.Resource("a").Playing())

	require.NoError(t, e.Resume())
	assert.Equal(t, engine.StatePlaying, e.State())
	assert.True(t, backend.Resource("a").Playing())
}

func TestEngine_SeekClamps(t *testing.T) {
	const dur = 2 * time.Minute

	tests := []struct {
		name     string
		target   time.Duration
		expected time.Duration
	}{
		{name: "negative", target: -50 * time.Millisecond, expected: 0},
		{name: "within range", target: 30 * time.Second, expected: 30 * time.Second},
		{name: "past end", target: dur + time.Second, expected: dur},
		{name: "exact end", target: dur, expected: dur},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, backend := newEngine(t)
			backend.SetDuration("a", dur)
			_, err := e.Load(context.Background(), newTrack("a"))
			require.NoError(t, err)

			got, err := e.Seek(tt.target)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.expected, backend.Resource("a").Position())
		})
	}
}

func TestEngine_SeekUnknownDuration(t *testing.T) {
	e, backend := newEngine(t)
	backend.SetDuration("live", 0)
	_, err := e.Load(context.Background(), newTrack("live"))
	require.NoError(t, err)

	got, err := e.Seek(time.Hour)

	require.NoError(t, err)
	assert.Equal(t, time.Hour, got)
}

func TestEngine_SeekErrors(t *testing.T) {
	t.Run("no handle", func(t *testing.T) {
		e, _ := newEngine(t)

		_, err := e.Seek(time.Second)

		var seekErr *engine.SeekError
		require.True(t, errors.As(err, &seekErr))
		assert.ErrorIs(t, err, engine.ErrNoHandle)
	})

	t.Run("rejected by resource", func(t *testing.T) {
		e, backend := newEngine(t)
		_, err := e.Load(context.Background(), newTrack("a"))
		require.NoError(t, err)
		backend.Resource("a").FailSeeks(errors.New("not seekable"))

		_, err = e.Seek(time.Second)

		var seekErr *engine.SeekError
		assert.True(t, errors.As(err, &seekErr))
	})
}

func TestEngine_StatusEventsAreTagged(t *testing.T) {
	e, _ := newEngine(t)
	gen, err := e.Load(context.Background(), newTrack("a"))
	require.NoError(t, err)

	select {
	case st := <-e.Events():
		assert.Equal(t, gen, st.Generation)
		assert.True(t, st.IsPlaying)
		assert.False(t, st.Finished)
		assert.Equal(t, enginetest.DefaultDuration, st.Duration)
	case <-time.After(time.Second):
		t.Fatal("no status event")
	}
}

func TestEngine_FinishedDeliveredOnce(t *testing.T) {
	e, backend := newEngine(t)
	gen, err := e.Load(context.Background(), newTrack("a"))
	require.NoError(t, err)

	backend.Resource("a").Finish()

	finished := 0
	timeout := time.After(300 * time.Millisecond)
loop:
	for {
		select {
		case st := <-e.Events():
			if st.Finished {
				finished++
				assert.Equal(t, gen, st.Generation)
				assert.False(t, st.IsPlaying)
				assert.Equal(t, st.Duration, st.Position)
			}
		case <-timeout:
			break loop
		}
	}

	assert.Equal(t, 1, finished)
	assert.Equal(t, engine.StateFinished, e.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", engine.StateIdle.String())
	assert.Equal(t, "loading", engine.StateLoading.String())
	assert.Equal(t, "finished", engine.StateFinished.String())
	assert.Equal(t, "unknown", engine.State(99).String())
}
