package audio

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
)

// ErrClosed is returned by resource operations after Close.
var ErrClosed = errors.New("resource closed")

// Resource is one decoded track attached to a sink.
// ctrl, closed and ended are shared with the sink goroutine and guarded by
// the sink lock.
type Resource struct {
	sink     Sink
	streamer beep.StreamSeekCloser
	format   beep.Format

	ctrl     *beep.Ctrl
	closed   bool
	ended    bool
	finished chan struct{}

	closeOnce sync.Once
}

func newResource(sink Sink, streamer beep.StreamSeekCloser, format beep.Format) *Resource {
	r := &Resource{
		sink:     sink,
		streamer: streamer,
		format:   format,
		finished: make(chan struct{}),
	}

	var playable beep.Streamer = streamer
	if format.SampleRate != sink.SampleRate() {
		playable = beep.Resample(4, format.SampleRate, sink.SampleRate(), streamer)
	}
	r.ctrl = &beep.Ctrl{Streamer: &detachable{r: r, s: playable}, Paused: true}

	sink.Play(beep.Seq(r.ctrl, beep.Callback(func() {
		// Runs on the sink goroutine with the sink locked.
		if r.closed || r.ended {
			return
		}
		r.ended = true
		close(r.finished)
	})))
	return r
}

// detachable ends the stream once its resource is closed so the sink drops it.
type detachable struct {
	r *Resource
	s beep.Streamer
}

func (d *detachable) Stream(samples [][2]float64) (int, bool) {
	if d.r.closed {
		return 0, false
	}
	return d.s.Stream(samples)
}

func (d *detachable) Err() error {
	return d.s.Err()
}

// Play starts or resumes output.
func (r *Resource) Play() error {
	return r.setPaused(false)
}

// Pause holds output at the current position.
func (r *Resource) Pause() error {
	return r.setPaused(true)
}

func (r *Resource) setPaused(paused bool) error {
	r.sink.Lock()
	defer r.sink.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.ctrl.Paused = paused
	return nil
}

// Seek moves the decoder to position, clamped to the stream length.
func (r *Resource) Seek(position time.Duration) error {
	r.sink.Lock()
	defer r.sink.Unlock()
	if r.closed {
		return ErrClosed
	}

	n := r.format.SampleRate.N(position)
	if n < 0 {
		n = 0
	}
	if length := r.streamer.Len(); n > length {
		n = length
	}
	if err := r.streamer.Seek(n); err != nil {
		return errors.Wrapf(err, "failed to seek to %v", position)
	}
	return nil
}

// Position returns the decoder position.
func (r *Resource) Position() time.Duration {
	r.sink.Lock()
	defer r.sink.Unlock()
	if r.closed {
		return 0
	}
	return r.format.SampleRate.D(r.streamer.Position())
}

// Duration returns the decoded length.
func (r *Resource) Duration() time.Duration {
	r.sink.Lock()
	defer r.sink.Unlock()
	if r.closed {
		return 0
	}
	return r.format.SampleRate.D(r.streamer.Len())
}

// Playing reports whether output is running.
func (r *Resource) Playing() bool {
	r.sink.Lock()
	defer r.sink.Unlock()
	return !r.closed && !r.ended && !r.ctrl.Paused
}

// Finished is closed when the stream plays to its end.
func (r *Resource) Finished() <-chan struct{} {
	return r.finished
}

// Close detaches the resource from the sink and releases the decoder.
func (r *Resource) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.sink.Lock()
		r.closed = true
		// A nil streamer ends the Ctrl even while paused.
		r.ctrl.Streamer = nil
		r.sink.Unlock()
		err = r.streamer.Close()
	})
	return err
}
