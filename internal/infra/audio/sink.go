package audio

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"
)

// Sink consumes mixed audio at a fixed sample rate.
// Streamers handed to Play are pulled with the sink locked, so state shared
// with them must only be changed between Lock and Unlock.
type Sink interface {
	SampleRate() beep.SampleRate
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Close() error
}

var speakerOnce sync.Once

// SpeakerSink plays through the system audio device.
type SpeakerSink struct {
	rate beep.SampleRate
}

// NewSpeakerSink initializes the speaker. The device can only be opened
// once per process; later calls reuse it.
func NewSpeakerSink(rate beep.SampleRate, buffer time.Duration) (*SpeakerSink, error) {
	var err error
	speakerOnce.Do(func() {
		err = speaker.Init(rate, rate.N(buffer))
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize speaker")
	}
	zlog.Info().Msgf("audio: speaker initialized at %d Hz (buffer %v)", rate, buffer)
	return &SpeakerSink{rate: rate}, nil
}

func (s *SpeakerSink) SampleRate() beep.SampleRate { return s.rate }

func (s *SpeakerSink) Play(st beep.Streamer) { speaker.Play(st) }

func (s *SpeakerSink) Lock() { speaker.Lock() }

func (s *SpeakerSink) Unlock() { speaker.Unlock() }

// Close clears everything that is still playing. The device stays open.
func (s *SpeakerSink) Close() error {
	speaker.Clear()
	return nil
}

// ClockSink drains streamers in real time without an audio device.
// It is used on headless hosts and in tests; positions advance exactly as
// they would on a speaker.
type ClockSink struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	mixer  beep.Mixer
	buf    [][2]float64
	period time.Duration

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewClockSink starts a sink that pulls one buffer every period.
func NewClockSink(rate beep.SampleRate, period time.Duration) *ClockSink {
	if period <= 0 {
		period = 10 * time.Millisecond
	}
	c := &ClockSink{
		rate:   rate,
		buf:    make([][2]float64, rate.N(period)),
		period: period,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *ClockSink) run() {
	defer close(c.done)
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.mixer.Stream(c.buf)
			c.mu.Unlock()
		}
	}
}

func (c *ClockSink) SampleRate() beep.SampleRate { return c.rate }

func (c *ClockSink) Play(s beep.Streamer) {
	c.mu.Lock()
	c.mixer.Add(s)
	c.mu.Unlock()
}

func (c *ClockSink) Lock() { c.mu.Lock() }

func (c *ClockSink) Unlock() { c.mu.Unlock() }

// Close stops the clock. Streamers still in the mixer are dropped.
func (c *ClockSink) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		<-c.done
		c.mu.Lock()
		c.mixer.Clear()
		c.mu.Unlock()
	})
	return nil
}
