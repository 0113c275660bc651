// Package audio provides the engine backend that fetches, decodes and plays
// tracks with beep.
package audio

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/feedplay/internal/app/engine"
	"github.com/osa030/feedplay/internal/domain/track"
)

// Config represents audio backend configuration.
type Config struct {
	MaxTrackBytes int64
	FetchTimeout  time.Duration
}

// Backend implements engine.Backend on top of a Sink.
type Backend struct {
	sink       Sink
	httpClient *http.Client
	maxBytes   int64
}

var _ engine.Backend = (*Backend)(nil)

// NewBackend creates a backend that plays into sink.
func NewBackend(sink Sink, cfg Config) (*Backend, error) {
	if sink == nil {
		return nil, errors.New("audio sink is required")
	}
	if cfg.MaxTrackBytes <= 0 {
		return nil, errors.New("max track bytes must be positive")
	}
	return &Backend{
		sink:       sink,
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		maxBytes:   cfg.MaxTrackBytes,
	}, nil
}

// Open fetches and decodes t. The returned resource starts paused.
func (b *Backend) Open(ctx context.Context, t track.Track) (engine.Resource, error) {
	started := time.Now()

	data, contentType, err := b.fetch(ctx, t.StreamURL)
	if err != nil {
		return nil, err
	}
	// A load superseded during the download is abandoned before decoding.
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "open cancelled")
	}

	format, err := DetectFormat(contentType, t.StreamURL)
	if err != nil {
		return nil, err
	}

	streamer, bf, err := decode(format, data)
	if err != nil {
		return nil, err
	}

	zlog.Debug().Msgf("audio: opened %s (%s, %s, %d Hz, %v) in %v",
		t.ID, format, humanize.Bytes(uint64(len(data))), bf.SampleRate,
		bf.SampleRate.D(streamer.Len()).Round(time.Millisecond), time.Since(started).Round(time.Millisecond))

	return newResource(b.sink, streamer, bf), nil
}
