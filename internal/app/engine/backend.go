package engine

import (
	"context"
	"time"

	"github.com/osa030/feedplay/internal/domain/track"
)

// Backend creates audio resources for tracks.
type Backend interface {
	// Open prepares a resource bound to t.StreamURL. It must honour ctx
	// cancellation and must not leave anything open when it returns an error.
	Open(ctx context.Context, t track.Track) (Resource, error)
}

// Resource is a single decoding/streaming session.
// Implementations must tolerate calls after Close and return an error
// from Play, Pause and Seek in that case.
type Resource interface {
	Play() error
	Pause() error
	Seek(position time.Duration) error
	Position() time.Duration
	// Duration returns 0 while the length is unknown.
	Duration() time.Duration
	Playing() bool
	// Finished is closed when playback reaches the end naturally.
	Finished() <-chan struct{}
	Close() error
}
