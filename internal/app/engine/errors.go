package engine

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	// ErrSuperseded is returned by Load when a newer Load or a Stop
	// started before it completed.
	ErrSuperseded = errors.New("load superseded")
	// ErrNoHandle is wrapped in a SeekError when nothing is loaded.
	ErrNoHandle = errors.New("no active handle")
)

// LoadError reports that a resource could not be initialised.
type LoadError struct {
	TrackID string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load track %q: %v", e.TrackID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SeekError reports a rejected position update.
type SeekError struct {
	Target time.Duration
	Err    error
}

func (e *SeekError) Error() string {
	return fmt.Sprintf("seek to %s: %v", e.Target, e.Err)
}

func (e *SeekError) Unwrap() error { return e.Err }
