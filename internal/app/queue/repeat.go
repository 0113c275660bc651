package queue

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// RepeatMode represents the repeat policy.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota // Advance through the queue and stop at the end
	RepeatOne                   // Replay the current track when it finishes
)

// String returns the wire form of the repeat mode.
func (r RepeatMode) String() string {
	switch r {
	case RepeatOff:
		return "off"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// ParseRepeatMode parses "off" or "one" (case-insensitive).
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return RepeatOff, nil
	case "one":
		return RepeatOne, nil
	default:
		return RepeatOff, errors.Newf("unknown repeat mode: %q", s)
	}
}
