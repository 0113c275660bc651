package playback

import "github.com/osa030/feedplay/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted  EventType = iota // A track was loaded and started
	EventTrackFinished                  // The current track completed naturally
	EventStateChanged                   // Pause/resume or a policy flag changed
	EventStopped                        // Playback stopped and the queue was cleared
	EventLoadFailed                     // A track could not be loaded
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackFinished:
		return "track_finished"
	case EventStateChanged:
		return "state_changed"
	case EventStopped:
		return "stopped"
	case EventLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type       EventType
	Track      *track.Track // Track concerned (nil for some events)
	State      State        // Playback state after the event
	Generation uint64       // Engine generation the event belongs to
	Err        error        // Set for EventLoadFailed
}
