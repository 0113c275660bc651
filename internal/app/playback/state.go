// Package playback provides the shared playback state and the transport
// controller that is its only writer.
package playback

// State is the coarse playback state derived from a Snapshot.
type State int

const (
	StateIdle    State = iota // No current track
	StatePlaying              // Current track is playing
	StatePaused               // Current track is loaded but not playing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
