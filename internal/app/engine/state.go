package engine

// State represents the engine lifecycle state.
type State int

const (
	StateIdle     State = iota // No handle
	StateLoading               // Load in flight
	StatePlaying               // Handle playing
	StatePaused                // Handle paused
	StateFinished              // Handle reached its end
	StateStopped               // Handle being torn down by Stop
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateFinished:
		return "finished"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
