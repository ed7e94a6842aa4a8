package bot

// State is the lifecycle state of a Host.
type State int

const (
	StateNotStarted State = iota
	StateValidating
	StateConnected
	StateRunning
	StateStopping
	StateStopped
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateValidating:
		return "Validating"
	case StateConnected:
		return "Connected"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// startable reports whether Start may begin a new session from s.
func (s State) startable() bool {
	return s == StateNotStarted || s == StateStopped || s == StateRejected
}
