package call

// State is the lifecycle state of a Session.
type State int

const (
	// StateConnecting means initialization is in progress.
	StateConnecting State = iota

	// StateConnected means the session joined and published.
	StateConnected

	// StateFailed means initialization failed. The error is kept.
	StateFailed

	// StateClosed means the session was torn down.
	StateClosed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateFailed:
		return "Failed"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// IsActive returns true while the session holds SDK resources.
func (s State) IsActive() bool {
	return s == StateConnecting || s == StateConnected
}
