package orchestrator

// State is the orchestrator's view of the local client's session lifecycle.
type State int

const (
	// StateIdle means no session exists and no request is in flight.
	StateIdle State = iota
	// StateHosting means a create request awaits its completion.
	StateHosting
	// StateSearching means a search awaits its completion.
	StateSearching
	// StateJoining means a join request awaits its completion.
	StateJoining
	// StateInSession means the client holds a session and has left the menu.
	StateInSession
	// StateTearingDown means a destroy request awaits its completion.
	StateTearingDown
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHosting:
		return "hosting"
	case StateSearching:
		return "searching"
	case StateJoining:
		return "joining"
	case StateInSession:
		return "in_session"
	case StateTearingDown:
		return "tearing_down"
	default:
		return "unknown"
	}
}
