package pdnd

// State is the lifecycle state of a [Client].
//
// The flow is:
//
//	Unconfigured → Configured → Dispatching → Configured
//
// A client becomes Configured the first time it receives a setting, either
// through [ClientConfig] or a setter. Each call moves it to Dispatching for
// its duration.
type State string

const (
	// StateUnconfigured is the state of a client built from an empty
	// ClientConfig before any setter has been called.
	StateUnconfigured State = "unconfigured"

	// StateConfigured indicates the client holds settings and is idle.
	StateConfigured State = "configured"

	// StateDispatching indicates a request is in flight.
	StateDispatching State = "dispatching"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool {
	switch s {
	case StateUnconfigured, StateConfigured, StateDispatching:
		return true
	default:
		return false
	}
}

// validTransitions defines the allowed state transitions.
//
//	Unconfigured → Configured
//	Configured   → Dispatching
//	Dispatching  → Configured
var validTransitions = map[State][]State{
	StateUnconfigured: {StateConfigured},
	StateConfigured:   {StateDispatching},
	StateDispatching:  {StateConfigured},
}

// ValidTransition reports whether moving from one state to another is
// allowed. Same-state transitions are rejected.
func ValidTransition(from, to State) bool {
	if from == to {
		return false
	}
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
