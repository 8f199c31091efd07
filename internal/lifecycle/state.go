package lifecycle

// State is the position of an attempt in the transaction lifecycle.
type State int

const (
	StateBuilt State = iota
	StateSimulated
	StateAwaitingConfirmation
	StateSigned
	StateSubmitted
	StatePolling
	StateSucceeded
	StateFailed
	StateTimedOut
	StateCancelled
)

var stateNames = [...]string{
	StateBuilt:                "built",
	StateSimulated:            "simulated",
	StateAwaitingConfirmation: "awaiting_confirmation",
	StateSigned:               "signed",
	StateSubmitted:            "submitted",
	StatePolling:              "polling",
	StateSucceeded:            "succeeded",
	StateFailed:               "failed",
	StateTimedOut:             "timed_out",
	StateCancelled:            "cancelled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut, StateCancelled:
		return true
	default:
		return false
	}
}

var transitions = map[State][]State{
	StateBuilt:                {StateSimulated, StateFailed},
	StateSimulated:            {StateAwaitingConfirmation},
	StateAwaitingConfirmation: {StateSigned, StateCancelled, StateFailed},
	StateSigned:               {StateSubmitted, StateFailed},
	StateSubmitted:            {StatePolling},
	StatePolling:              {StateSucceeded, StateFailed, StateTimedOut},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
