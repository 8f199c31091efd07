package lifecycle

import "lpdeposit/internal/model"

// EventKind identifies a lifecycle notification.
type EventKind int

const (
	// EventEstimated fires once when simulation succeeds.
	EventEstimated EventKind = iota + 1
	// EventResolved fires once when the attempt reaches a terminal state.
	EventResolved
)

func (k EventKind) String() string {
	switch k {
	case EventEstimated:
		return "estimated"
	case EventResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Event is delivered to an Observer.
type Event struct {
	Kind    EventKind
	State   State
	Summary *Summary
	Outcome *model.Outcome
}

// Observer receives lifecycle events synchronously.
type Observer func(Event)
