package model

import "fmt"

// OutcomeKind is the terminal result of a deposit attempt.
type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota + 1
	OutcomeFailed
	OutcomeTimedOut
	OutcomeCancelled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unresolved"
	}
}

// Outcome is what depositForShares reports back to its caller.
type Outcome struct {
	Kind OutcomeKind
	// Hash is empty when the attempt never reached submission.
	Hash    string
	Err     error
	Failure *StructuredError
}

// Reason returns a human readable explanation of a non-success outcome.
func (o Outcome) Reason() string {
	switch o.Kind {
	case OutcomeSucceeded:
		return ""
	case OutcomeCancelled:
		return "transaction cancelled"
	}
	reason := o.Kind.String()
	if o.Err != nil {
		reason = o.Err.Error()
	}
	if o.Hash != "" {
		reason = fmt.Sprintf("%s (hash %s)", reason, o.Hash)
	}
	return reason
}
