package model

import (
	"errors"
	"fmt"
)

var (
	ErrDataUnavailable    = errors.New("pool data unavailable")
	ErrEmptyPool          = errors.New("pool has no outstanding shares")
	ErrInvalidSlippage    = errors.New("invalid slippage")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAccountNotFound    = errors.New("account not found")
	ErrSimulationRejected = errors.New("simulation rejected")
	ErrSubmissionRejected = errors.New("submission rejected")
	ErrPollingTimedOut    = errors.New("polling timed out")
	ErrCancelled          = errors.New("cancelled by operator")
)

// ExecutionFailedError reports a transaction that reached the ledger and failed.
type ExecutionFailedError struct {
	Failure StructuredError
}

func (e *ExecutionFailedError) Error() string {
	return fmt.Sprintf("execution failed: %s (code %d): %s", e.Failure.Kind, e.Failure.RawCode, e.Failure.Message)
}

// RejectionError carries the remote diagnostic of a simulation or submission rejection.
// Cause is set when the rejection came from the transport rather than the ledger.
type RejectionError struct {
	Reason     error
	Diagnostic string
	Cause      error
}

func (e *RejectionError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Reason, e.Cause)
	case e.Diagnostic == "":
		return e.Reason.Error()
	default:
		return fmt.Sprintf("%s: %s", e.Reason, e.Diagnostic)
	}
}

func (e *RejectionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Reason, e.Cause}
	}
	return []error{e.Reason}
}
