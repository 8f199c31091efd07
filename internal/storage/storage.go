package storage

import (
	"context"
	"errors"

	"lpdeposit/internal/model"
)

// AttemptSink records deposit attempts. A record is written when an attempt
// starts and again when it resolves; later writes replace earlier ones.
type AttemptSink interface {
	PutAttempt(ctx context.Context, record model.AttemptRecord) error
}

// AttemptSource lists journaled attempts, newest first.
type AttemptSource interface {
	ListAttempts(ctx context.Context, filter AttemptFilter) ([]model.AttemptRecord, error)
}

// AttemptFilter narrows ListAttempts. Empty fields match everything.
type AttemptFilter struct {
	Initiator string
	PoolID    string
	Outcome   string
	Limit     int
}

// Match reports whether record passes the filter.
func (f AttemptFilter) Match(record model.AttemptRecord) bool {
	if f.Initiator != "" && record.Initiator != f.Initiator {
		return false
	}
	if f.PoolID != "" && record.PoolID != f.PoolID {
		return false
	}
	if f.Outcome != "" && record.Outcome != f.Outcome {
		return false
	}
	return true
}

type fanout []AttemptSink

// Fanout writes every record to all sinks, reporting every failure.
func Fanout(sinks ...AttemptSink) AttemptSink {
	out := make(fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (f fanout) PutAttempt(ctx context.Context, record model.AttemptRecord) error {
	var errs []error
	for _, sink := range f {
		if err := sink.PutAttempt(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
