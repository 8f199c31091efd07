package deposit

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"lpdeposit/internal/model"
)

const defaultRetryBackoff = 100 * time.Millisecond

// loadAccount fetches the initiator's sequence number, retrying transport
// failures with exponential backoff. A missing account is never retried.
func (s *Service) loadAccount(ctx context.Context, initiator string) (model.Account, error) {
	maxRetries := s.cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := s.cfg.RetryBackoff
	if delay <= 0 {
		delay = defaultRetryBackoff
	}

	for attempt := 1; ; attempt++ {
		account, err := s.deps.Accounts.GetAccount(ctx, initiator)
		if err == nil {
			return account, nil
		}
		if !retryableAccountError(ctx, err) || attempt > maxRetries {
			return model.Account{}, err
		}
		s.logger.Warn("account lookup failed",
			zap.String("initiator", initiator),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return model.Account{}, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

func retryableAccountError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, model.ErrAccountNotFound) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
