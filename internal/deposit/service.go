package deposit

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lpdeposit/internal/model"
	"lpdeposit/internal/pool"
	"lpdeposit/internal/storage"
)

// SnapshotLoader reads the current pool state.
type SnapshotLoader interface {
	Load(ctx context.Context, poolID, assetAID, assetBID string) (model.PoolSnapshot, error)
}

// AccountSource returns the initiator's account and sequence number.
type AccountSource interface {
	GetAccount(ctx context.Context, id string) (model.Account, error)
}

// Lifecycle drives a built transaction to a terminal outcome.
type Lifecycle interface {
	Run(ctx context.Context, req model.DepositRequest, tx model.UnsignedTx) model.Outcome
	Track(ctx context.Context, hash string) model.Outcome
}

// Locker serializes attempts from one initiator.
type Locker interface {
	Acquire(ctx context.Context, initiator string) (func(context.Context) error, error)
}

// PendingTracker remembers submissions whose outcome is still unknown, keyed
// by attempt ID.
type PendingTracker interface {
	List() ([]storage.Pending, error)
	Add(entry storage.Pending) error
	Resolve(attemptID string) error
}

// Config holds the deposit service settings.
type Config struct {
	Tx           TxParams
	QuoteWeight  decimal.Decimal
	MaxRetries   int
	RetryBackoff time.Duration
}

// Deps are the collaborators of a Service. Journal, Locker and Pending are optional.
type Deps struct {
	Loader    SnapshotLoader
	Accounts  AccountSource
	Lifecycle Lifecycle
	Journal   storage.AttemptSink
	Locker    Locker
	Pending   PendingTracker
}

// DepositParams describe one depositForShares call.
type DepositParams struct {
	PoolID       string
	AssetAID     string
	AssetBID     string
	TargetShares *big.Int
	Slippage     decimal.Decimal
	Initiator    string
}

// Preview is everything known about a deposit before anything is signed.
type Preview struct {
	Snapshot model.PoolSnapshot
	Estimate model.JoinEstimate
	Request  model.DepositRequest
	Quote    model.PoolQuote
}

// Service implements depositForShares.
type Service struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewService creates a deposit service.
func NewService(cfg Config, deps Deps, logger *zap.Logger) (*Service, error) {
	if deps.Loader == nil || deps.Accounts == nil || deps.Lifecycle == nil {
		return nil, fmt.Errorf("deposit: loader, accounts and lifecycle are required")
	}
	if cfg.QuoteWeight.Sign() <= 0 {
		cfg.QuoteWeight = decimal.RequireFromString("0.2")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cfg: cfg, deps: deps, logger: logger, now: time.Now, newID: uuid.NewString}, nil
}

// Preview loads a fresh snapshot and computes the estimate and request for params.
func (s *Service) Preview(ctx context.Context, params DepositParams) (Preview, error) {
	if err := validateParams(params); err != nil {
		return Preview{}, err
	}

	snapshot, err := s.deps.Loader.Load(ctx, params.PoolID, params.AssetAID, params.AssetBID)
	if err != nil {
		return Preview{}, fmt.Errorf("load snapshot: %w", err)
	}
	estimate, err := pool.EstimateJoin(snapshot, params.TargetShares, params.Slippage)
	if err != nil {
		return Preview{}, fmt.Errorf("estimate join: %w", err)
	}
	if estimate.LargeSlippage {
		s.logger.Warn("large slippage tolerance", zap.String("slippage", params.Slippage.String()))
	}
	req, err := BuildRequest(snapshot, params.TargetShares, estimate, params.Initiator)
	if err != nil {
		return Preview{}, fmt.Errorf("build request: %w", err)
	}
	quote, err := pool.Quote(snapshot, s.cfg.QuoteWeight)
	if err != nil {
		return Preview{}, fmt.Errorf("quote pool: %w", err)
	}
	return Preview{Snapshot: snapshot, Estimate: estimate, Request: req, Quote: quote}, nil
}

// DepositForShares mints exactly params.TargetShares pool shares, spending no
// more than the estimated reserve limits. Validation problems are returned as
// errors; everything after the transaction is built is reported as an Outcome.
func (s *Service) DepositForShares(ctx context.Context, params DepositParams) (model.Outcome, error) {
	if err := validateParams(params); err != nil {
		return model.Outcome{}, err
	}

	if s.deps.Locker != nil {
		release, err := s.deps.Locker.Acquire(ctx, params.Initiator)
		if err != nil {
			return model.Outcome{}, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release initiator lock", zap.Error(err))
			}
		}()
	}

	preview, err := s.Preview(ctx, params)
	if err != nil {
		return model.Outcome{}, err
	}
	req := preview.Request

	s.logger.Info("deposit estimated",
		zap.String("pool", req.PoolID),
		zap.String("target_shares", FormatAmount(req.TargetShares)),
		zap.String("max_a", FormatAmount(req.ReserveALimit)),
		zap.String("max_b", FormatAmount(req.ReserveBLimit)),
		zap.String("share_price", preview.Quote.SharePrice.StringFixed(AmountDecimals)),
	)

	account, err := s.loadAccount(ctx, params.Initiator)
	if err != nil {
		return model.Outcome{}, fmt.Errorf("load account: %w", err)
	}

	tx, err := NewTransaction(req, account, s.cfg.Tx, s.now())
	if err != nil {
		return model.Outcome{}, fmt.Errorf("build transaction: %w", err)
	}

	record := model.AttemptRecord{
		ID:            s.newID(),
		PoolID:        req.PoolID,
		Initiator:     req.Initiator,
		TargetShares:  req.TargetShares.String(),
		ReserveALimit: req.ReserveALimit.String(),
		ReserveBLimit: req.ReserveBLimit.String(),
		State:         "built",
		CreatedAt:     s.now().UTC(),
	}
	s.journal(ctx, record)

	outcome := s.deps.Lifecycle.Run(ctx, req, tx)
	s.settle(ctx, record, outcome)
	return outcome, nil
}

// Resumed is the result of following up one pending submission.
type Resumed struct {
	Pending storage.Pending
	Outcome model.Outcome
}

// Resume keeps polling every submission that earlier timed out, oldest first,
// and journals each result. Nothing pending yields an empty slice.
func (s *Service) Resume(ctx context.Context, source storage.AttemptSource) ([]Resumed, error) {
	if s.deps.Pending == nil {
		return nil, nil
	}
	entries, err := s.deps.Pending.List()
	if err != nil {
		return nil, fmt.Errorf("load pending: %w", err)
	}

	var results []Resumed
	for _, pending := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		record, err := s.pendingRecord(ctx, source, pending)
		if err != nil {
			return results, err
		}

		s.logger.Info("resuming pending deposit", zap.String("attempt", pending.AttemptID), zap.String("hash", pending.Hash))
		outcome := s.deps.Lifecycle.Track(ctx, pending.Hash)
		s.settle(ctx, record, outcome)
		results = append(results, Resumed{Pending: pending, Outcome: outcome})
	}
	return results, nil
}

func (s *Service) pendingRecord(ctx context.Context, source storage.AttemptSource, pending storage.Pending) (model.AttemptRecord, error) {
	record := model.AttemptRecord{
		ID:        pending.AttemptID,
		Initiator: pending.Initiator,
		Hash:      pending.Hash,
		CreatedAt: pending.SubmittedAt,
	}
	if source == nil {
		return record, nil
	}
	attempts, err := source.ListAttempts(ctx, storage.AttemptFilter{Initiator: pending.Initiator})
	if err != nil {
		return model.AttemptRecord{}, fmt.Errorf("load journal: %w", err)
	}
	for _, a := range attempts {
		if a.ID == pending.AttemptID {
			return a, nil
		}
	}
	return record, nil
}

func (s *Service) settle(ctx context.Context, record model.AttemptRecord, outcome model.Outcome) {
	resolvedAt := s.now().UTC()
	record.State = outcome.Kind.String()
	record.Outcome = outcome.Kind.String()
	record.ResolvedAt = &resolvedAt
	if outcome.Hash != "" {
		record.Hash = outcome.Hash
	}
	record.Message = outcome.Reason()
	if outcome.Failure != nil {
		code := outcome.Failure.RawCode
		record.ErrorKind = outcome.Failure.Kind.String()
		record.RawCode = &code
		record.Message = outcome.Failure.Message
	}
	s.journal(ctx, record)

	if s.deps.Pending == nil {
		return
	}
	var err error
	if outcome.Kind == model.OutcomeTimedOut && outcome.Hash != "" {
		submittedAt := record.CreatedAt
		if submittedAt.IsZero() {
			submittedAt = resolvedAt
		}
		err = s.deps.Pending.Add(storage.Pending{
			AttemptID:   record.ID,
			Hash:        outcome.Hash,
			Initiator:   record.Initiator,
			SubmittedAt: submittedAt,
		})
	} else {
		err = s.deps.Pending.Resolve(record.ID)
	}
	if err != nil {
		s.logger.Warn("update pending submission", zap.Error(err))
	}
}

func (s *Service) journal(ctx context.Context, record model.AttemptRecord) {
	if s.deps.Journal == nil {
		return
	}
	if err := s.deps.Journal.PutAttempt(context.WithoutCancel(ctx), record); err != nil {
		s.logger.Warn("journal attempt", zap.String("attempt", record.ID), zap.Error(err))
	}
}

func validateParams(params DepositParams) error {
	if params.PoolID == "" || params.AssetAID == "" || params.AssetBID == "" {
		return fmt.Errorf("pool and asset ids are required")
	}
	if params.AssetAID == params.AssetBID {
		return fmt.Errorf("assets must differ")
	}
	if params.Initiator == "" {
		return fmt.Errorf("initiator is required")
	}
	if params.TargetShares == nil || params.TargetShares.Sign() <= 0 {
		return fmt.Errorf("%w: target shares must be positive", model.ErrInvalidAmount)
	}
	return nil
}

// IsValidationError reports whether err is one of the errors returned before
// a transaction is built.
func IsValidationError(err error) bool {
	return errors.Is(err, model.ErrDataUnavailable) ||
		errors.Is(err, model.ErrEmptyPool) ||
		errors.Is(err, model.ErrInvalidSlippage) ||
		errors.Is(err, model.ErrInvalidAmount)
}
