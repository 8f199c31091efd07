package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"lpdeposit/internal/model"
)

const (
	defaultPollInterval    = 6 * time.Second
	defaultMaxPollAttempts = 30
	defaultPollTimeout     = 3 * time.Minute
)

// Simulator dry-runs a transaction.
type Simulator interface {
	SimulateTransaction(ctx context.Context, tx model.UnsignedTx) (model.SimulationResult, error)
}

// Confirmer asks the operator whether to proceed. A false answer cancels the
// attempt. An error fails it, unless it is the context's own cancellation,
// which counts as the operator backing out.
type Confirmer interface {
	Confirm(ctx context.Context, summary Summary) (bool, error)
}

// Signer produces the submittable envelope for an assembled transaction.
type Signer interface {
	Sign(ctx context.Context, tx model.UnsignedTx) ([]byte, error)
}

// Submitter sends a signed envelope to the network.
type Submitter interface {
	SendTransaction(ctx context.Context, envelope []byte) (model.SendResult, error)
}

// StatusPoller looks up a submitted transaction.
type StatusPoller interface {
	GetTransaction(ctx context.Context, hash string) (model.TxStatus, error)
}

// FailureDecoder classifies raw ledger failures.
type FailureDecoder interface {
	Decode(raw model.RawFailure) model.StructuredError
}

// Summary is what the operator confirms before signing.
type Summary struct {
	PoolID       string
	AssetA       string
	AssetB       string
	AssetAAmount *big.Int
	AssetBAmount *big.Int
	TargetShares *big.Int
	ResourceFee  int64
	Fee          uint32
}

// Config wires the collaborators and polling bounds of a controller.
type Config struct {
	Simulator Simulator
	Confirmer Confirmer
	Signer    Signer
	Submitter Submitter
	Poller    StatusPoller
	Decoder   FailureDecoder

	PollInterval    time.Duration
	MaxPollAttempts int
	PollTimeout     time.Duration
}

// Option customizes a controller.
type Option func(*Controller)

// WithWaiter replaces the wait used between polls.
func WithWaiter(w Waiter) Option {
	return func(c *Controller) {
		if w != nil {
			c.wait = w
		}
	}
}

// WithObserver registers a callback for lifecycle events.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		c.observer = o
	}
}

// Controller drives one deposit transaction at a time from simulation to a
// terminal outcome.
type Controller struct {
	cfg      Config
	logger   *zap.Logger
	wait     Waiter
	observer Observer

	runMu sync.Mutex
	mu    sync.Mutex
	state State
}

// NewController creates a lifecycle controller.
func NewController(cfg Config, logger *zap.Logger, opts ...Option) (*Controller, error) {
	if cfg.Simulator == nil || cfg.Confirmer == nil || cfg.Signer == nil || cfg.Submitter == nil || cfg.Poller == nil {
		return nil, fmt.Errorf("lifecycle: simulator, confirmer, signer, submitter and poller are required")
	}
	if cfg.Decoder == nil {
		cfg.Decoder = unknownDecoder{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = defaultMaxPollAttempts
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{cfg: cfg, logger: logger, wait: sleep}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State returns the state of the current or last attempt.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run drives req's transaction through simulate, confirm, sign, submit and
// poll. It always returns a terminal outcome.
func (c *Controller) Run(ctx context.Context, req model.DepositRequest, tx model.UnsignedTx) model.Outcome {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.mu.Lock()
	c.state = StateBuilt
	c.mu.Unlock()

	logger := c.logger.With(zap.String("pool", req.PoolID), zap.String("initiator", req.Initiator))

	sim, err := c.cfg.Simulator.SimulateTransaction(ctx, tx)
	if err != nil {
		return c.resolve(logger, StateFailed, model.Outcome{
			Kind: model.OutcomeFailed,
			Err:  &model.RejectionError{Reason: model.ErrSimulationRejected, Cause: err},
		})
	}
	if sim.Failed() {
		return c.resolve(logger, StateFailed, model.Outcome{
			Kind: model.OutcomeFailed,
			Err:  &model.RejectionError{Reason: model.ErrSimulationRejected, Diagnostic: sim.Error},
		})
	}

	assembled := tx.Assemble(sim)
	c.advance(StateSimulated)
	summary := Summary{
		PoolID:       req.PoolID,
		AssetA:       req.AssetA,
		AssetB:       req.AssetB,
		AssetAAmount: new(big.Int).Set(req.ReserveALimit),
		AssetBAmount: new(big.Int).Set(req.ReserveBLimit),
		TargetShares: new(big.Int).Set(req.TargetShares),
		ResourceFee:  sim.MinResourceFee,
		Fee:          assembled.Fee,
	}
	logger.Info("simulation succeeded",
		zap.Int64("resource_fee", sim.MinResourceFee),
		zap.Uint32("latest_ledger", sim.LatestLedger),
	)
	c.emit(Event{Kind: EventEstimated, State: StateSimulated, Summary: &summary})

	c.advance(StateAwaitingConfirmation)
	ok, err := c.cfg.Confirmer.Confirm(ctx, summary)
	switch {
	case err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()):
		return c.resolve(logger, StateCancelled, model.Outcome{
			Kind: model.OutcomeCancelled,
			Err:  fmt.Errorf("%w: %v", model.ErrCancelled, err),
		})
	case err != nil:
		return c.resolve(logger, StateFailed, model.Outcome{Kind: model.OutcomeFailed, Err: fmt.Errorf("confirm: %w", err)})
	case !ok:
		return c.resolve(logger, StateCancelled, model.Outcome{Kind: model.OutcomeCancelled, Err: model.ErrCancelled})
	}

	envelope, err := c.cfg.Signer.Sign(ctx, assembled)
	if err != nil {
		return c.resolve(logger, StateFailed, model.Outcome{Kind: model.OutcomeFailed, Err: err})
	}
	c.advance(StateSigned)

	sent, err := c.cfg.Submitter.SendTransaction(ctx, envelope)
	if err != nil {
		return c.resolve(logger, StateFailed, model.Outcome{
			Kind: model.OutcomeFailed,
			Err:  &model.RejectionError{Reason: model.ErrSubmissionRejected, Cause: err},
		})
	}
	switch sent.Status {
	case model.SendPending, model.SendDuplicate:
	default:
		return c.resolve(logger, StateFailed, c.rejected(sent))
	}

	c.advance(StateSubmitted)
	logger.Info("transaction submitted", zap.String("hash", sent.Hash), zap.String("status", sent.Status))
	return c.poll(ctx, logger, sent.Hash)
}

// Track resumes polling for a transaction submitted by an earlier attempt.
func (c *Controller) Track(ctx context.Context, hash string) model.Outcome {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.mu.Lock()
	c.state = StateSubmitted
	c.mu.Unlock()

	return c.poll(ctx, c.logger, hash)
}

func (c *Controller) rejected(sent model.SendResult) model.Outcome {
	diagnostic := sent.Status
	if len(sent.ErrorResult) > 0 {
		diagnostic = fmt.Sprintf("%s: %s", sent.Status, sent.ErrorResult)
	}
	outcome := model.Outcome{
		Kind: model.OutcomeFailed,
		Hash: sent.Hash,
		Err:  &model.RejectionError{Reason: model.ErrSubmissionRejected, Diagnostic: diagnostic},
	}
	if sent.Failure.Type != "" {
		failure := c.cfg.Decoder.Decode(sent.Failure)
		outcome.Failure = &failure
	}
	return outcome
}

func (c *Controller) poll(ctx context.Context, logger *zap.Logger, hash string) model.Outcome {
	c.advance(StatePolling)

	pollCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxPollAttempts; attempt++ {
		if err := c.wait(pollCtx, c.cfg.PollInterval); err != nil {
			lastErr = err
			break
		}

		status, err := c.cfg.Poller.GetTransaction(pollCtx, hash)
		if err != nil {
			if pollCtx.Err() != nil {
				lastErr = pollCtx.Err()
				break
			}
			lastErr = err
			logger.Warn("poll transaction failed", zap.String("hash", hash), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		switch status.Status {
		case model.TxNotFound:
			logger.Debug("transaction not found yet", zap.String("hash", hash), zap.Int("attempt", attempt))
			continue
		case model.TxSuccess:
			return c.resolve(logger, StateSucceeded, model.Outcome{Kind: model.OutcomeSucceeded, Hash: hash})
		default:
			failure := c.cfg.Decoder.Decode(status.Failure)
			return c.resolve(logger, StateFailed, model.Outcome{
				Kind:    model.OutcomeFailed,
				Hash:    hash,
				Err:     &model.ExecutionFailedError{Failure: failure},
				Failure: &failure,
			})
		}
	}

	err := fmt.Errorf("%w after %d attempts", model.ErrPollingTimedOut, c.cfg.MaxPollAttempts)
	if lastErr != nil {
		err = fmt.Errorf("%w: %v", model.ErrPollingTimedOut, lastErr)
	}
	return c.resolve(logger, StateTimedOut, model.Outcome{Kind: model.OutcomeTimedOut, Hash: hash, Err: err})
}

func (c *Controller) advance(to State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !CanTransition(c.state, to) {
		c.logger.Error("illegal lifecycle transition", zap.Stringer("from", c.state), zap.Stringer("to", to))
		return
	}
	c.state = to
}

func (c *Controller) resolve(logger *zap.Logger, to State, outcome model.Outcome) model.Outcome {
	c.advance(to)

	fields := []zap.Field{zap.Stringer("outcome", outcome.Kind)}
	if outcome.Hash != "" {
		fields = append(fields, zap.String("hash", outcome.Hash))
	}
	switch {
	case outcome.Kind == model.OutcomeSucceeded:
		logger.Info("transaction succeeded", fields...)
	case errors.Is(outcome.Err, model.ErrCancelled):
		logger.Info("transaction cancelled", fields...)
	default:
		logger.Warn("transaction not completed", append(fields, zap.String("reason", outcome.Reason()))...)
	}

	c.emit(Event{Kind: EventResolved, State: to, Outcome: &outcome})
	return outcome
}

func (c *Controller) emit(ev Event) {
	if c.observer != nil {
		c.observer(ev)
	}
}

type unknownDecoder struct{}

func (unknownDecoder) Decode(raw model.RawFailure) model.StructuredError {
	return model.StructuredError{Kind: model.KindUnknown, RawCode: raw.Code, Message: string(raw.Detail)}
}
