package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lpdeposit/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSimulator struct {
	result model.SimulationResult
	err    error
	calls  int
}

func (f *fakeSimulator) SimulateTransaction(ctx context.Context, tx model.UnsignedTx) (model.SimulationResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeConfirmer struct {
	answer  bool
	err     error
	summary Summary
}

func (f *fakeConfirmer) Confirm(ctx context.Context, summary Summary) (bool, error) {
	f.summary = summary
	return f.answer, f.err
}

type fakeSigner struct {
	err    error
	signed model.UnsignedTx
}

func (f *fakeSigner) Sign(ctx context.Context, tx model.UnsignedTx) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.signed = tx
	return tx.Encode()
}

type fakeSubmitter struct {
	result model.SendResult
	err    error
	calls  int
}

func (f *fakeSubmitter) SendTransaction(ctx context.Context, envelope []byte) (model.SendResult, error) {
	f.calls++
	return f.result, f.err
}

type fakePoller struct {
	mu       sync.Mutex
	statuses []model.TxStatus
	errs     []error
	calls    int
}

func (f *fakePoller) GetTransaction(ctx context.Context, hash string) (model.TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return model.TxStatus{}, f.errs[i]
	}
	if i < len(f.statuses) {
		return f.statuses[i], nil
	}
	return model.TxStatus{Status: model.TxNotFound}, nil
}

type fakeDecoder struct{}

func (fakeDecoder) Decode(raw model.RawFailure) model.StructuredError {
	kind := model.KindUnknown
	if raw.Type == model.FailureTransaction && raw.Code == -5 {
		kind = model.KindBadSequence
	}
	return model.StructuredError{Kind: kind, RawCode: raw.Code, Message: raw.Category}
}

type harness struct {
	sim       *fakeSimulator
	confirmer *fakeConfirmer
	signer    *fakeSigner
	submitter *fakeSubmitter
	poller    *fakePoller
	events    []Event
	waits     int
}

const testHash = "abababababababababababababababababababababababababababababababab"

func newHarness() *harness {
	return &harness{
		sim:       &fakeSimulator{result: model.SimulationResult{MinResourceFee: 500, TransactionData: json.RawMessage(`{"resources":{}}`)}},
		confirmer: &fakeConfirmer{answer: true},
		signer:    &fakeSigner{},
		submitter: &fakeSubmitter{result: model.SendResult{Hash: testHash, Status: model.SendPending}},
		poller:    &fakePoller{},
	}
}

func (h *harness) controller(t *testing.T, maxAttempts int) *Controller {
	t.Helper()
	c, err := NewController(Config{
		Simulator:       h.sim,
		Confirmer:       h.confirmer,
		Signer:          h.signer,
		Submitter:       h.submitter,
		Poller:          h.poller,
		Decoder:         fakeDecoder{},
		MaxPollAttempts: maxAttempts,
	}, nil,
		WithWaiter(func(ctx context.Context, d time.Duration) error {
			h.waits++
			return ctx.Err()
		}),
		WithObserver(func(ev Event) { h.events = append(h.events, ev) }),
	)
	require.NoError(t, err)
	return c
}

func (h *harness) count(kind EventKind) int {
	n := 0
	for _, ev := range h.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func testRequest() (model.DepositRequest, model.UnsignedTx) {
	req := model.DepositRequest{
		PoolID:        "CPOOL",
		AssetA:        "CTOKENA",
		AssetB:        "CTOKENB",
		TargetShares:  big.NewInt(1_000),
		ReserveALimit: big.NewInt(2_020),
		ReserveBLimit: big.NewInt(4_040),
		Initiator:     "GABC",
	}
	tx := model.UnsignedTx{Source: "GABC", Sequence: 8, Fee: 100, Operation: model.Invocation{Contract: "CPOOL", Function: "join_pool"}}
	return req, tx
}

func TestRunSucceeds(t *testing.T) {
	h := newHarness()
	h.poller.statuses = []model.TxStatus{{Status: model.TxNotFound}, {Status: model.TxNotFound}, {Status: model.TxSuccess, Ledger: 10}}
	c := h.controller(t, 5)

	req, tx := testRequest()
	outcome := c.Run(context.Background(), req, tx)

	require.Equal(t, model.OutcomeSucceeded, outcome.Kind)
	require.Equal(t, testHash, outcome.Hash)
	require.NoError(t, outcome.Err)
	require.Equal(t, StateSucceeded, c.State())
	require.Equal(t, 3, h.poller.calls)
	require.Equal(t, 3, h.waits)
	require.Equal(t, 1, h.count(EventEstimated))
	require.Equal(t, 1, h.count(EventResolved))

	require.Equal(t, int64(2_020), h.confirmer.summary.AssetAAmount.Int64())
	require.Equal(t, int64(4_040), h.confirmer.summary.AssetBAmount.Int64())
	require.Equal(t, int64(500), h.confirmer.summary.ResourceFee)
	require.Equal(t, uint32(600), h.signer.signed.Fee)
	require.JSONEq(t, `{"resources":{}}`, string(h.signer.signed.SorobanData))
}

func TestRunSimulationFailureNeverSubmits(t *testing.T) {
	for name, sim := range map[string]*fakeSimulator{
		"rejected":  {result: model.SimulationResult{Error: "HostError: Error(Contract, #13)"}},
		"transport": {err: errors.New("dial tcp: connection refused")},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness()
			h.sim = sim
			c := h.controller(t, 5)

			req, tx := testRequest()
			outcome := c.Run(context.Background(), req, tx)

			require.Equal(t, model.OutcomeFailed, outcome.Kind)
			require.ErrorIs(t, outcome.Err, model.ErrSimulationRejected)
			require.Equal(t, 1, sim.calls)
			require.Zero(t, h.submitter.calls)
			require.Zero(t, h.poller.calls)
			require.Equal(t, StateFailed, c.State())
			require.Zero(t, h.count(EventEstimated))
			require.Equal(t, 1, h.count(EventResolved))
		})
	}
}

func TestRunSimulationDiagnosticSurfaced(t *testing.T) {
	h := newHarness()
	h.sim.result = model.SimulationResult{Error: "HostError: Error(Contract, #13)"}
	c := h.controller(t, 5)

	req, tx := testRequest()
	outcome := c.Run(context.Background(), req, tx)
	require.Contains(t, outcome.Reason(), "Error(Contract, #13)")
}

func TestRunDeclinedIsCancelled(t *testing.T) {
	h := newHarness()
	h.confirmer.answer = false
	c := h.controller(t, 5)

	req, tx := testRequest()
	outcome := c.Run(context.Background(), req, tx)

	require.Equal(t, model.OutcomeCancelled, outcome.Kind)
	require.ErrorIs(t, outcome.Err, model.ErrCancelled)
	require.Equal(t, StateCancelled, c.State())
	require.Zero(t, h.submitter.calls)
	require.Equal(t, "transaction cancelled", outcome.Reason())
}

func TestRunConfirmerErrorFails(t *testing.T) {
	errClosed := errors.New("read answer: EOF")
	h := newHarness()
	h.confirmer.err = errClosed
	c := h.controller(t, 5)

	req, tx := testRequest()
	outcome := c.Run(context.Background(), req, tx)

	require.Equal(t, model.OutcomeFailed, outcome.Kind)
	require.ErrorIs(t, outcome.Err, errClosed)
	require.NotErrorIs(t, outcome.Err, model.ErrCancelled)
	require.Equal(t, StateFailed, c.State())
	require.Empty(t, h.signer.signed.Source)
	require.Zero(t, h.submitter.calls)
}

func TestRunContextCancelledWhileConfirmingIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := newHarness()
	h.confirmer.err = ctx.Err()
	c := h.controller(t, 5)

	req, tx := testRequest()
	outcome := c.Run(ctx, req, tx)

	require.Equal(t, model.OutcomeCancelled, outcome.Kind)
	require.ErrorIs(t, outcome.Err, model.ErrCancelled)
	require.Equal(t, StateCancelled, c.State())
	require.Zero(t, h.submitter.calls)
}

func TestRunSignerErrorSurfacedUnmodified(t *testing.T) {
	errLocked := errors.New("key locked")
	h := newHarness()
	h.signer.err = errLocked
	c := h.controller(t, 5)

	req, tx := testRequest()
	outcome := c.Run(context.Background(), req, tx)

	require.Equal(t, model.OutcomeFailed, outcome.Kind)
	require.Same(t, errLocked, outcome.Err)
	require.Zero(t, h.submitter.calls)
}

func TestRunSubmissionRejected(t *testing.T) {
	for _, status := range []string{model.SendError, model.SendTryAgainLater} {
		t.Run(status, func(t *testing.T) {
			h := newHarness()
			h.submitter.result = model.SendResult{
				Hash:        testHash,
				Status:      status,
				ErrorResult: json.RawMessage(`{"result":"tx_bad_seq"}`),
			}
			if status == model.SendError {
				h.submitter.result.Failure = model.RawFailure{Type: model.FailureTransaction, Code: -5, Category: "tx_bad_seq"}
			}
			c := h.controller(t, 5)

			req, tx := testRequest()
			outcome := c.Run(context.Background(), req, tx)

			require.Equal(t, model.OutcomeFailed, outcome.Kind)
			require.ErrorIs(t, outcome.Err, model.ErrSubmissionRejected)
			require.Contains(t, outcome.Reason(), "tx_bad_seq")
			require.Zero(t, h.poller.calls)
			require.Equal(t, 1, h.submitter.calls)
			if status == model.SendError {
				require.NotNil(t, outcome.Failure)
				require.Equal(t, model.KindBadSequence, outcome.Failure.Kind)
			}
		})
	}
}

func TestRunSubmissionTransportError(t *testing.T) {
	errDown := errors.New("gateway down")
	h := newHarness()
	h.submitter.err = errDown
	c := h.controller(t, 5)

	req, tx := testRequest()
	outcome := c.Run(context.Background(), req, tx)

	require.ErrorIs(t, outcome.Err, model.ErrSubmissionRejected)
	require.ErrorIs(t, outcome.Err, errDown)
	require.Equal(t, 1, h.submitter.calls)
}

func TestRunDuplicateProceedsToPolling(t *testing.T) {
	h := newHarness()
	h.submitter.result = model.SendResult{Hash: testHash, Status: model.SendDuplicate}
	h.poller.statuses = []model.TxStatus{{Status: model.TxSuccess}}
	c := h.controller(t, 5)

	req, tx := testRequest()
	outcome := c.Run(context.Background(), req, tx)
	require.Equal(t, model.OutcomeSucceeded, outcome.Kind)
	require.Equal(t, 1, h.poller.calls)
}

func TestRunExecutionFailure(t *testing.T) {
	h := newHarness()
	h.poller.statuses = []model.TxStatus{
		{Status: model.TxNotFound},
		{Status: model.TxFailed, Failure: model.RawFailure{Type: model.FailureTransaction, Code: -5, Category: "tx_bad_seq"}},
	}
	c := h.controller(t, 5)

	req, tx := testRequest()
	outcome := c.Run(context.Background(), req, tx)

	require.Equal(t, model.OutcomeFailed, outcome.Kind)
	var execErr *model.ExecutionFailedError
	require.ErrorAs(t, outcome.Err, &execErr)
	require.Equal(t, model.KindBadSequence, execErr.Failure.Kind)
	require.Equal(t, -5, outcome.Failure.RawCode)
	require.Contains(t, outcome.Reason(), testHash)
	require.Equal(t, 1, h.count(EventResolved))
}

func TestRunPollingBoundYieldsTimedOut(t *testing.T) {
	h := newHarness()
	c := h.controller(t, 4)

	req, tx := testRequest()
	outcome := c.Run(context.Background(), req, tx)

	require.Equal(t, model.OutcomeTimedOut, outcome.Kind)
	require.ErrorIs(t, outcome.Err, model.ErrPollingTimedOut)
	require.Equal(t, testHash, outcome.Hash)
	require.Nil(t, outcome.Failure)
	require.Equal(t, 4, h.poller.calls)
	require.Equal(t, StateTimedOut, c.State())
}

func TestRunPollingRetriesTransportErrors(t *testing.T) {
	h := newHarness()
	h.poller.errs = []error{errors.New("timeout"), errors.New("timeout")}
	h.poller.statuses = []model.TxStatus{{}, {}, {Status: model.TxSuccess}}
	c := h.controller(t, 5)

	req, tx := testRequest()
	outcome := c.Run(context.Background(), req, tx)
	require.Equal(t, model.OutcomeSucceeded, outcome.Kind)
	require.Equal(t, 3, h.poller.calls)
}

func TestRunPollingTransportErrorsExhaustBound(t *testing.T) {
	h := newHarness()
	h.poller.errs = []error{errors.New("timeout"), errors.New("timeout"), errors.New("timeout")}
	c := h.controller(t, 3)

	req, tx := testRequest()
	outcome := c.Run(context.Background(), req, tx)
	require.Equal(t, model.OutcomeTimedOut, outcome.Kind)
	require.Contains(t, outcome.Err.Error(), "timeout")
}

func TestRunContextCancelledWhilePolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness()
	c, err := NewController(Config{
		Simulator: h.sim,
		Confirmer: h.confirmer,
		Signer:    h.signer,
		Submitter: h.submitter,
		Poller:    h.poller,
	}, nil, WithWaiter(func(wctx context.Context, d time.Duration) error {
		h.waits++
		if h.waits == 2 {
			cancel()
		}
		return wctx.Err()
	}))
	require.NoError(t, err)

	req, tx := testRequest()
	outcome := c.Run(ctx, req, tx)
	require.Equal(t, model.OutcomeTimedOut, outcome.Kind)
	require.ErrorIs(t, outcome.Err, model.ErrPollingTimedOut)
	require.Equal(t, 1, h.poller.calls)
}

func TestRunRealWaiterHonoursPollTimeout(t *testing.T) {
	h := newHarness()
	c, err := NewController(Config{
		Simulator:       h.sim,
		Confirmer:       h.confirmer,
		Signer:          h.signer,
		Submitter:       h.submitter,
		Poller:          h.poller,
		PollInterval:    time.Millisecond,
		PollTimeout:     20 * time.Millisecond,
		MaxPollAttempts: 1_000_000,
	}, nil)
	require.NoError(t, err)

	req, tx := testRequest()
	outcome := c.Run(context.Background(), req, tx)
	require.Equal(t, model.OutcomeTimedOut, outcome.Kind)
}

func TestNewControllerRequiresCollaborators(t *testing.T) {
	_, err := NewController(Config{}, nil)
	require.Error(t, err)
}

func TestTransitions(t *testing.T) {
	require.True(t, CanTransition(StateBuilt, StateSimulated))
	require.True(t, CanTransition(StatePolling, StateTimedOut))
	require.False(t, CanTransition(StateBuilt, StateSubmitted))
	for _, terminal := range []State{StateSucceeded, StateFailed, StateTimedOut, StateCancelled} {
		require.True(t, terminal.Terminal())
		for next := StateBuilt; next <= StateCancelled; next++ {
			require.False(t, CanTransition(terminal, next), "%s -> %s", terminal, next)
		}
	}
}

func TestTrackResumesPolling(t *testing.T) {
	h := newHarness()
	h.poller.statuses = []model.TxStatus{{Status: model.TxNotFound}, {Status: model.TxSuccess}}
	c := h.controller(t, 5)

	outcome := c.Track(context.Background(), testHash)
	require.Equal(t, model.OutcomeSucceeded, outcome.Kind)
	require.Equal(t, testHash, outcome.Hash)
	require.Zero(t, h.sim.calls)
	require.Zero(t, h.submitter.calls)
	require.Equal(t, 1, h.count(EventResolved))
}
