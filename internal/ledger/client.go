package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"lpdeposit/internal/model"
)

const xdrFormatJSON = "json"

// Client wraps the ledger gateway JSON-RPC API.
type Client struct {
	rpcClient *rpc.Client
}

// NewClient creates a new ledger client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return &Client{rpcClient: rpcClient}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// NetworkPassphrase returns the passphrase of the network the gateway serves.
func (c *Client) NetworkPassphrase(ctx context.Context) (string, error) {
	var resp struct {
		Passphrase      string `json:"passphrase"`
		ProtocolVersion int    `json:"protocolVersion"`
	}
	if err := c.call(ctx, &resp, "getNetwork"); err != nil {
		return "", err
	}
	return resp.Passphrase, nil
}

// LatestLedger returns the latest ledger sequence known to the gateway.
func (c *Client) LatestLedger(ctx context.Context) (uint32, error) {
	var resp struct {
		Sequence uint32 `json:"sequence"`
	}
	if err := c.call(ctx, &resp, "getLatestLedger"); err != nil {
		return 0, err
	}
	return resp.Sequence, nil
}

// GetLedgerEntries fetches the entries for the given keys. Missing entries are
// simply absent from the result.
func (c *Client) GetLedgerEntries(ctx context.Context, keys ...json.RawMessage) ([]model.LedgerEntry, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var resp struct {
		Entries      []model.LedgerEntry `json:"entries"`
		LatestLedger uint32              `json:"latestLedger"`
	}
	params := map[string]interface{}{"keys": keys, "xdrFormat": xdrFormatJSON}
	if err := c.call(ctx, &resp, "getLedgerEntries", params); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// GetAccount loads the account entry and its current sequence number.
func (c *Client) GetAccount(ctx context.Context, id string) (model.Account, error) {
	entries, err := c.GetLedgerEntries(ctx, AccountKey(id))
	if err != nil {
		return model.Account{}, err
	}
	if len(entries) == 0 {
		return model.Account{}, fmt.Errorf("%w: %s", model.ErrAccountNotFound, id)
	}

	var data struct {
		Account struct {
			AccountID string      `json:"account_id"`
			SeqNum    json.Number `json:"seq_num"`
		} `json:"account"`
	}
	if err := unmarshalNumber(entries[0].Data, &data); err != nil {
		return model.Account{}, fmt.Errorf("parse account %s: %w", id, err)
	}
	seq, err := strconv.ParseInt(data.Account.SeqNum.String(), 10, 64)
	if err != nil {
		return model.Account{}, fmt.Errorf("parse account %s sequence: %w", id, err)
	}
	return model.Account{ID: id, Sequence: seq}, nil
}

// SimulateTransaction dry-runs an unsigned transaction against current state.
func (c *Client) SimulateTransaction(ctx context.Context, tx model.UnsignedTx) (model.SimulationResult, error) {
	var resp struct {
		Error           string            `json:"error"`
		MinResourceFee  json.Number       `json:"minResourceFee"`
		TransactionData json.RawMessage   `json:"transactionDataJson"`
		Events          []json.RawMessage `json:"eventsJson"`
		LatestLedger    uint32            `json:"latestLedger"`
	}
	params := map[string]interface{}{"transaction": tx, "xdrFormat": xdrFormatJSON}
	if err := c.call(ctx, &resp, "simulateTransaction", params); err != nil {
		return model.SimulationResult{}, err
	}

	result := model.SimulationResult{
		Error:           resp.Error,
		TransactionData: resp.TransactionData,
		Events:          resp.Events,
		LatestLedger:    resp.LatestLedger,
	}
	if resp.MinResourceFee != "" {
		fee, err := strconv.ParseInt(resp.MinResourceFee.String(), 10, 64)
		if err != nil {
			return model.SimulationResult{}, fmt.Errorf("parse min resource fee: %w", err)
		}
		result.MinResourceFee = fee
	}
	return result, nil
}

// SendTransaction submits a signed envelope. The envelope goes out as JSON
// with xdrFormat "json"; the gateway must accept that form.
func (c *Client) SendTransaction(ctx context.Context, envelope []byte) (model.SendResult, error) {
	var resp struct {
		Hash             string            `json:"hash"`
		Status           string            `json:"status"`
		ErrorResult      json.RawMessage   `json:"errorResultJson"`
		DiagnosticEvents []json.RawMessage `json:"diagnosticEventsJson"`
	}
	params := map[string]interface{}{"transaction": json.RawMessage(envelope), "xdrFormat": xdrFormatJSON}
	if err := c.call(ctx, &resp, "sendTransaction", params); err != nil {
		return model.SendResult{}, err
	}

	hash, err := NormalizeHash(resp.Hash)
	if err != nil && resp.Status != model.SendError {
		return model.SendResult{}, err
	}
	result := model.SendResult{Hash: hash, Status: resp.Status, ErrorResult: resp.ErrorResult}
	if resp.Status == model.SendError {
		result.Failure = ParseFailure(resp.ErrorResult, resp.DiagnosticEvents)
	}
	return result, nil
}

// GetTransaction reports the status of a submitted transaction.
func (c *Client) GetTransaction(ctx context.Context, hash string) (model.TxStatus, error) {
	var resp struct {
		Status           string            `json:"status"`
		Ledger           uint32            `json:"ledger"`
		Result           json.RawMessage   `json:"resultJson"`
		DiagnosticEvents []json.RawMessage `json:"diagnosticEventsJson"`
	}
	params := map[string]interface{}{"hash": hash, "xdrFormat": xdrFormatJSON}
	if err := c.call(ctx, &resp, "getTransaction", params); err != nil {
		return model.TxStatus{}, err
	}

	status := model.TxStatus{Status: resp.Status, Ledger: resp.Ledger}
	if resp.Status != model.TxSuccess && resp.Status != model.TxNotFound {
		status.Failure = ParseFailure(resp.Result, resp.DiagnosticEvents)
	}
	return status, nil
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if c.rpcClient == nil {
		return fmt.Errorf("rpc client is nil")
	}
	if err := c.rpcClient.CallContext(ctx, result, method, args...); err != nil {
		return fmt.Errorf("%s: %s", method, describeRPCError(err))
	}
	return nil
}

func describeRPCError(err error) string {
	var rpcErr rpc.Error
	if !errors.As(err, &rpcErr) {
		return err.Error()
	}
	msg := fmt.Sprintf("%s (code %d)", rpcErr.Error(), rpcErr.ErrorCode())
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		msg = fmt.Sprintf("%s: %v", msg, dataErr.ErrorData())
	}
	return msg
}

// NormalizeHash validates a 32-byte transaction hash and returns it as
// lower-case hex without a prefix.
func NormalizeHash(hash string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(hash), "0x")
	data, err := hexutil.Decode("0x" + trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid transaction hash %q: %w", hash, err)
	}
	if len(data) != common.HashLength {
		return "", fmt.Errorf("invalid transaction hash length %d", len(data))
	}
	return strings.TrimPrefix(common.BytesToHash(data).Hex(), "0x"), nil
}

func unmarshalNumber(data []byte, v interface{}) error {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	return dec.Decode(v)
}
