package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"lpdeposit/internal/model"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcHandler func(params json.RawMessage) (interface{}, error)

// newGateway serves a minimal JSON-RPC gateway backed by per-method handlers.
func newGateway(t *testing.T, handlers map[string]rpcHandler) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		handler, ok := handlers[req.Method]
		if !ok {
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		} else {
			var params json.RawMessage
			if len(req.Params) > 0 {
				params = req.Params[0]
			}
			result, err := handler(params)
			if err != nil {
				resp["error"] = map[string]interface{}{"code": -32602, "message": err.Error(), "data": "bad params"}
			} else {
				resp["result"] = result
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), srv.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestClientGetLedgerEntries(t *testing.T) {
	var gotKeys []json.RawMessage
	client := newGateway(t, map[string]rpcHandler{
		"getLedgerEntries": func(params json.RawMessage) (interface{}, error) {
			var req struct {
				Keys      []json.RawMessage `json:"keys"`
				XDRFormat string            `json:"xdrFormat"`
			}
			if err := json.Unmarshal(params, &req); err != nil {
				return nil, err
			}
			if req.XDRFormat != "json" {
				t.Errorf("unexpected xdr format %q", req.XDRFormat)
			}
			gotKeys = req.Keys
			return map[string]interface{}{
				"entries": []map[string]interface{}{{
					"keyJson":               json.RawMessage(req.Keys[0]),
					"dataJson":              json.RawMessage(`{"contract_data":{"contract":"CPOOL","key":{"vec":[{"symbol":"TotalShares"}]},"durability":"persistent","val":{"i128":"500000"}}}`),
					"lastModifiedLedgerSeq": 42,
				}},
				"latestLedger": 50,
			}, nil
		},
	})

	entries, err := client.GetLedgerEntries(context.Background(), ContractDataKey("CPOOL", "TotalShares", model.DurabilityPersistent))
	require.NoError(t, err)
	require.Len(t, gotKeys, 1)
	require.Len(t, entries, 1)
	require.Equal(t, uint32(42), entries[0].LastModifiedLedger)

	name, err := JSONDecoder{}.DecodeEntryKey(entries[0].Key)
	require.NoError(t, err)
	require.Equal(t, "TotalShares", name)
}

func TestClientGetAccount(t *testing.T) {
	client := newGateway(t, map[string]rpcHandler{
		"getLedgerEntries": func(params json.RawMessage) (interface{}, error) {
			return map[string]interface{}{
				"entries": []map[string]interface{}{{
					"keyJson":  json.RawMessage(`{"account":{"account_id":"GABC"}}`),
					"dataJson": json.RawMessage(`{"account":{"account_id":"GABC","balance":"100","seq_num":"1234567890123"}}`),
				}},
			}, nil
		},
	})

	account, err := client.GetAccount(context.Background(), "GABC")
	require.NoError(t, err)
	require.Equal(t, model.Account{ID: "GABC", Sequence: 1234567890123}, account)
}

func TestClientGetAccountMissing(t *testing.T) {
	client := newGateway(t, map[string]rpcHandler{
		"getLedgerEntries": func(params json.RawMessage) (interface{}, error) {
			return map[string]interface{}{"entries": []interface{}{}, "latestLedger": 50}, nil
		},
	})

	_, err := client.GetAccount(context.Background(), "GNOPE")
	require.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestClientSimulateTransaction(t *testing.T) {
	client := newGateway(t, map[string]rpcHandler{
		"simulateTransaction": func(params json.RawMessage) (interface{}, error) {
			var req struct {
				Transaction model.UnsignedTx `json:"transaction"`
			}
			if err := json.Unmarshal(params, &req); err != nil {
				return nil, err
			}
			if req.Transaction.Operation.Function != "join_pool" {
				return map[string]interface{}{"error": "unexpected function", "latestLedger": 7}, nil
			}
			return map[string]interface{}{
				"minResourceFee":      "31337",
				"transactionDataJson": json.RawMessage(`{"resources":{"instructions":100}}`),
				"latestLedger":        7,
			}, nil
		},
	})

	sim, err := client.SimulateTransaction(context.Background(), model.UnsignedTx{Operation: model.Invocation{Function: "join_pool"}})
	require.NoError(t, err)
	require.False(t, sim.Failed())
	require.Equal(t, int64(31337), sim.MinResourceFee)
	require.JSONEq(t, `{"resources":{"instructions":100}}`, string(sim.TransactionData))

	sim, err = client.SimulateTransaction(context.Background(), model.UnsignedTx{Operation: model.Invocation{Function: "exit_pool"}})
	require.NoError(t, err)
	require.True(t, sim.Failed())
}

func TestClientSendAndGetTransaction(t *testing.T) {
	hash := strings.Repeat("ab", 32)
	client := newGateway(t, map[string]rpcHandler{
		"sendTransaction": func(params json.RawMessage) (interface{}, error) {
			var req struct {
				Transaction json.RawMessage `json:"transaction"`
				XDRFormat   string          `json:"xdrFormat"`
			}
			if err := json.Unmarshal(params, &req); err != nil {
				return nil, err
			}
			if req.XDRFormat != "json" || !strings.HasPrefix(string(req.Transaction), "{") {
				return nil, fmt.Errorf("envelope not sent as json: %s", params)
			}
			return map[string]interface{}{"hash": strings.ToUpper(hash), "status": "PENDING"}, nil
		},
		"getTransaction": func(params json.RawMessage) (interface{}, error) {
			var req struct {
				Hash string `json:"hash"`
			}
			if err := json.Unmarshal(params, &req); err != nil {
				return nil, err
			}
			if req.Hash != hash {
				return map[string]interface{}{"status": "NOT_FOUND"}, nil
			}
			return map[string]interface{}{
				"status":     "FAILED",
				"ledger":     99,
				"resultJson": json.RawMessage(`{"result":"tx_insufficient_fee"}`),
			}, nil
		},
	})

	sent, err := client.SendTransaction(context.Background(), []byte(`{"tx":{},"signatures":[]}`))
	require.NoError(t, err)
	require.Equal(t, hash, sent.Hash)
	require.Equal(t, model.SendPending, sent.Status)

	status, err := client.GetTransaction(context.Background(), sent.Hash)
	require.NoError(t, err)
	require.Equal(t, model.TxFailed, status.Status)
	require.Equal(t, uint32(99), status.Ledger)
	require.Equal(t, model.FailureTransaction, status.Failure.Type)
	require.Equal(t, -9, status.Failure.Code)
}

func TestClientRPCErrorCarriesDetail(t *testing.T) {
	client := newGateway(t, map[string]rpcHandler{
		"sendTransaction": func(params json.RawMessage) (interface{}, error) {
			return nil, errBadEnvelope
		},
	})

	_, err := client.SendTransaction(context.Background(), []byte(`{}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "sendTransaction")
	require.Contains(t, err.Error(), "malformed envelope")
	require.Contains(t, err.Error(), "bad params")
}

func TestNormalizeHash(t *testing.T) {
	_, err := NormalizeHash("abcd")
	require.Error(t, err)

	got, err := NormalizeHash("0x" + strings.Repeat("0F", 32))
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("0f", 32), got)
}

type gatewayError string

func (e gatewayError) Error() string { return string(e) }

const errBadEnvelope = gatewayError("malformed envelope")
