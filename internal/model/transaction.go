package model

import (
	"encoding/json"
	"fmt"
)

// Invocation is a single contract call.
type Invocation struct {
	Contract string            `json:"contract"`
	Function string            `json:"function"`
	Args     []json.RawMessage `json:"args"`
}

// UnsignedTx is the JSON envelope sent to the gateway for simulation and signing.
type UnsignedTx struct {
	Source      string          `json:"source"`
	Sequence    int64           `json:"sequence"`
	Fee         uint32          `json:"fee"`
	MinTime     int64           `json:"min_time"`
	MaxTime     int64           `json:"max_time"`
	Network     string          `json:"network"`
	Operation   Invocation      `json:"operation"`
	SorobanData json.RawMessage `json:"soroban_data,omitempty"`
	ResourceFee int64           `json:"resource_fee,omitempty"`
}

// Assemble returns a copy of tx carrying the simulation's resource data.
func (tx UnsignedTx) Assemble(sim SimulationResult) UnsignedTx {
	out := tx
	out.Operation.Args = append([]json.RawMessage(nil), tx.Operation.Args...)
	out.SorobanData = sim.TransactionData
	out.ResourceFee = sim.MinResourceFee
	out.Fee = tx.Fee + uint32(sim.MinResourceFee)
	return out
}

// Encode returns the canonical encoding handed to the signer.
func (tx UnsignedTx) Encode() ([]byte, error) {
	data, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	return data, nil
}

// Signature is a decorated signature over an envelope.
type Signature struct {
	Hint      string `json:"hint"`
	Signature string `json:"signature"`
}

// SignedEnvelope is the envelope submitted to the network.
type SignedEnvelope struct {
	Tx         json.RawMessage `json:"tx"`
	Signatures []Signature     `json:"signatures"`
}

// SimulationResult is the outcome of a dry run.
type SimulationResult struct {
	Error           string            `json:"error,omitempty"`
	MinResourceFee  int64             `json:"min_resource_fee"`
	TransactionData json.RawMessage   `json:"transaction_data,omitempty"`
	Events          []json.RawMessage `json:"events,omitempty"`
	LatestLedger    uint32            `json:"latest_ledger"`
}

// Failed reports whether the simulation produced an execution error.
func (s SimulationResult) Failed() bool {
	return s.Error != ""
}

// Submission statuses.
const (
	SendPending       = "PENDING"
	SendDuplicate     = "DUPLICATE"
	SendTryAgainLater = "TRY_AGAIN_LATER"
	SendError         = "ERROR"
)

// SendResult is the immediate response to a submission.
type SendResult struct {
	Hash        string          `json:"hash"`
	Status      string          `json:"status"`
	ErrorResult json.RawMessage `json:"error_result,omitempty"`
	// Failure is set when Status is ERROR.
	Failure RawFailure `json:"failure,omitempty"`
}

// Transaction statuses reported by the status poller.
const (
	TxNotFound = "NOT_FOUND"
	TxSuccess  = "SUCCESS"
	TxFailed   = "FAILED"
)

// TxStatus is an observation of a submitted transaction.
type TxStatus struct {
	Status  string     `json:"status"`
	Ledger  uint32     `json:"ledger,omitempty"`
	Failure RawFailure `json:"failure,omitempty"`
}

// Failure payload tags.
const (
	FailureContract    = "contract"
	FailureHost        = "host"
	FailureTransaction = "transaction"
	FailureOperation   = "operation"
)

// RawFailure is the tagged failure payload attached to a failed transaction.
type RawFailure struct {
	Type     string          `json:"type,omitempty"`
	Code     int             `json:"code"`
	Category string          `json:"category,omitempty"`
	Detail   json.RawMessage `json:"detail,omitempty"`
}
