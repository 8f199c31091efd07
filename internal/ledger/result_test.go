package ledger

import (
	"encoding/json"
	"testing"

	"lpdeposit/internal/model"
)

func TestParseFailureTransactionCode(t *testing.T) {
	result := json.RawMessage(`{"fee_charged":"100","result":"tx_bad_seq","ext":"v0"}`)
	failure := ParseFailure(result, nil)
	if failure.Type != model.FailureTransaction || failure.Code != -5 {
		t.Fatalf("failure mismatch: %+v", failure)
	}
	if failure.Category != "tx_bad_seq" {
		t.Fatalf("category mismatch: %s", failure.Category)
	}
}

func TestParseFailureOperationResult(t *testing.T) {
	result := json.RawMessage(`{"fee_charged":"100","result":{"tx_failed":[{"op_inner":{"invoke_host_function":"resource_limit_exceeded"}}]},"ext":"v0"}`)
	failure := ParseFailure(result, nil)
	if failure.Type != model.FailureOperation || failure.Code != -3 {
		t.Fatalf("failure mismatch: %+v", failure)
	}
}

func TestParseFailurePrefersContractError(t *testing.T) {
	result := json.RawMessage(`{"result":{"tx_failed":[{"op_inner":{"invoke_host_function":"trapped"}}]}}`)
	events := []json.RawMessage{
		json.RawMessage(`{"in_successful_contract_call":false,"event":{"body":{"v0":{"topics":[{"symbol":"error"},{"error":{"wasm_vm":"invalid_action"}}]}}}}`),
		json.RawMessage(`{"in_successful_contract_call":false,"event":{"body":{"v0":{"topics":[{"symbol":"error"},{"error":{"contract":13}}]}}}}`),
	}
	failure := ParseFailure(result, events)
	if failure.Type != model.FailureContract || failure.Code != 13 {
		t.Fatalf("failure mismatch: %+v", failure)
	}
}

func TestParseFailureHostCategory(t *testing.T) {
	events := []json.RawMessage{
		json.RawMessage(`{"event":{"body":{"v0":{"topics":[{"symbol":"error"},{"error":{"auth":"invalid_action"}}]}}}}`),
	}
	failure := ParseFailure(nil, events)
	if failure.Type != model.FailureHost || failure.Category != "auth" || failure.Code != 6 {
		t.Fatalf("failure mismatch: %+v", failure)
	}
}

func TestParseFailureMalformedResult(t *testing.T) {
	failure := ParseFailure(json.RawMessage(`not json`), nil)
	if failure.Type != model.FailureTransaction || failure.Code != -1 {
		t.Fatalf("failure mismatch: %+v", failure)
	}
}
