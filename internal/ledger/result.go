package ledger

import (
	"encoding/json"
	"sort"

	"lpdeposit/internal/model"
)

// Transaction result codes, keyed by their JSON names.
var txResultCodes = map[string]int{
	"tx_fee_bump_inner_success": 1,
	"tx_success":                0,
	"tx_failed":                 -1,
	"tx_too_early":              -2,
	"tx_too_late":               -3,
	"tx_missing_operation":      -4,
	"tx_bad_seq":                -5,
	"tx_bad_auth":               -6,
	"tx_insufficient_balance":   -7,
	"tx_no_account":             -8,
	"tx_insufficient_fee":       -9,
	"tx_bad_auth_extra":         -10,
	"tx_internal_error":         -11,
	"tx_not_supported":          -12,
	"tx_fee_bump_inner_failed":  -13,
	"tx_bad_sponsorship":        -14,
	"tx_bad_min_seq_age_or_gap": -15,
	"tx_malformed":              -16,
	"tx_soroban_invalid":        -17,
}

// Host function invocation result codes.
var invokeResultCodes = map[string]int{
	"success":                     0,
	"malformed":                   -1,
	"trapped":                     -2,
	"resource_limit_exceeded":     -3,
	"entry_archived":              -4,
	"insufficient_refundable_fee": -5,
}

// Host error codes.
var hostErrorCodes = map[string]int{
	"arith_domain":    0,
	"index_bounds":    1,
	"invalid_input":   2,
	"missing_value":   3,
	"existing_value":  4,
	"exceeded_limit":  5,
	"invalid_action":  6,
	"internal_error":  7,
	"unexpected_type": 8,
	"unexpected_size": 9,
}

// ParseFailure extracts the most specific failure from a transaction result and
// its diagnostic events. A contract error raised in the events wins over a host
// error, which wins over the operation and transaction result codes.
func ParseFailure(result json.RawMessage, events []json.RawMessage) model.RawFailure {
	for _, event := range events {
		if failure, ok := failureFromEvent(event); ok && failure.Type == model.FailureContract {
			return failure
		}
	}
	for _, event := range events {
		if failure, ok := failureFromEvent(event); ok {
			return failure
		}
	}
	return failureFromResult(result)
}

func failureFromResult(result json.RawMessage) model.RawFailure {
	failure := model.RawFailure{Type: model.FailureTransaction, Code: txResultCodes["tx_failed"], Detail: result}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(result, &envelope); err != nil || len(envelope.Result) == 0 {
		return failure
	}

	name, body := singleTag(envelope.Result)
	if code, ok := txResultCodes[name]; ok {
		failure.Code = code
		failure.Category = name
	}
	if name != "tx_failed" {
		return failure
	}

	var ops []json.RawMessage
	if err := json.Unmarshal(body, &ops); err != nil {
		return failure
	}
	for _, op := range ops {
		opName, opBody := singleTag(op)
		if opName != "op_inner" {
			continue
		}
		_, invokeBody := singleTag(opBody)
		resultName, _ := singleTag(invokeBody)
		if code, ok := invokeResultCodes[resultName]; ok && code != 0 {
			return model.RawFailure{Type: model.FailureOperation, Code: code, Category: resultName, Detail: result}
		}
	}
	return failure
}

func failureFromEvent(event json.RawMessage) (model.RawFailure, bool) {
	var tree interface{}
	if err := json.Unmarshal(event, &tree); err != nil {
		return model.RawFailure{}, false
	}
	errValue, ok := findErrorValue(tree)
	if !ok {
		return model.RawFailure{}, false
	}

	for category, value := range errValue {
		if category == model.FailureContract {
			code, ok := value.(float64)
			if !ok {
				return model.RawFailure{}, false
			}
			return model.RawFailure{Type: model.FailureContract, Code: int(code), Detail: event}, true
		}
		failure := model.RawFailure{Type: model.FailureHost, Category: category, Detail: event}
		if name, ok := value.(string); ok {
			if code, known := hostErrorCodes[name]; known {
				failure.Code = code
			}
		}
		return failure, true
	}
	return model.RawFailure{}, false
}

// findErrorValue walks a decoded event looking for {"error": {<category>: <code>}}.
func findErrorValue(node interface{}) (map[string]interface{}, bool) {
	switch v := node.(type) {
	case map[string]interface{}:
		if inner, ok := v["error"].(map[string]interface{}); ok && len(inner) == 1 {
			return inner, true
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if found, ok := findErrorValue(v[k]); ok {
				return found, true
			}
		}
	case []interface{}:
		for _, item := range v {
			if found, ok := findErrorValue(item); ok {
				return found, true
			}
		}
	}
	return nil, false
}

// singleTag splits a union rendered either as "name" or {"name": body}.
func singleTag(raw json.RawMessage) (string, json.RawMessage) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name, nil
	}
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &tagged); err != nil || len(tagged) != 1 {
		return "", nil
	}
	for k, v := range tagged {
		return k, v
	}
	return "", nil
}
