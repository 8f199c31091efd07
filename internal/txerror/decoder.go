package txerror

import (
	"fmt"
	"strings"

	"lpdeposit/internal/model"
)

// Transaction result codes.
var transactionKinds = map[int]model.ErrorKind{
	-2:  model.KindExpired, // too early
	-3:  model.KindExpired, // too late
	-5:  model.KindBadSequence,
	-6:  model.KindBadAuthorization,
	-7:  model.KindInsufficientBalance,
	-9:  model.KindInsufficientFee,
	-10: model.KindBadAuthorization,
	-15: model.KindBadSequence,
}

// Host function invocation result codes.
var operationKinds = map[int]model.ErrorKind{
	-3: model.KindResourceExhausted,
	-5: model.KindInsufficientFee,
}

var hostKinds = map[string]model.ErrorKind{
	"auth":   model.KindBadAuthorization,
	"budget": model.KindResourceExhausted,
}

// DefaultContractKinds maps error codes raised by the pool contract and the
// reserve token contracts.
var DefaultContractKinds = map[int]model.ErrorKind{
	5:  model.KindBadAuthorization,    // not controller
	10: model.KindInsufficientBalance, // token balance
	13: model.KindLimitExceeded,       // limit in
	14: model.KindLimitExceeded,       // limit out
	15: model.KindLimitExceeded,       // max in ratio
	16: model.KindLimitExceeded,       // max out ratio
	26: model.KindPoolPaused,          // frozen
}

// Decoder turns raw ledger failures into StructuredErrors.
type Decoder struct {
	contractKinds map[int]model.ErrorKind
}

// NewDecoder creates a decoder using the default contract table overlaid
// with extra.
func NewDecoder(extra map[int]model.ErrorKind) *Decoder {
	kinds := make(map[int]model.ErrorKind, len(DefaultContractKinds)+len(extra))
	for code, kind := range DefaultContractKinds {
		kinds[code] = kind
	}
	for code, kind := range extra {
		kinds[code] = kind
	}
	return &Decoder{contractKinds: kinds}
}

// Decode classifies raw. Unrecognized failures map to KindUnknown and keep
// the raw code and detail.
func (d *Decoder) Decode(raw model.RawFailure) model.StructuredError {
	kind, ok := d.lookup(raw)
	if !ok {
		kind = model.KindUnknown
	}
	return model.StructuredError{Kind: kind, RawCode: raw.Code, Message: describe(raw)}
}

func (d *Decoder) lookup(raw model.RawFailure) (kind model.ErrorKind, ok bool) {
	switch raw.Type {
	case model.FailureContract:
		kind, ok = d.contractKinds[raw.Code]
	case model.FailureTransaction:
		kind, ok = transactionKinds[raw.Code]
	case model.FailureOperation:
		kind, ok = operationKinds[raw.Code]
	case model.FailureHost:
		kind, ok = hostKinds[strings.ToLower(raw.Category)]
	}
	return kind, ok
}

func describe(raw model.RawFailure) string {
	var b strings.Builder
	if raw.Type == "" {
		b.WriteString("unrecognized failure")
	} else {
		fmt.Fprintf(&b, "%s error %d", raw.Type, raw.Code)
	}
	if raw.Category != "" {
		fmt.Fprintf(&b, " (%s)", raw.Category)
	}
	if len(raw.Detail) > 0 {
		fmt.Fprintf(&b, ": %s", raw.Detail)
	}
	return b.String()
}
