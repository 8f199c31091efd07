package deposit

import (
	"encoding/json"
	"fmt"
	"time"

	"lpdeposit/internal/ledger"
	"lpdeposit/internal/model"
)

// JoinFunction is the pool entry point invoked by a deposit.
const JoinFunction = "join_pool"

// TxParams are the envelope settings shared by every deposit transaction.
type TxParams struct {
	Network string
	BaseFee uint32
	Timeout time.Duration
}

// NewTransaction assembles the unsigned join_pool invocation for req.
func NewTransaction(req model.DepositRequest, account model.Account, params TxParams, now time.Time) (model.UnsignedTx, error) {
	if account.ID != req.Initiator {
		return model.UnsignedTx{}, fmt.Errorf("account %s does not match initiator %s", account.ID, req.Initiator)
	}
	shares, err := ledger.I128(req.TargetShares)
	if err != nil {
		return model.UnsignedTx{}, fmt.Errorf("%w: pool_amount_out: %v", model.ErrInvalidAmount, err)
	}
	limits := req.MaxAmountsIn()
	encoded := make([]json.RawMessage, 0, len(limits))
	for _, limit := range limits {
		v, err := ledger.I128(limit)
		if err != nil {
			return model.UnsignedTx{}, fmt.Errorf("%w: max_amounts_in: %v", model.ErrInvalidAmount, err)
		}
		encoded = append(encoded, v)
	}

	tx := model.UnsignedTx{
		Source:   account.ID,
		Sequence: account.Sequence + 1,
		Fee:      params.BaseFee,
		Network:  params.Network,
		Operation: model.Invocation{
			Contract: req.PoolID,
			Function: JoinFunction,
			Args: []json.RawMessage{
				shares,
				ledger.Vec(encoded...),
				ledger.Address(req.Initiator),
			},
		},
	}
	if params.Timeout > 0 {
		tx.MaxTime = now.Add(params.Timeout).Unix()
	}
	return tx, nil
}
