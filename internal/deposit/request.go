package deposit

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"lpdeposit/internal/ledger"
	"lpdeposit/internal/model"
)

// BuildRequest turns an estimate into a join request for exactly targetShares.
// Limits are floored to integral base units.
func BuildRequest(snapshot model.PoolSnapshot, targetShares *big.Int, estimate model.JoinEstimate, initiator string) (model.DepositRequest, error) {
	if initiator == "" {
		return model.DepositRequest{}, fmt.Errorf("initiator is required")
	}
	if targetShares == nil || targetShares.Sign() < 0 {
		return model.DepositRequest{}, fmt.Errorf("%w: target shares must be non-negative", model.ErrInvalidAmount)
	}
	if estimate.ReserveALimit.Sign() < 0 || estimate.ReserveBLimit.Sign() < 0 {
		return model.DepositRequest{}, fmt.Errorf("%w: negative reserve limit", model.ErrInvalidAmount)
	}
	if targetShares.Sign() == 0 && !(estimate.ReserveALimit.IsZero() && estimate.ReserveBLimit.IsZero()) {
		return model.DepositRequest{}, fmt.Errorf("%w: zero target with non-zero limits", model.ErrInvalidAmount)
	}

	limitA := ToBaseUnits(estimate.ReserveALimit)
	limitB := ToBaseUnits(estimate.ReserveBLimit)
	for name, v := range map[string]*big.Int{"target shares": targetShares, "reserve A limit": limitA, "reserve B limit": limitB} {
		if !ledger.FitsI128(v) {
			return model.DepositRequest{}, fmt.Errorf("%w: %s %s overflows i128", model.ErrInvalidAmount, name, v)
		}
	}

	return model.DepositRequest{
		PoolID:        snapshot.PoolID,
		AssetA:        snapshot.AssetA.ID,
		AssetB:        snapshot.AssetB.ID,
		TargetShares:  new(big.Int).Set(targetShares),
		ReserveALimit: limitA,
		ReserveBLimit: limitB,
		Initiator:     initiator,
		BFirst:        bFirst(snapshot),
	}, nil
}

// ToBaseUnits floors an estimated limit to whole base units.
func ToBaseUnits(v decimal.Decimal) *big.Int {
	return v.Floor().BigInt()
}

func bFirst(snapshot model.PoolSnapshot) bool {
	a, b := snapshot.AssetA.Index, snapshot.AssetB.Index
	return a >= 0 && b >= 0 && b < a
}
