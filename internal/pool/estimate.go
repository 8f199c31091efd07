package pool

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"lpdeposit/internal/model"
)

// limitPrecision is the number of fractional digits kept when dividing by the share supply.
const limitPrecision = 18

var (
	maxSlippage   = decimal.NewFromInt(1)
	largeSlippage = decimal.RequireFromString("0.5")
)

// EstimateJoin bounds the reserves needed to mint targetShares. Each limit is
// the reserve's pro-rata share inflated by (1 + slippage).
func EstimateJoin(snapshot model.PoolSnapshot, targetShares *big.Int, slippage decimal.Decimal) (model.JoinEstimate, error) {
	// An empty pool fails first, whatever else is wrong with the request.
	total := snapshot.Shares()
	if total.Sign() <= 0 {
		return model.JoinEstimate{}, fmt.Errorf("%w: %s", model.ErrEmptyPool, snapshot.PoolID)
	}
	if slippage.Sign() <= 0 || slippage.GreaterThan(maxSlippage) {
		return model.JoinEstimate{}, fmt.Errorf("%w: %s must be in (0, 1]", model.ErrInvalidSlippage, slippage)
	}
	if targetShares == nil || targetShares.Sign() < 0 {
		return model.JoinEstimate{}, fmt.Errorf("%w: target shares must be non-negative", model.ErrInvalidAmount)
	}

	estimate := model.JoinEstimate{
		ReserveALimit: decimal.Zero,
		ReserveBLimit: decimal.Zero,
		LargeSlippage: slippage.GreaterThanOrEqual(largeSlippage),
	}
	if targetShares.Sign() == 0 {
		return estimate, nil
	}

	factor := decimal.NewFromBigInt(targetShares, 0).Mul(decimal.NewFromInt(1).Add(slippage))
	supply := decimal.NewFromBigInt(total, 0)
	estimate.ReserveALimit = proRata(snapshot.ReserveA(), factor, supply)
	estimate.ReserveBLimit = proRata(snapshot.ReserveB(), factor, supply)
	return estimate, nil
}

func proRata(reserve *big.Int, factor, supply decimal.Decimal) decimal.Decimal {
	q, _ := decimal.NewFromBigInt(reserve, 0).Mul(factor).QuoRem(supply, limitPrecision)
	return q
}
