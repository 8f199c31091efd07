package pool

import (
	"fmt"

	"github.com/shopspring/decimal"

	"lpdeposit/internal/model"
)

const quotePrecision = 18

// Quote describes one pool share in terms of both reserves and prices it in
// asset B. Record weights take precedence over the configured quote weight.
func Quote(snapshot model.PoolSnapshot, quoteWeight decimal.Decimal) (model.PoolQuote, error) {
	total := snapshot.Shares()
	if total.Sign() <= 0 {
		return model.PoolQuote{}, fmt.Errorf("%w: %s", model.ErrEmptyPool, snapshot.PoolID)
	}

	weightB := quoteWeight
	if w, ok := normalizedWeight(snapshot); ok {
		weightB = w
	}
	if weightB.Sign() <= 0 || weightB.GreaterThan(decimal.NewFromInt(1)) {
		return model.PoolQuote{}, fmt.Errorf("quote weight %s must be in (0, 1]", weightB)
	}

	supply := decimal.NewFromBigInt(total, 0)
	perShareA := decimal.NewFromBigInt(snapshot.ReserveA(), 0).DivRound(supply, quotePrecision)
	perShareB := decimal.NewFromBigInt(snapshot.ReserveB(), 0).DivRound(supply, quotePrecision)

	return model.PoolQuote{
		AssetAPerShare: perShareA,
		AssetBPerShare: perShareB,
		SharePrice:     perShareB.DivRound(weightB, quotePrecision),
		QuoteWeight:    weightB,
	}, nil
}

func normalizedWeight(snapshot model.PoolSnapshot) (decimal.Decimal, bool) {
	if snapshot.AssetA.Weight == nil || snapshot.AssetB.Weight == nil {
		return decimal.Zero, false
	}
	wA := decimal.NewFromBigInt(snapshot.AssetA.Weight, 0)
	wB := decimal.NewFromBigInt(snapshot.AssetB.Weight, 0)
	sum := wA.Add(wB)
	if sum.Sign() <= 0 {
		return decimal.Zero, false
	}
	return wB.DivRound(sum, quotePrecision), true
}
