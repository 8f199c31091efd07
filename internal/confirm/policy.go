package confirm

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"lpdeposit/internal/lifecycle"
)

// Policy approves deposits automatically as long as they stay within limits.
// A nil limit is unbounded.
type Policy struct {
	MaxAssetA      *big.Int
	MaxAssetB      *big.Int
	MaxResourceFee int64
	Logger         *zap.Logger
}

// Confirm approves summary when every amount is within the configured limits.
func (p Policy) Confirm(ctx context.Context, summary lifecycle.Summary) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if exceeds(summary.AssetAAmount, p.MaxAssetA) {
		logger.Warn("deposit declined: asset A limit", zap.String("amount", summary.AssetAAmount.String()), zap.String("max", p.MaxAssetA.String()))
		return false, nil
	}
	if exceeds(summary.AssetBAmount, p.MaxAssetB) {
		logger.Warn("deposit declined: asset B limit", zap.String("amount", summary.AssetBAmount.String()), zap.String("max", p.MaxAssetB.String()))
		return false, nil
	}
	if p.MaxResourceFee > 0 && summary.ResourceFee > p.MaxResourceFee {
		logger.Warn("deposit declined: resource fee", zap.Int64("fee", summary.ResourceFee), zap.Int64("max", p.MaxResourceFee))
		return false, nil
	}
	return true, nil
}

func exceeds(amount, limit *big.Int) bool {
	return limit != nil && amount != nil && amount.Cmp(limit) > 0
}
