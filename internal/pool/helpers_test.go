package pool

import (
	"math/big"

	"github.com/shopspring/decimal"
)

func bigInt(v int64) *big.Int {
	return big.NewInt(v)
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
