package deposit

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// AmountDecimals is the fixed-point precision of pool shares and reserves.
const AmountDecimals = 7

// ScaleAmount converts a whole-token amount into base units, rounding down.
func ScaleAmount(amount decimal.Decimal) (*big.Int, error) {
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount %s is negative", amount)
	}
	return amount.Shift(AmountDecimals).Floor().BigInt(), nil
}

// FormatAmount renders base units as a whole-token amount with all decimals.
func FormatAmount(value *big.Int) string {
	if value == nil {
		return "0"
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(AmountDecimals), nil)
	text := new(big.Rat).SetFrac(abs, denom).FloatString(AmountDecimals)
	if sign < 0 {
		return "-" + text
	}
	return text
}
