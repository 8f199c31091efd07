package model

import "github.com/shopspring/decimal"

// JoinEstimate bounds the reserves a depositor is willing to contribute.
// Limits are in the base units of each reserve.
type JoinEstimate struct {
	ReserveALimit decimal.Decimal `json:"reserve_a_limit"`
	ReserveBLimit decimal.Decimal `json:"reserve_b_limit"`
	// LargeSlippage is set when the tolerance is unusually wide.
	LargeSlippage bool `json:"large_slippage"`
}

// PoolQuote describes what one share is made of.
type PoolQuote struct {
	AssetAPerShare decimal.Decimal `json:"asset_a_per_share"`
	AssetBPerShare decimal.Decimal `json:"asset_b_per_share"`
	// SharePrice is denominated in asset B.
	SharePrice  decimal.Decimal `json:"share_price"`
	QuoteWeight decimal.Decimal `json:"quote_weight"`
}
