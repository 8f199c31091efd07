package model

import "math/big"

// DepositRequest asks the pool to mint exactly TargetShares while taking at
// most ReserveALimit and ReserveBLimit. All amounts are 7-decimal fixed point.
type DepositRequest struct {
	PoolID        string   `json:"pool_id"`
	AssetA        string   `json:"asset_a"`
	AssetB        string   `json:"asset_b"`
	TargetShares  *big.Int `json:"target_shares"`
	ReserveALimit *big.Int `json:"reserve_a_limit"`
	ReserveBLimit *big.Int `json:"reserve_b_limit"`
	Initiator     string   `json:"initiator"`
	// BFirst reports whether asset B precedes asset A in the pool token list.
	BFirst bool `json:"b_first"`
}

// MaxAmountsIn returns the limits in pool token order.
func (r DepositRequest) MaxAmountsIn() []*big.Int {
	if r.BFirst {
		return []*big.Int{r.ReserveBLimit, r.ReserveALimit}
	}
	return []*big.Int{r.ReserveALimit, r.ReserveBLimit}
}

// Account is the initiator's ledger account.
type Account struct {
	ID       string `json:"id"`
	Sequence int64  `json:"sequence"`
}
