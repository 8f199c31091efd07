package model

import (
	"math/big"
	"time"
)

// PoolAsset is one reserve of a two-asset pool as recorded on chain.
type PoolAsset struct {
	ID      string   `json:"id"`
	Balance *big.Int `json:"balance"`
	// Weight is the record's denormalized weight, nil when the record has none.
	Weight *big.Int `json:"weight,omitempty"`
	// Index is the token position in the pool's token list, -1 when unknown.
	Index int `json:"index"`
}

// PoolSnapshot is the reserve state of a pool at one point in time.
type PoolSnapshot struct {
	PoolID      string    `json:"pool_id"`
	AssetA      PoolAsset `json:"asset_a"`
	AssetB      PoolAsset `json:"asset_b"`
	TotalShares *big.Int  `json:"total_shares"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// ReserveA returns a copy of the asset A balance.
func (s PoolSnapshot) ReserveA() *big.Int {
	return cloneInt(s.AssetA.Balance)
}

// ReserveB returns a copy of the asset B balance.
func (s PoolSnapshot) ReserveB() *big.Int {
	return cloneInt(s.AssetB.Balance)
}

// Shares returns a copy of the total outstanding shares.
func (s PoolSnapshot) Shares() *big.Int {
	return cloneInt(s.TotalShares)
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}
