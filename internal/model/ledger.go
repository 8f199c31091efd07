package model

import "encoding/json"

// Contract data durabilities.
const (
	DurabilityPersistent = "persistent"
	DurabilityTemporary  = "temporary"
)

// ContractDataKey addresses a contract storage entry keyed by vec[symbol].
type ContractDataKey struct {
	Contract   string
	Symbol     string
	Durability string
}

// LedgerEntry is a raw ledger entry as returned by the gateway.
type LedgerEntry struct {
	Key                json.RawMessage `json:"keyJson"`
	Data               json.RawMessage `json:"dataJson"`
	LastModifiedLedger uint32          `json:"lastModifiedLedgerSeq"`
}
