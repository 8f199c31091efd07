package model

import (
	"encoding/json"
	"time"
)

// AttemptRecord is the journal row written for every deposit attempt.
type AttemptRecord struct {
	ID            string     `json:"id"`
	PoolID        string     `json:"pool_id"`
	Initiator     string     `json:"initiator"`
	TargetShares  string     `json:"target_shares"`
	ReserveALimit string     `json:"reserve_a_limit"`
	ReserveBLimit string     `json:"reserve_b_limit"`
	State         string     `json:"state"`
	Outcome       string     `json:"outcome"`
	Hash          string     `json:"hash,omitempty"`
	ErrorKind     string     `json:"error_kind,omitempty"`
	RawCode       *int       `json:"raw_code,omitempty"`
	Message       string     `json:"message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// MarshalJSON ensures AttemptRecord is encoded with stable field names.
func (r AttemptRecord) MarshalJSON() ([]byte, error) {
	type Alias AttemptRecord
	return json.Marshal(Alias(r))
}

// UnmarshalJSON decodes an AttemptRecord from JSON.
func (r *AttemptRecord) UnmarshalJSON(data []byte) error {
	type Alias AttemptRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = AttemptRecord(a)
	return nil
}
