package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lpdeposit/internal/model"
	"lpdeposit/internal/storage"
)

// Store provides Postgres persistence for the attempt journal.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutAttempt inserts or updates a single attempt.
func (s *Store) PutAttempt(ctx context.Context, record model.AttemptRecord) error {
	return s.UpsertAttempts(ctx, []model.AttemptRecord{record})
}

// UpsertAttempts inserts or updates attempts in one batch.
func (s *Store) UpsertAttempts(ctx context.Context, records []model.AttemptRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO deposit_attempts (
				id, pool_id, initiator, target_shares, reserve_a_limit, reserve_b_limit,
				state, outcome, tx_hash, error_kind, raw_code, message, created_at, resolved_at, updated_at
			) VALUES ($1,$2,$3,$4::numeric,$5::numeric,$6::numeric,$7,$8,$9,$10,$11,$12,$13,$14,now())
			ON CONFLICT (id)
			DO UPDATE SET
				state = EXCLUDED.state,
				outcome = EXCLUDED.outcome,
				tx_hash = COALESCE(NULLIF(EXCLUDED.tx_hash, ''), deposit_attempts.tx_hash),
				error_kind = EXCLUDED.error_kind,
				raw_code = EXCLUDED.raw_code,
				message = EXCLUDED.message,
				resolved_at = EXCLUDED.resolved_at,
				updated_at = now()
		`,
			r.ID,
			r.PoolID,
			r.Initiator,
			numericOrZero(r.TargetShares),
			numericOrZero(r.ReserveALimit),
			numericOrZero(r.ReserveBLimit),
			r.State,
			r.Outcome,
			r.Hash,
			r.ErrorKind,
			r.RawCode,
			r.Message,
			r.CreatedAt,
			r.ResolvedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert attempt: %w", err)
		}
	}
	return nil
}

// ListAttempts returns attempts matching filter, newest first.
func (s *Store) ListAttempts(ctx context.Context, filter storage.AttemptFilter) ([]model.AttemptRecord, error) {
	query, args := listQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []model.AttemptRecord
	for rows.Next() {
		var r model.AttemptRecord
		if err := rows.Scan(
			&r.ID, &r.PoolID, &r.Initiator, &r.TargetShares, &r.ReserveALimit, &r.ReserveBLimit,
			&r.State, &r.Outcome, &r.Hash, &r.ErrorKind, &r.RawCode, &r.Message, &r.CreatedAt, &r.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func listQuery(filter storage.AttemptFilter) (string, []interface{}) {
	var where []string
	var args []interface{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("initiator", filter.Initiator)
	add("pool_id", filter.PoolID)
	add("outcome", filter.Outcome)

	var b strings.Builder
	b.WriteString(`SELECT id, pool_id, initiator, target_shares::text, reserve_a_limit::text, reserve_b_limit::text,
		state, outcome, tx_hash, error_kind, raw_code, message, created_at, resolved_at
		FROM deposit_attempts`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

func numericOrZero(v string) string {
	if v == "" {
		return "0"
	}
	return v
}
