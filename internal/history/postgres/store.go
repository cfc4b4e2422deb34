// Package postgres provides a PostgreSQL-backed [history.Store].
//
// All operations run on a single [pgxpool.Pool]. [Migrate] is idempotent and
// runs automatically on [NewStore], so a fresh database needs no manual
// setup.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zgraper/phonemefix/internal/history"
)

// Compile-time interface assertion.
var _ history.Store = (*Store)(nil)

// ddlAttempts creates the attempts table and its retrieval index.
const ddlAttempts = `
CREATE TABLE IF NOT EXISTS attempts (
    id            BIGSERIAL    PRIMARY KEY,
    raw_ipa       TEXT         NOT NULL,
    corrected_ipa TEXT         NOT NULL,
    final_text    TEXT         NOT NULL,
    expected      TEXT         NOT NULL DEFAULT '',
    score         DOUBLE PRECISION NOT NULL DEFAULT 0,
    rules_applied JSONB        NOT NULL DEFAULT '{}'::jsonb,
    enabled_rules TEXT[]       NOT NULL DEFAULT '{}',
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_attempts_created_at
    ON attempts (created_at DESC);
`

// Store is a PostgreSQL-backed attempt history. All operations are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, and runs [Migrate] to ensure the schema exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres history: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres history: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres history: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Migrate creates or ensures the attempts table exists. It is idempotent and
// safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlAttempts); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

// Write implements [history.Store].
func (s *Store) Write(ctx context.Context, a history.Attempt) (history.Attempt, error) {
	const q = `
		INSERT INTO attempts
		    (raw_ipa, corrected_ipa, final_text, expected, score, rules_applied, enabled_rules)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	rulesJSON, err := json.Marshal(a.RulesApplied)
	if err != nil {
		return history.Attempt{}, fmt.Errorf("postgres history: marshal rules: %w", err)
	}
	enabled := a.EnabledRules
	if enabled == nil {
		enabled = []string{}
	}

	err = s.pool.QueryRow(ctx, q,
		a.RawIPA,
		a.CorrectedIPA,
		a.FinalText,
		a.Expected,
		a.Score,
		rulesJSON,
		enabled,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return history.Attempt{}, fmt.Errorf("postgres history: write: %w", err)
	}
	return a, nil
}

// Recent implements [history.Store]. It returns up to limit attempts ordered
// newest first. A limit of 0 or less returns every stored attempt.
func (s *Store) Recent(ctx context.Context, limit int) ([]history.Attempt, error) {
	q := `
		SELECT id, raw_ipa, corrected_ipa, final_text, expected, score, rules_applied, enabled_rules, created_at
		FROM   attempts
		ORDER  BY created_at DESC, id DESC`

	args := []any{}
	if limit > 0 {
		q += "\nLIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres history: recent: %w", err)
	}

	attempts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.Attempt, error) {
		var (
			a         history.Attempt
			rulesJSON []byte
		)
		err := row.Scan(
			&a.ID,
			&a.RawIPA,
			&a.CorrectedIPA,
			&a.FinalText,
			&a.Expected,
			&a.Score,
			&rulesJSON,
			&a.EnabledRules,
			&a.CreatedAt,
		)
		if err != nil {
			return history.Attempt{}, err
		}
		if err := json.Unmarshal(rulesJSON, &a.RulesApplied); err != nil {
			return history.Attempt{}, fmt.Errorf("unmarshal rules: %w", err)
		}
		return a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres history: scan: %w", err)
	}
	return attempts, nil
}

// Ping implements [history.Store].
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements [history.Store]. It releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}
