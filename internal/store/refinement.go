// Package store persists refinement bookkeeping. Suggestions themselves
// are never persisted; only usage records for the remote path, so cost
// and quality can be audited after the fact.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"redline.app/engine/common/id"
)

// RefinementRecord is one remote refiner call.
type RefinementRecord struct {
	ID               int64
	SessionID        string
	SuggestionID     string
	Stage            string // "refine" or "regenerate"
	Model            string
	LatencyMs        int
	PromptTokens     int
	CompletionTokens int
	Outcome          string // "suggestions", "no_improvement", "error"
	CreatedAt        time.Time
}

// RefinementStore records and lists refinement usage.
type RefinementStore interface {
	Record(ctx context.Context, rec RefinementRecord) error
	ListRecent(ctx context.Context, limit int32) ([]RefinementRecord, error)
}

type pgRefinementStore struct {
	pool *pgxpool.Pool
}

func NewRefinementStore(pool *pgxpool.Pool) RefinementStore {
	return &pgRefinementStore{pool: pool}
}

// EnsureSchema creates the refinements table if it does not exist.
// Called once at startup; a dedicated migration tool would be overkill
// for a single bookkeeping table.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS refinements (
			id                BIGINT PRIMARY KEY,
			session_id        TEXT NOT NULL,
			suggestion_id     TEXT NOT NULL DEFAULT '',
			stage             TEXT NOT NULL,
			model             TEXT NOT NULL,
			latency_ms        INT NOT NULL,
			prompt_tokens     INT NOT NULL,
			completion_tokens INT NOT NULL,
			outcome           TEXT NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("creating refinements table: %w", err)
	}
	return nil
}

func (s *pgRefinementStore) Record(ctx context.Context, rec RefinementRecord) error {
	if rec.ID == 0 {
		rec.ID = id.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO refinements
			(id, session_id, suggestion_id, stage, model, latency_ms, prompt_tokens, completion_tokens, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.SessionID, rec.SuggestionID, rec.Stage, rec.Model,
		rec.LatencyMs, rec.PromptTokens, rec.CompletionTokens, rec.Outcome)
	if err != nil {
		return fmt.Errorf("recording refinement: %w", err)
	}
	return nil
}

func (s *pgRefinementStore) ListRecent(ctx context.Context, limit int32) ([]RefinementRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, suggestion_id, stage, model, latency_ms,
		       prompt_tokens, completion_tokens, outcome, created_at
		FROM refinements
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing refinements: %w", err)
	}
	defer rows.Close()

	var out []RefinementRecord
	for rows.Next() {
		var rec RefinementRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.SuggestionID, &rec.Stage,
			&rec.Model, &rec.LatencyMs, &rec.PromptTokens, &rec.CompletionTokens,
			&rec.Outcome, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning refinement: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
