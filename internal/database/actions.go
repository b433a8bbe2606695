package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/uno/internal/cache"
)

// Schema creates the audit tables if they do not exist.
const Schema = `
CREATE TABLE IF NOT EXISTS matches (
	id         UUID PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'in_progress',
	start_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	end_time   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS match_actions (
	match_id       UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
	action_index   INT NOT NULL,
	actor_id       UUID,
	action_type    TEXT NOT NULL,
	action_payload JSONB NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (match_id, action_index)
);
`

// ActionStore archives match action records in postgres.
type ActionStore struct {
	pool *pgxpool.Pool
}

// NewActionStore wraps an open pool.
func NewActionStore(pool *pgxpool.Pool) *ActionStore {
	return &ActionStore{pool: pool}
}

// EnsureSchema applies Schema.
func (s *ActionStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// SaveActions writes a batch in one transaction. Replayed records are ignored.
func (s *ActionStore) SaveActions(ctx context.Context, recs []cache.MatchActionRecord) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := insertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("match %s action %d: %w", rec.MatchID, rec.ActionIndex, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx save actions: %w", err)
	}
	return nil
}

func insertActionTx(ctx context.Context, tx pgx.Tx, rec cache.MatchActionRecord) error {
	upsertMatch := `
		INSERT INTO matches (id, status)
		VALUES ($1, 'in_progress')
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertMatch, rec.MatchID); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	var actor *uuid.UUID
	if rec.ActorID != uuid.Nil {
		actor = &rec.ActorID
	}
	insertAction := `
		INSERT INTO match_actions (match_id, action_index, actor_id, action_type, action_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, to_timestamp($6::double precision / 1000))
		ON CONFLICT (match_id, action_index) DO NOTHING
	`
	if _, err := tx.Exec(ctx, insertAction,
		rec.MatchID, rec.ActionIndex, actor, rec.ActionType, payload, rec.Timestamp,
	); err != nil {
		return err
	}

	if rec.ActionType == cache.ActionFinalGameOver {
		finalize := `
			UPDATE matches
			SET status = 'completed', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, finalize, rec.MatchID); err != nil {
			return err
		}
	}
	return nil
}

// MarkAbandoned closes a match that is still in progress.
func (s *ActionStore) MarkAbandoned(ctx context.Context, matchID uuid.UUID) error {
	q := `
		UPDATE matches
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	if _, err := s.pool.Exec(ctx, q, matchID); err != nil {
		return fmt.Errorf("mark match %s abandoned: %w", matchID, err)
	}
	return nil
}

// MatchStatus returns the archived status of a match.
func (s *ActionStore) MatchStatus(ctx context.Context, matchID uuid.UUID) (string, error) {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM matches WHERE id = $1`, matchID).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("match %s status: %w", matchID, err)
	}
	return status, nil
}

// CountActions returns how many actions are archived for a match.
func (s *ActionStore) CountActions(ctx context.Context, matchID uuid.UUID) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM match_actions WHERE match_id = $1`, matchID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("match %s action count: %w", matchID, err)
	}
	return n, nil
}
