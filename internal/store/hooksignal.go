package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

func (p *Postgres) PutHookSignal(ctx context.Context, s *workflow.HookSignal) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return fmt.Errorf("store: marshal signal payload: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO hook_signal (signal_id, job_id, payload, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (signal_id) DO UPDATE SET job_id = EXCLUDED.job_id, payload = EXCLUDED.payload, created_at = EXCLUDED.created_at
	`, s.SignalID, s.JobID, payload, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: put hook signal: %w", err)
	}
	return nil
}

// ClaimHookSignal looks up and deletes a signal in one transaction,
// guaranteeing single delivery: two concurrent waiters can never both
// observe the same signal.
func (p *Postgres) ClaimHookSignal(ctx context.Context, signalID string) (*workflow.HookSignal, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT signal_id, job_id, payload, created_at FROM hook_signal WHERE signal_id = $1 FOR UPDATE
	`, signalID)
	var s workflow.HookSignal
	var payload []byte
	if err := row.Scan(&s.SignalID, &s.JobID, &payload, &s.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: claim hook signal: %w", err)
	}
	_ = json.Unmarshal(payload, &s.Payload)

	if _, err := tx.Exec(ctx, `DELETE FROM hook_signal WHERE signal_id = $1`, signalID); err != nil {
		return nil, fmt.Errorf("store: delete hook signal: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("store: commit claim: %w", err)
	}
	return &s, nil
}
