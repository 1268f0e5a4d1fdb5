package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

func (p *Postgres) EnqueueStream(ctx context.Context, e *workflow.StreamEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("store: marshal stream payload: %w", err)
	}
	meta, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("store: marshal stream meta: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO stream_entry (id, topic, job_id, aid, payload, meta, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, e.ID, e.Topic, e.JobID, e.AID, payload, meta, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: enqueue stream: %w", err)
	}
	return nil
}

// ClaimNextStream claims the oldest unclaimed entry for topic with
// SELECT ... FOR UPDATE SKIP LOCKED, the concrete pattern the job-queue
// repo uses to let many router consumers poll the same table safely.
func (p *Postgres) ClaimNextStream(ctx context.Context, topic string) (*workflow.StreamEntry, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT id, topic, job_id, aid, payload, meta, created_at
		FROM stream_entry
		WHERE topic = $1 AND claimed_at IS NULL
		ORDER BY created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`, topic)

	var e workflow.StreamEntry
	var payload, meta []byte
	if err := row.Scan(&e.ID, &e.Topic, &e.JobID, &e.AID, &payload, &meta, &e.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: claim stream: %w", err)
	}
	_ = json.Unmarshal(payload, &e.Payload)
	_ = json.Unmarshal(meta, &e.Meta)

	if _, err := tx.Exec(ctx, `UPDATE stream_entry SET claimed_at = now() WHERE id = $1`, e.ID); err != nil {
		return nil, fmt.Errorf("store: mark claimed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("store: commit claim: %w", err)
	}
	return &e, nil
}

func (p *Postgres) AckStream(ctx context.Context, entryID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM stream_entry WHERE id = $1`, entryID); err != nil {
		return fmt.Errorf("store: ack stream: %w", err)
	}
	return nil
}
