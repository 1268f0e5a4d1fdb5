package store

import (
	"context"
	"fmt"
	"time"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

func (p *Postgres) ScheduleTask(ctx context.Context, t *workflow.TaskListEntry) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO task_list_entry (list_key, job_id, aid, wake_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (list_key, job_id) DO UPDATE SET aid = EXCLUDED.aid, wake_at = EXCLUDED.wake_at, claimed_at = NULL
	`, t.ListKey, t.JobID, t.AID, t.WakeAt)
	if err != nil {
		return fmt.Errorf("store: schedule task: %w", err)
	}
	return nil
}

// ClaimDueTasks claims up to limit entries whose wake_at has elapsed,
// using the same SKIP LOCKED claim pattern as the stream table so
// multiple scout replicas can poll concurrently without double-waking a job.
func (p *Postgres) ClaimDueTasks(ctx context.Context, listKey string, now time.Time, limit int) ([]*workflow.TaskListEntry, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT list_key, job_id, aid, wake_at
		FROM task_list_entry
		WHERE list_key = $1 AND claimed_at IS NULL AND wake_at <= $2
		ORDER BY wake_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $3
	`, listKey, now, limit)
	if err != nil {
		return nil, fmt.Errorf("store: claim due tasks: %w", err)
	}
	var out []*workflow.TaskListEntry
	var jobIDs []string
	for rows.Next() {
		var t workflow.TaskListEntry
		if err := rows.Scan(&t.ListKey, &t.JobID, &t.AID, &t.WakeAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan task: %w", err)
		}
		out = append(out, &t)
		jobIDs = append(jobIDs, t.JobID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, jid := range jobIDs {
		if _, err := tx.Exec(ctx, `UPDATE task_list_entry SET claimed_at = now() WHERE list_key = $1 AND job_id = $2`, listKey, jid); err != nil {
			return nil, fmt.Errorf("store: mark task claimed: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("store: commit claim: %w", err)
	}
	return out, nil
}

func (p *Postgres) CancelTask(ctx context.Context, listKey, jobID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM task_list_entry WHERE list_key = $1 AND job_id = $2`, listKey, jobID)
	if err != nil {
		return fmt.Errorf("store: cancel task: %w", err)
	}
	return nil
}
