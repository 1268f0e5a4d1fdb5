package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

func (p *Postgres) CreateJob(ctx context.Context, rec *workflow.JobRecord) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("store: marshal fields: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO job_state (job_id, group_id, app, version, aid, status, attempts,
			trace_id, span_id, created_at, updated_at, wake_at, fields)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, rec.JobID, rec.GroupID, rec.App, rec.Version, rec.AID, rec.Status, rec.Attempts,
		rec.TraceID, rec.SpanID, rec.CreatedAt, rec.UpdatedAt, rec.WakeAt, fields)
	if err != nil {
		return fmt.Errorf("store: create job: %w", err)
	}
	return nil
}

func (p *Postgres) GetJob(ctx context.Context, jobID string) (*workflow.JobRecord, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT job_id, group_id, app, version, aid, status, attempts, trace_id, span_id,
			created_at, updated_at, locked_at, heartbeat_at, wake_at, last_error_at, last_error, fields
		FROM job_state WHERE job_id = $1
	`, jobID)
	rec, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get job: %w", err)
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*workflow.JobRecord, error) {
	var rec workflow.JobRecord
	var fields []byte
	var status int
	if err := row.Scan(
		&rec.JobID, &rec.GroupID, &rec.App, &rec.Version, &rec.AID, &status, &rec.Attempts,
		&rec.TraceID, &rec.SpanID, &rec.CreatedAt, &rec.UpdatedAt, &rec.LockedAt, &rec.HeartbeatAt,
		&rec.WakeAt, &rec.LastErrorAt, &rec.LastError, &fields,
	); err != nil {
		return nil, err
	}
	rec.Status = workflow.Status(status)
	rec.Fields = map[string]string{}
	if len(fields) > 0 {
		_ = json.Unmarshal(fields, &rec.Fields)
	}
	return &rec, nil
}

func (p *Postgres) UpdateJob(ctx context.Context, rec *workflow.JobRecord) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("store: marshal fields: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		UPDATE job_state SET aid=$2, status=$3, attempts=$4, updated_at=$5, locked_at=$6,
			heartbeat_at=$7, wake_at=$8, last_error_at=$9, last_error=$10, fields=$11,
			trace_id=$12, span_id=$13
		WHERE job_id=$1
	`, rec.JobID, rec.AID, rec.Status, rec.Attempts, rec.UpdatedAt, rec.LockedAt,
		rec.HeartbeatAt, rec.WakeAt, rec.LastErrorAt, rec.LastError, fields, rec.TraceID, rec.SpanID)
	if err != nil {
		return fmt.Errorf("store: update job: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteJob(ctx context.Context, jobID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM job_state WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("store: delete job: %w", err)
	}
	return nil
}

func (p *Postgres) ListChildren(ctx context.Context, groupID, excludeJobID string) ([]*workflow.JobRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT job_id, group_id, app, version, aid, status, attempts, trace_id, span_id,
			created_at, updated_at, locked_at, heartbeat_at, wake_at, last_error_at, last_error, fields
		FROM job_state WHERE group_id = $1 AND job_id <> $2
	`, groupID, excludeJobID)
	if err != nil {
		return nil, fmt.Errorf("store: list children: %w", err)
	}
	defer rows.Close()
	var out []*workflow.JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan child: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateJobUnlessStatus loads the job, applies mutate, and writes it back
// only if the job's current status is not one of excluded — the same
// guarded-update discipline as other conditional-update helpers in this
// codebase, adapted to a read-mutate-write shape because the durable
// runtime's mutations aren't a flat field set but arbitrary JobRecord edits.
func (p *Postgres) UpdateJobUnlessStatus(ctx context.Context, jobID string, excluded []workflow.Status, mutate func(*workflow.JobRecord)) (bool, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT job_id, group_id, app, version, aid, status, attempts, trace_id, span_id,
			created_at, updated_at, locked_at, heartbeat_at, wake_at, last_error_at, last_error, fields
		FROM job_state WHERE job_id = $1 FOR UPDATE
	`, jobID)
	rec, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("store: select for update: %w", err)
	}
	for _, ex := range excluded {
		if rec.Status == ex {
			return false, nil
		}
	}
	mutate(rec)
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return false, fmt.Errorf("store: marshal fields: %w", err)
	}
	_, err = tx.Exec(ctx, `
		UPDATE job_state SET aid=$2, status=$3, attempts=$4, updated_at=$5, locked_at=$6,
			heartbeat_at=$7, wake_at=$8, last_error_at=$9, last_error=$10, fields=$11,
			trace_id=$12, span_id=$13
		WHERE job_id=$1
	`, rec.JobID, rec.AID, rec.Status, rec.Attempts, rec.UpdatedAt, rec.LockedAt,
		rec.HeartbeatAt, rec.WakeAt, rec.LastErrorAt, rec.LastError, fields, rec.TraceID, rec.SpanID)
	if err != nil {
		return false, fmt.Errorf("store: update: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("store: commit: %w", err)
	}
	return true, nil
}
