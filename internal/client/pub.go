package client

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/platform/apierr"
)

// Pub creates a job and returns its id immediately without waiting for
// completion; the first synchronous tick runs in a detached goroutine so
// a manifest bug or slow first activity never blocks the caller. Errors
// from that first tick are logged, not surfaced, matching the
// fire-and-forget contract.
func (c *client) Pub(ctx context.Context, app, version, entryActivity string, payload map[string]any) (string, error) {
	rec, err := c.newJob(ctx, app, version, entryActivity, payload)
	if err != nil {
		return "", err
	}
	go func() {
		runCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := c.engine.RunOnce(runCtx, rec.JobID); err != nil {
			c.log.Warn("client: pub: first tick failed", "job_id", rec.JobID, "error", err)
		}
	}()
	return rec.JobID, nil
}

// PubSub creates a job, runs it synchronously, and polls the store until
// it reaches a terminal status or timeout elapses. The poll is
// client-side only per the interrupt/timeout contract: a PubSub timeout
// stops waiting, it does not touch the job.
func (c *client) PubSub(ctx context.Context, app, version, entryActivity string, payload map[string]any, timeout time.Duration) (*workflow.JobRecord, error) {
	rec, err := c.newJob(ctx, app, version, entryActivity, payload)
	if err != nil {
		return nil, err
	}

	waitCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if _, err := c.engine.RunOnce(waitCtx, rec.JobID); err != nil {
		return nil, apierr.New(502, "pubsub_failed", err)
	}

	const pollInterval = 25 * time.Millisecond
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		cur, err := c.store.GetJob(waitCtx, rec.JobID)
		if err != nil {
			return nil, apierr.New(502, "pubsub_failed", err)
		}
		if cur == nil {
			return nil, apierr.New(404, "job_not_found", errJobNotFound)
		}
		if cur.Status.IsTerminal() {
			if cur.Status != workflow.StatusSuccess {
				return cur, apierr.New(422, "job_failed", fmt.Errorf("job %s ended in status %d: %s", cur.JobID, cur.Status, cur.LastError))
			}
			return cur, nil
		}
		select {
		case <-waitCtx.Done():
			return nil, apierr.New(408, "pubsub_timeout", waitCtx.Err())
		case <-ticker.C:
		}
	}
}

func (c *client) newJob(ctx context.Context, app, version, entryActivity string, payload map[string]any) (*workflow.JobRecord, error) {
	if app == "" || entryActivity == "" {
		return nil, apierr.New(400, "invalid_job", errEmptyApp)
	}
	jobID := uuid.NewString()
	rec := workflow.NewJobRecord(jobID, app, version, entryActivity, time.Now())
	for k, v := range payload {
		rec.SetField(workflow.MetadataKey(k), encodeAny(v))
	}
	if err := c.store.CreateJob(ctx, rec); err != nil {
		return nil, apierr.New(502, "create_job_failed", err)
	}
	return rec, nil
}

func encodeAny(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
