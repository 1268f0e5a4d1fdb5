package client

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/platform/apierr"
)

// Signal delivers a durable hook signal: the next waitFor/hook activity
// that claims hookTopic picks up payload. The returned streamID is a
// client-facing handle for this delivery, not a durable store key.
func (c *client) Signal(ctx context.Context, hookTopic string, payload map[string]any) (string, error) {
	if hookTopic == "" {
		return "", apierr.New(400, "invalid_signal", errEmptyApp)
	}
	sig := &workflow.HookSignal{
		SignalID:  hookTopic,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if err := c.store.PutHookSignal(ctx, sig); err != nil {
		return "", apierr.New(502, "signal_failed", err)
	}
	return uuid.NewString(), nil
}

// InterruptOptions mirrors the client surface's interrupt(jobId, opts)
// contract: Reason is recorded on the job for later inspection, Descend
// propagates the interrupt to every execChild descendant sharing the
// root job's group id.
type InterruptOptions struct {
	Reason  string
	Descend bool
}

// Interrupt marks jobID (and, if Descend, every descendant sharing its
// group id) as interrupted: the reserved negative status that stops the
// engine from advancing it further, and cancels any outstanding
// sleep/wait task-list entries so the scout never wakes it again.
func (c *client) Interrupt(ctx context.Context, jobID string, opts InterruptOptions) (string, error) {
	rec, err := c.interruptOne(ctx, jobID, opts.Reason)
	if err != nil {
		return "", err
	}
	if opts.Descend {
		children, lerr := c.store.ListChildren(ctx, rec.GroupID, rec.JobID)
		if lerr != nil {
			return "", apierr.New(502, "interrupt_failed", lerr)
		}
		for _, child := range children {
			if _, err := c.interruptOne(ctx, child.JobID, opts.Reason); err != nil {
				c.log.Warn("client: interrupt: child failed", "job_id", child.JobID, "error", err)
			}
		}
	}
	return uuid.NewString(), nil
}

func (c *client) interruptOne(ctx context.Context, jobID, reason string) (*workflow.JobRecord, error) {
	var rec *workflow.JobRecord
	excluded := []workflow.Status{workflow.StatusSuccess, workflow.StatusInterrupted}
	changed, err := c.store.UpdateJobUnlessStatus(ctx, jobID, excluded, func(r *workflow.JobRecord) {
		r.Status = workflow.StatusInterrupted
		r.LastError = reason
		now := time.Now()
		r.LastErrorAt = &now
		r.UpdatedAt = now
		r.WakeAt = nil
		rec = r
	})
	if err != nil {
		return nil, apierr.New(502, "interrupt_failed", err)
	}
	if !changed {
		rec, err = c.getJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
	_ = c.store.CancelTask(ctx, "durable.sleep", jobID)
	_ = c.store.CancelTask(ctx, "durable.wait", jobID)
	return rec, nil
}

// Scrub deletes a job's HASH row entirely. Unlike Interrupt it is not
// reversible and does not cascade to children — callers that want a
// clean descendant tree removed should Interrupt(descend) first.
func (c *client) Scrub(ctx context.Context, jobID string) error {
	if err := c.store.DeleteJob(ctx, jobID); err != nil {
		return apierr.New(502, "scrub_failed", err)
	}
	return nil
}
