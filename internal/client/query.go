package client

import (
	"context"

	"github.com/flowmesh/flowmesh/internal/activity"
	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/mapper"
	"github.com/flowmesh/flowmesh/internal/platform/apierr"
)

// JobExport is the full, denormalized snapshot Export returns: the typed
// record plus its complete reserved-field map, in one value so a caller
// need not make a second GetRaw call to see durable-runtime scratch
// fields alongside the typed columns.
type JobExport struct {
	*workflow.JobRecord
	Raw map[string]string `json:"raw"`
}

func (c *client) getJob(ctx context.Context, jobID string) (*workflow.JobRecord, error) {
	rec, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, apierr.New(502, "get_job_failed", err)
	}
	if rec == nil {
		return nil, apierr.New(404, "job_not_found", errJobNotFound)
	}
	return rec, nil
}

func (c *client) GetStatus(ctx context.Context, jobID string) (workflow.Status, error) {
	rec, err := c.getJob(ctx, jobID)
	if err != nil {
		return 0, err
	}
	return rec.Status, nil
}

func (c *client) GetState(ctx context.Context, jobID string) (*workflow.JobRecord, error) {
	return c.getJob(ctx, jobID)
}

func (c *client) GetRaw(ctx context.Context, jobID string) (map[string]string, error) {
	rec, err := c.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rec.Fields))
	for k, v := range rec.Fields {
		out[k] = v
	}
	return out, nil
}

// GetQueryState resolves each entry in fields as a mapper path (e.g.
// "md.user_id", "remind/output/message") against the job's state tree,
// returning only the values present.
func (c *client) GetQueryState(ctx context.Context, jobID string, fields []string) (map[string]any, error) {
	rec, err := c.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	state := activity.BuildState(rec)
	out := map[string]any{}
	for _, f := range fields {
		if v, ok := mapper.Resolve(f, state); ok {
			out[f] = v
		}
	}
	return out, nil
}

func (c *client) Export(ctx context.Context, jobID string) (*JobExport, error) {
	rec, err := c.getJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]string, len(rec.Fields))
	for k, v := range rec.Fields {
		raw[k] = v
	}
	return &JobExport{JobRecord: rec, Raw: raw}, nil
}
