package router

import (
	"context"
	"time"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
	"github.com/flowmesh/flowmesh/internal/store"
)

// Resumer is the engine surface the router needs: applying an external
// handler's result to the activity that dispatched it and continuing the
// job's transition evaluation. Declared locally (rather than importing
// engine.Engine directly) so router stays usable against any component
// that can resume a suspended job, including a test double.
type Resumer interface {
	Resume(ctx context.Context, jobID string, result map[string]any) (bool, error)
}

// Consumer polls every registered topic for claimable stream entries and
// dispatches them to their handler, the same ticker-poll-claim-dispatch
// shape used by other poll loops in this codebase, generalized from one
// global claimable-job queue to one claimable queue per topic.
type Consumer struct {
	Store        store.Adapter
	Registry     *Registry
	Engine       Resumer
	Log          *logger.Logger
	PollInterval time.Duration
}

func NewConsumer(st store.Adapter, reg *Registry, eng Resumer, log *logger.Logger) *Consumer {
	return &Consumer{
		Store:        st,
		Registry:     reg,
		Engine:       eng,
		Log:          log.With("component", "router.Consumer"),
		PollInterval: time.Second,
	}
}

// Run blocks, polling every topic on PollInterval until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) {
	interval := c.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep(ctx)
		}
	}
}

func (c *Consumer) sweep(ctx context.Context) {
	for _, topic := range c.Registry.Topics() {
		for {
			entry, err := c.Store.ClaimNextStream(ctx, topic)
			if err != nil {
				c.Log.Warn("claim next stream failed", "topic", topic, "error", err)
				break
			}
			if entry == nil {
				break
			}
			c.dispatch(ctx, entry)
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, entry *workflow.StreamEntry) {
	handler, ok := c.Registry.Get(entry.Topic)
	if !ok {
		c.Log.Warn("no handler registered for topic", "topic", entry.Topic, "job_id", entry.JobID)
		return
	}

	result := c.invoke(ctx, handler, entry)
	if _, err := c.Engine.Resume(ctx, entry.JobID, result); err != nil {
		c.Log.Warn("resume after handler failed", "job_id", entry.JobID, "aid", entry.AID, "error", err)
	}
}

// invoke runs handler with panic recovery, converting a panic into an
// error result rather than letting it take down the poll loop - the same
// "handler panic marks the job failed instead of crashing the worker"
// discipline other poll loops in this codebase use.
func (c *Consumer) invoke(ctx context.Context, handler HandlerFunc, entry *workflow.StreamEntry) map[string]any {
	var result map[string]any
	var handlerErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				c.Log.Error("handler panic", "job_id", entry.JobID, "topic", entry.Topic, "panic", r)
				handlerErr = &panicError{val: r}
			}
		}()
		result, handlerErr = handler(ctx, entry.Payload)
	}()
	if handlerErr != nil {
		c.Log.Warn("handler returned error", "job_id", entry.JobID, "topic", entry.Topic, "error", handlerErr)
		return map[string]any{"error": handlerErr.Error()}
	}
	return result
}

type panicError struct{ val any }

func (e *panicError) Error() string { return "router: handler panic" }
