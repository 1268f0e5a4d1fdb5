package activity

import (
	"context"
	"fmt"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/durable"
)

// Worker is the two-legged bridge to work that runs outside the engine's
// own tick. Plain topics (no registered durable function) keep the
// original dispatch-and-wait shape: Enter enqueues a stream entry and
// suspends as Pending; Leave applies whatever a router consumer wrote
// back and reports success.
//
// A topic registered in Durable instead runs in-process: Enter and Leave
// both replay the registered function against the job's own record, and
// the function's own interruptions (sleepFor, waitFor, proxyActivity,
// execChild) are what reach outside the tick, via durable.Dispatch's
// store side effects. This is the bridge a canonical built-in graph uses
// to run durable functions without a seventh activity kind.
type Worker struct {
	Durable *durable.FuncRegistry
}

func (Worker) Name() workflow.ActivityKind { return workflow.KindWorker }

func (w Worker) Enter(ctx context.Context, env *Env) (workflow.Status, error) {
	if env.Def.Topic == "" {
		return workflow.StatusFatalActivity, fmt.Errorf("activity %s: worker kind requires a topic", env.Def.ID)
	}

	if fn, ok := w.lookupDurable(env.Def.Topic); ok {
		status, result, err := durable.Dispatch(ctx, env.Store, env.Log, env.Record, env.Def.ID, 0, fn)
		if err != nil {
			return status, fmt.Errorf("activity %s: %w", env.Def.ID, err)
		}
		if status == workflow.StatusSuccess {
			ApplyOutput(env.Def, env.Record, result)
		}
		return status, nil
	}

	payload := ResolveInput(env.Def, env.Record)
	entry := &workflow.StreamEntry{
		Topic:   env.Def.Topic,
		JobID:   env.Record.JobID,
		AID:     env.Def.ID,
		Payload: payload,
	}
	if err := env.Store.EnqueueStream(ctx, entry); err != nil {
		return workflow.StatusRetryable, fmt.Errorf("activity %s: enqueue: %w", env.Def.ID, err)
	}
	return workflow.StatusPending, nil
}

func (w Worker) Leave(ctx context.Context, env *Env, result map[string]any) (workflow.Status, error) {
	if fn, ok := w.lookupDurable(env.Def.Topic); ok {
		status, out, err := durable.Resume(ctx, env.Store, env.Log, env.Record, env.Def.ID, 0, fn, result)
		if err != nil {
			return status, fmt.Errorf("activity %s: %w", env.Def.ID, err)
		}
		if status == workflow.StatusSuccess {
			ApplyOutput(env.Def, env.Record, out)
		}
		return status, nil
	}

	ApplyOutput(env.Def, env.Record, result)
	return workflow.StatusSuccess, nil
}

func (w Worker) lookupDurable(topic string) (durable.Func, bool) {
	if w.Durable == nil {
		return nil, false
	}
	return w.Durable.Get(topic)
}
