package activity

import (
	"context"
	"fmt"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

// Hook publishes a named signal other jobs can waitFor; it is a
// fire-and-forget leg that never suspends the publishing job itself.
type Hook struct{}

func (Hook) Name() workflow.ActivityKind { return workflow.KindHook }

func (Hook) Enter(ctx context.Context, env *Env) (workflow.Status, error) {
	if env.Def.SignalID == "" {
		return workflow.StatusFatalActivity, fmt.Errorf("activity %s: hook kind requires signal_id", env.Def.ID)
	}
	payload := ResolveInput(env.Def, env.Record)
	sig := &workflow.HookSignal{
		SignalID: env.Def.SignalID,
		JobID:    env.Record.JobID,
		Payload:  payload,
	}
	if err := env.Store.PutHookSignal(ctx, sig); err != nil {
		return workflow.StatusRetryable, fmt.Errorf("activity %s: put signal: %w", env.Def.ID, err)
	}
	return workflow.StatusSuccess, nil
}

func (Hook) Leave(ctx context.Context, env *Env, result map[string]any) (workflow.Status, error) {
	ApplyOutput(env.Def, env.Record, result)
	return workflow.StatusSuccess, nil
}
