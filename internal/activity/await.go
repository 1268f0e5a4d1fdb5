package activity

import (
	"context"
	"fmt"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

// Await consumes a named signal another job's Hook activity produced. If
// the signal has not arrived yet, it suspends the job (595/wait-for-signal)
// without scheduling any re-check: the job stays suspended until Resume is
// called for it, and Leave then applies the resume result through the
// Output mapping.
type Await struct{}

func (Await) Name() workflow.ActivityKind { return workflow.KindAwait }

func (Await) Enter(ctx context.Context, env *Env) (workflow.Status, error) {
	if env.Def.SignalID == "" {
		return workflow.StatusFatalActivity, fmt.Errorf("activity %s: await kind requires signal_id", env.Def.ID)
	}
	sig, err := env.Store.ClaimHookSignal(ctx, env.Def.SignalID)
	if err != nil {
		return workflow.StatusRetryable, fmt.Errorf("activity %s: claim signal: %w", env.Def.ID, err)
	}
	if sig == nil {
		return workflow.StatusWaitForSignal, nil
	}
	for k, v := range sig.Payload {
		env.Record.SetField(workflow.ActivityOutputKey(env.Def.ID, k), encodeFieldValue(v))
	}
	return workflow.StatusSuccess, nil
}

func (Await) Leave(ctx context.Context, env *Env, result map[string]any) (workflow.Status, error) {
	ApplyOutput(env.Def, env.Record, result)
	return workflow.StatusSuccess, nil
}
