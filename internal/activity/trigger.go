package activity

import (
	"context"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

// Trigger is the entry-point kind: it has no Enter-side dispatch, it
// simply seeds the job's output with its resolved Input mapping and
// immediately succeeds, letting the engine evaluate transitions.
type Trigger struct{}

func (Trigger) Name() workflow.ActivityKind { return workflow.KindTrigger }

func (Trigger) Enter(ctx context.Context, env *Env) (workflow.Status, error) {
	for k, v := range ResolveInput(env.Def, env.Record) {
		env.Record.SetField(workflow.ActivityOutputKey(env.Def.ID, k), encodeFieldValue(v))
	}
	return workflow.StatusSuccess, nil
}

func (Trigger) Leave(ctx context.Context, env *Env, result map[string]any) (workflow.Status, error) {
	ApplyOutput(env.Def, env.Record, result)
	return workflow.StatusSuccess, nil
}
