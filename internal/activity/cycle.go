package activity

import (
	"context"
	"fmt"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

// Cycle loops the job back to an ancestor activity id, the graph's
// looping construct. It never suspends; Enter simply rewrites the job's
// current activity id and reports success so the engine's transition
// evaluation re-enters the ancestor on the next tick.
type Cycle struct{}

func (Cycle) Name() workflow.ActivityKind { return workflow.KindCycle }

func (Cycle) Enter(ctx context.Context, env *Env) (workflow.Status, error) {
	if env.Def.Ancestor == "" {
		return workflow.StatusFatalActivity, fmt.Errorf("activity %s: cycle kind requires an ancestor", env.Def.ID)
	}
	env.Record.AID = env.Def.Ancestor
	return workflow.StatusSuccess, nil
}

func (Cycle) Leave(ctx context.Context, env *Env, result map[string]any) (workflow.Status, error) {
	return workflow.StatusSuccess, nil
}
