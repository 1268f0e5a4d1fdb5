package activity

import (
	"context"
	"fmt"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

// Signal is the quorum-facing counterpart to Hook: instead of writing a
// durable HookSignal row for another job to claim, it broadcasts a
// best-effort QuorumMessage on the mesh so live subscribers (e.g. a
// client surface long-poll or another engine replica's cache) observe
// the event immediately, without waiting on the scout's poll cadence.
type Signal struct {
	Channel string // quorum channel name to publish on; defaults to Def.SignalID
}

func (Signal) Name() workflow.ActivityKind { return workflow.KindSignal }

func (s Signal) Enter(ctx context.Context, env *Env) (workflow.Status, error) {
	if env.Def.SignalID == "" {
		return workflow.StatusFatalActivity, fmt.Errorf("activity %s: signal kind requires signal_id", env.Def.ID)
	}
	channel := s.Channel
	if channel == "" {
		channel = env.Def.SignalID
	}
	payload := ResolveInput(env.Def, env.Record)
	msg := &workflow.QuorumMessage{
		Type:    "signal",
		Topic:   env.Def.SignalID,
		Payload: payload,
		Timestamp: env.Now,
	}
	if err := env.Store.Publish(ctx, channel, msg); err != nil {
		return workflow.StatusRetryable, fmt.Errorf("activity %s: publish: %w", env.Def.ID, err)
	}
	return workflow.StatusSuccess, nil
}

func (Signal) Leave(ctx context.Context, env *Env, result map[string]any) (workflow.Status, error) {
	ApplyOutput(env.Def, env.Record, result)
	return workflow.StatusSuccess, nil
}
