package activity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/mapper"
	"github.com/flowmesh/flowmesh/internal/store/storetest"
)

func TestWorkerEnterEnqueuesStream(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	def := &workflow.ActivityDef{ID: "score", Kind: workflow.KindWorker, Topic: "score-topic", Input: map[string]string{"n": "{md/n}"}}
	rec := &workflow.JobRecord{JobID: "j1", Fields: map[string]string{"md/n": "3"}}

	env := &Env{Store: fake, Mapper: mapper.NewRegistry(), Def: def, Record: rec, Now: time.Now()}
	status, err := Worker{}.Enter(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, status)

	entry, err := fake.ClaimNextStream(ctx, "score-topic")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "j1", entry.JobID)
	assert.Equal(t, "3", entry.Payload["n"])
}

func TestHookThenAwaitDeliversSignal(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()

	hookDef := &workflow.ActivityDef{ID: "notify", Kind: workflow.KindHook, SignalID: "approved", Input: map[string]string{"decision": "yes"}}
	hookRec := &workflow.JobRecord{JobID: "publisher", Fields: map[string]string{}}
	_, err := Hook{}.Enter(ctx, &Env{Store: fake, Mapper: mapper.NewRegistry(), Def: hookDef, Record: hookRec, Now: time.Now()})
	require.NoError(t, err)

	awaitDef := &workflow.ActivityDef{ID: "gate", Kind: workflow.KindAwait, SignalID: "approved"}
	waiterRec := &workflow.JobRecord{JobID: "waiter", Fields: map[string]string{}}
	status, err := Await{}.Enter(ctx, &Env{Store: fake, Mapper: mapper.NewRegistry(), Def: awaitDef, Record: waiterRec, Now: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSuccess, status)
	v, ok := waiterRec.Field(workflow.ActivityOutputKey("gate", "decision"))
	require.True(t, ok)
	assert.Equal(t, "yes", v)

	// A second awaiter finds nothing left to claim.
	waiterRec2 := &workflow.JobRecord{JobID: "waiter2", Fields: map[string]string{}}
	status2, err := Await{}.Enter(ctx, &Env{Store: fake, Mapper: mapper.NewRegistry(), Def: awaitDef, Record: waiterRec2, Now: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusWaitForSignal, status2)
}

func TestCycleRewritesCurrentActivity(t *testing.T) {
	def := &workflow.ActivityDef{ID: "loop-back", Kind: workflow.KindCycle, Ancestor: "collect"}
	rec := &workflow.JobRecord{JobID: "j1", AID: "loop-back", Fields: map[string]string{}}
	status, err := Cycle{}.Enter(context.Background(), &Env{Def: def, Record: rec})
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSuccess, status)
	assert.Equal(t, "collect", rec.AID)
}
