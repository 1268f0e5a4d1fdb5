package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/flowmesh/flowmesh/internal/activity"
	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/durable"
	"github.com/flowmesh/flowmesh/internal/engine"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
	"github.com/flowmesh/flowmesh/internal/quorum"
	"github.com/flowmesh/flowmesh/internal/store/manifeststore"
	"github.com/flowmesh/flowmesh/internal/store/storetest"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

func testRepo(t *testing.T) manifeststore.Repo {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&manifeststore.Record{}))
	return manifeststore.NewRepo(db, testLogger(t))
}

// greeterManifest is a two-step trigger->signal graph that completes
// synchronously within one RunOnce tick, enough to exercise Pub/PubSub
// without a worker dispatch round trip.
func greeterManifest(version string) *workflow.AppManifest {
	return &workflow.AppManifest{
		App:     "greeter",
		Version: version,
		Graph: workflow.Graph{
			Entry: "start",
			Activities: map[string]*workflow.ActivityDef{
				"start": {
					ID:          "start",
					Kind:        workflow.KindTrigger,
					Transitions: []workflow.Transition{{To: "finish"}},
				},
				"finish": {
					ID:       "finish",
					Kind:     workflow.KindSignal,
					SignalID: "greeter.done",
				},
			},
		},
	}
}

func newTestClient(t *testing.T) (Client, *storetest.Fake, manifeststore.Repo, *manifeststore.Cache) {
	t.Helper()
	fake := storetest.New()
	log := testLogger(t)
	repo := testRepo(t)
	cache := manifeststore.NewCache(repo)
	kinds := activity.NewRegistryWithDurable(durable.NewFuncRegistry())
	eng := engine.New(fake, cache, kinds, log)
	bus := quorum.NewBus(fake, log)
	c := New(fake, repo, cache, eng, bus, nil, log)
	return c, fake, repo, cache
}

func TestDeployActivateAndPub(t *testing.T) {
	ctx := context.Background()
	c, fake, _, _ := newTestClient(t)

	require.NoError(t, c.Deploy(ctx, greeterManifest("1")))
	require.NoError(t, c.Activate(ctx, "greeter", "1"))

	jobID, err := c.Pub(ctx, "greeter", "1", "start", map[string]any{"name": "ada"})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		rec, err := fake.GetJob(ctx, jobID)
		return err == nil && rec != nil && rec.Status == workflow.StatusSuccess
	}, time.Second, 10*time.Millisecond)
}

func TestPubSubBlocksUntilCompletion(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestClient(t)

	require.NoError(t, c.Deploy(ctx, greeterManifest("1")))
	require.NoError(t, c.Activate(ctx, "greeter", "1"))

	rec, err := c.PubSub(ctx, "greeter", "1", "start", map[string]any{"name": "ada"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSuccess, rec.Status)
}

func TestGetQueryStateResolvesMetadataPath(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestClient(t)

	require.NoError(t, c.Deploy(ctx, greeterManifest("1")))
	require.NoError(t, c.Activate(ctx, "greeter", "1"))

	jobID, err := c.Pub(ctx, "greeter", "1", "start", map[string]any{"name": "ada"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		st, err := c.GetStatus(ctx, jobID)
		return err == nil && st == workflow.StatusSuccess
	}, time.Second, 10*time.Millisecond)

	state, err := c.GetQueryState(ctx, jobID, []string{"md.name"})
	require.NoError(t, err)
	assert.Equal(t, "ada", state["md.name"])
}

func TestSignalDeliversHookPayload(t *testing.T) {
	ctx := context.Background()
	c, fake, _, _ := newTestClient(t)

	streamID, err := c.Signal(ctx, "approvals.order-1", map[string]any{"approved": true})
	require.NoError(t, err)
	require.NotEmpty(t, streamID)

	sig, err := fake.ClaimHookSignal(ctx, "approvals.order-1")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, true, sig.Payload["approved"])
}

func TestInterruptStopsFurtherAdvance(t *testing.T) {
	ctx := context.Background()
	c, fake, _, _ := newTestClient(t)

	rec := workflow.NewJobRecord("job-interrupt", "greeter", "1", "start", time.Now())
	require.NoError(t, fake.CreateJob(ctx, rec))

	streamID, err := c.Interrupt(ctx, rec.JobID, InterruptOptions{Reason: "operator request"})
	require.NoError(t, err)
	require.NotEmpty(t, streamID)

	got, err := fake.GetJob(ctx, rec.JobID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInterrupted, got.Status)
	assert.Equal(t, "operator request", got.LastError)

	// A second interrupt on an already-interrupted job is a no-op, not an error.
	_, err = c.Interrupt(ctx, rec.JobID, InterruptOptions{Reason: "again"})
	require.NoError(t, err)
	got, err = fake.GetJob(ctx, rec.JobID)
	require.NoError(t, err)
	assert.Equal(t, "operator request", got.LastError)
}

func TestInterruptDescendCancelsChildren(t *testing.T) {
	ctx := context.Background()
	c, fake, _, _ := newTestClient(t)

	root := workflow.NewJobRecord("root", "greeter", "1", "start", time.Now())
	require.NoError(t, fake.CreateJob(ctx, root))
	child := workflow.NewJobRecord("root/child-1", "greeter", "1", "start", time.Now())
	child.GroupID = root.GroupID
	require.NoError(t, fake.CreateJob(ctx, child))

	_, err := c.Interrupt(ctx, root.JobID, InterruptOptions{Reason: "cascade", Descend: true})
	require.NoError(t, err)

	gotChild, err := fake.GetJob(ctx, child.JobID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInterrupted, gotChild.Status)
}

func TestScrubDeletesJob(t *testing.T) {
	ctx := context.Background()
	c, fake, _, _ := newTestClient(t)

	rec := workflow.NewJobRecord("job-scrub", "greeter", "1", "start", time.Now())
	require.NoError(t, fake.CreateJob(ctx, rec))

	require.NoError(t, c.Scrub(ctx, rec.JobID))

	got, err := fake.GetJob(ctx, rec.JobID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRollCallCollectsPongFromResponder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fake := storetest.New()
	log := testLogger(t)
	cache := manifeststore.NewCache(testRepo(t))
	kinds := activity.NewRegistryWithDurable(durable.NewFuncRegistry())

	busA := quorum.NewBus(fake, log)
	engA := engine.New(fake, cache, kinds, log)
	responder := New(fake, testRepo(t), cache, engA, busA, nil, log)
	require.NoError(t, responder.Init(ctx))

	busB := quorum.NewBus(fake, log)
	engB := engine.New(fake, cache, kinds, log)
	caller := New(fake, testRepo(t), cache, engB, busB, nil, log)

	profiles, err := caller.RollCall(ctx, 200*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
}

func TestThrottleWithoutConfiguredCacheAlwaysAllows(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := newTestClient(t)

	ok, err := c.Throttle(ctx, "some-key", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}
