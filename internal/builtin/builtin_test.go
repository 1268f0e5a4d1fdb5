package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/internal/activity"
	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/durable"
	"github.com/flowmesh/flowmesh/internal/engine"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
	"github.com/flowmesh/flowmesh/internal/store/storetest"
)

type staticManifest struct{ m *workflow.AppManifest }

func (s staticManifest) Get(app, version string) (*workflow.AppManifest, bool) {
	if app == s.m.App && version == s.m.Version {
		return s.m, true
	}
	return nil, false
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

func TestManifestDecodesAndValidates(t *testing.T) {
	m, err := Manifest()
	require.NoError(t, err)
	assert.Equal(t, App, m.App)
	assert.Len(t, m.Graph.Activities, 3)
}

// TestReminderSleepsThenProxiesThenSignals drives the canonical reminder
// workflow end to end: trigger, a durable sleepFor/proxyActivities run
// suspending twice, and a final signal leg, exercising the worker kind's
// durable bridge rather than a hand-written test double.
func TestReminderSleepsThenProxiesThenSignals(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()

	man, err := Manifest()
	require.NoError(t, err)

	funcs := durable.NewFuncRegistry()
	require.NoError(t, RegisterFuncs(funcs))
	kinds := activity.NewRegistryWithDurable(funcs)

	eng := engine.New(fake, staticManifest{m: man}, kinds, testLogger(t))

	now := time.Now()
	rec := workflow.NewJobRecord("job-1", App, "1", "schedule", now)
	rec.SetField(workflow.MetadataKey("delay_ms"), "10")
	rec.SetField(workflow.MetadataKey("message"), "hello")
	require.NoError(t, fake.CreateJob(ctx, rec))

	done, err := eng.RunOnce(ctx, "job-1")
	require.NoError(t, err)
	assert.False(t, done)

	got, err := fake.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSleep, got.Status)
	assert.Equal(t, "remind", got.AID)

	// Scout-style wake: the sleep deadline passed, no external result.
	done, err = eng.Resume(ctx, "job-1", nil)
	require.NoError(t, err)
	assert.False(t, done)

	got, err = fake.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusProxyActivity, got.Status)

	entry, err := fake.ClaimNextStream(ctx, "builtin.notify")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "hello", entry.Payload["message"])

	// Router-style completion of the proxied notify call.
	done, err = eng.Resume(ctx, "job-1", map[string]any{"ack": true})
	require.NoError(t, err)
	assert.True(t, done)

	got, err = fake.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSuccess, got.Status)
	assert.Equal(t, "done", got.AID)
}
