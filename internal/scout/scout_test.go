package scout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
	"github.com/flowmesh/flowmesh/internal/store/storetest"
)

type fakeResumer struct {
	woken []string
}

func (f *fakeResumer) Resume(ctx context.Context, jobID string, result map[string]any) (bool, error) {
	f.woken = append(f.woken, jobID)
	return true, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

func TestTickWakesDueTasks(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)

	require.NoError(t, fake.ScheduleTask(ctx, &workflow.TaskListEntry{ListKey: "sleep", JobID: "due1", WakeAt: past}))
	require.NoError(t, fake.ScheduleTask(ctx, &workflow.TaskListEntry{ListKey: "sleep", JobID: "notyet", WakeAt: future}))

	resumer := &fakeResumer{}
	s := New(fake, resumer, "sleep", testLogger(t))
	s.tick(ctx)

	assert.Equal(t, []string{"due1"}, resumer.woken)
}

func TestTickSkipsWhenLockHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	require.NoError(t, fake.ScheduleTask(ctx, &workflow.TaskListEntry{ListKey: "sleep", JobID: "due1", WakeAt: time.Now().Add(-time.Minute)}))

	held, err := fake.TryAcquireScoutLock(ctx, "scout:sleep")
	require.NoError(t, err)
	require.True(t, held)

	resumer := &fakeResumer{}
	s := New(fake, resumer, "sleep", testLogger(t))
	s.tick(ctx)

	assert.Empty(t, resumer.woken)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := storetest.New()
	resumer := &fakeResumer{}
	s := New(fake, resumer, "sleep", testLogger(t))
	s.PollInterval = 10 * time.Millisecond

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancel")
	}
}
