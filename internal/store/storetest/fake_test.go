package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

func TestFakeHookSignalSingleDelivery(t *testing.T) {
	ctx := context.Background()
	f := New()

	require.NoError(t, f.PutHookSignal(ctx, &workflow.HookSignal{SignalID: "sig-1", JobID: "job-1"}))

	s, err := f.ClaimHookSignal(ctx, "sig-1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "job-1", s.JobID)

	s2, err := f.ClaimHookSignal(ctx, "sig-1")
	require.NoError(t, err)
	assert.Nil(t, s2)
}

func TestFakeClaimDueTasks(t *testing.T) {
	ctx := context.Background()
	f := New()
	now := time.Now()

	require.NoError(t, f.ScheduleTask(ctx, &workflow.TaskListEntry{ListKey: "scout", JobID: "a", WakeAt: now.Add(-time.Minute)}))
	require.NoError(t, f.ScheduleTask(ctx, &workflow.TaskListEntry{ListKey: "scout", JobID: "b", WakeAt: now.Add(time.Hour)}))

	due, err := f.ClaimDueTasks(ctx, "scout", now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "a", due[0].JobID)

	due2, err := f.ClaimDueTasks(ctx, "scout", now, 10)
	require.NoError(t, err)
	assert.Len(t, due2, 0)
}

func TestFakeScoutLockMutualExclusion(t *testing.T) {
	ctx := context.Background()
	f := New()

	ok1, err := f.TryAcquireScoutLock(ctx, "scout")
	require.NoError(t, err)
	assert.True(t, ok1)

	ok2, err := f.TryAcquireScoutLock(ctx, "scout")
	require.NoError(t, err)
	assert.False(t, ok2)

	require.NoError(t, f.ReleaseScoutLock(ctx, "scout"))

	ok3, err := f.TryAcquireScoutLock(ctx, "scout")
	require.NoError(t, err)
	assert.True(t, ok3)
}

func TestFakeUpdateJobUnlessStatus(t *testing.T) {
	ctx := context.Background()
	f := New()
	require.NoError(t, f.CreateJob(ctx, &workflow.JobRecord{JobID: "j1", Status: workflow.StatusPending, Fields: map[string]string{}}))

	changed, err := f.UpdateJobUnlessStatus(ctx, "j1", []workflow.Status{workflow.StatusSuccess}, func(r *workflow.JobRecord) {
		r.Status = workflow.StatusSuccess
	})
	require.NoError(t, err)
	assert.True(t, changed)

	changed2, err := f.UpdateJobUnlessStatus(ctx, "j1", []workflow.Status{workflow.StatusSuccess}, func(r *workflow.JobRecord) {
		r.Status = workflow.StatusPending
	})
	require.NoError(t, err)
	assert.False(t, changed2, "job already in excluded status, mutate must not apply")

	rec, err := f.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusSuccess, rec.Status)
}
