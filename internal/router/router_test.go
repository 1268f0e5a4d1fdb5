package router

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
	calls   int
	lastJob string
	lastRes map[string]any
}

func (f *fakeResumer) Resume(ctx context.Context, jobID string, result map[string]any) (bool, error) {
	f.calls++
	f.lastJob = jobID
	f.lastRes = result
	return true, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}

func TestConsumerDispatchesClaimedEntryToHandler(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	require.NoError(t, fake.EnqueueStream(ctx, &workflow.StreamEntry{
		Topic:   "score-topic",
		JobID:   "j1",
		AID:     "score",
		Payload: map[string]any{"n": "3"},
	}))

	reg := NewRegistry()
	require.NoError(t, reg.Register("score-topic", func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		return map[string]any{"points": payload["n"]}, nil
	}))

	resumer := &fakeResumer{}
	c := NewConsumer(fake, reg, resumer, testLogger(t))
	c.sweep(ctx)

	assert.Equal(t, 1, resumer.calls)
	assert.Equal(t, "j1", resumer.lastJob)
	assert.Equal(t, "3", resumer.lastRes["points"])
}

func TestConsumerRecoversHandlerPanic(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	require.NoError(t, fake.EnqueueStream(ctx, &workflow.StreamEntry{
		Topic: "bad-topic",
		JobID: "j2",
		AID:   "boom",
	}))

	reg := NewRegistry()
	require.NoError(t, reg.Register("bad-topic", func(ctx context.Context, payload map[string]any) (map[string]any, error) {
		panic("kaboom")
	}))

	resumer := &fakeResumer{}
	c := NewConsumer(fake, reg, resumer, testLogger(t))
	assert.NotPanics(t, func() { c.sweep(ctx) })
	assert.Equal(t, 1, resumer.calls)
	assert.Contains(t, resumer.lastRes["error"], "panic")
}

func TestConsumerSkipsUnregisteredTopic(t *testing.T) {
	ctx := context.Background()
	fake := storetest.New()
	require.NoError(t, fake.EnqueueStream(ctx, &workflow.StreamEntry{Topic: "ghost-topic", JobID: "j3"}))

	reg := NewRegistry()
	resumer := &fakeResumer{}
	c := NewConsumer(fake, reg, resumer, testLogger(t))
	c.sweep(ctx)
	assert.Equal(t, 0, resumer.calls)
}

func TestConsumerRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := storetest.New()
	reg := NewRegistry()
	resumer := &fakeResumer{}
	c := NewConsumer(fake, reg, resumer, testLogger(t))
	c.PollInterval = 10 * time.Millisecond

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancel")
	}
}
