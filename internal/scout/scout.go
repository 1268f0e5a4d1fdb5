// Package scout implements the task/time-hook scout: a leader-elected
// poll loop that claims due task-list entries (sleepFor/waitFor wake-ups)
// and resumes the jobs waiting on them. Grounded on the same
// ticker-poll-claim loop used by the stream consumer, with leadership
// added via the
// store adapter's Postgres advisory-lock election so only one replica
// claims a given list at a time.
package scout

import (
	"context"
	"time"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
	"github.com/flowmesh/flowmesh/internal/store"
)

// Resumer mirrors router.Resumer: the engine surface the scout needs to
// wake a job once its scheduled time arrives.
type Resumer interface {
	Resume(ctx context.Context, jobID string, result map[string]any) (bool, error)
}

// Scout owns one task-list key's wake-up schedule (sleepFor/waitFor
// deadlines). Multiple Scout instances across replicas race for the
// advisory lock; only the winner claims and dispatches due entries on
// a given tick, so the same wake-up is never delivered twice.
type Scout struct {
	Store        store.Adapter
	Engine       Resumer
	Log          *logger.Logger
	ListKey      string
	PollInterval time.Duration
	BatchSize    int
}

func New(st store.Adapter, eng Resumer, listKey string, log *logger.Logger) *Scout {
	return &Scout{
		Store:        st,
		Engine:       eng,
		Log:          log.With("component", "scout.Scout", "list_key", listKey),
		ListKey:      listKey,
		PollInterval: time.Second,
		BatchSize:    50,
	}
}

// Run blocks, polling on PollInterval until ctx is canceled. Each tick
// that wins the election claims up to BatchSize due entries and resumes
// their jobs; losing the election is not an error, just a quiet tick.
func (s *Scout) Run(ctx context.Context) {
	interval := s.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scout) tick(ctx context.Context) {
	lockName := "scout:" + s.ListKey
	acquired, err := s.Store.TryAcquireScoutLock(ctx, lockName)
	if err != nil {
		s.Log.Warn("acquire scout lock failed", "error", err)
		return
	}
	if !acquired {
		return
	}
	defer func() {
		if err := s.Store.ReleaseScoutLock(ctx, lockName); err != nil {
			s.Log.Warn("release scout lock failed", "error", err)
		}
	}()

	batch := s.BatchSize
	if batch <= 0 {
		batch = 50
	}
	due, err := s.Store.ClaimDueTasks(ctx, s.ListKey, time.Now(), batch)
	if err != nil {
		s.Log.Warn("claim due tasks failed", "error", err)
		return
	}
	for _, t := range due {
		s.wake(ctx, t)
	}
}

func (s *Scout) wake(ctx context.Context, t *workflow.TaskListEntry) {
	if _, err := s.Engine.Resume(ctx, t.JobID, map[string]any{"woke_at": t.WakeAt}); err != nil {
		s.Log.Warn("resume on wake-up failed", "job_id", t.JobID, "aid", t.AID, "error", err)
	}
}
