// Package store defines the Store adapter contract and its Postgres
// implementation: JobRecord persistence, stream dispatch, task-list
// scheduling, hook signals, scout leader election, and the LISTEN/NOTIFY
// broadcast primitive the quorum plane builds on.
package store

import (
	"context"
	"time"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

// Adapter is every operation the engine, router, scout, and quorum
// packages need from durable storage. Exactly one implementation
// (*Postgres) is required by the design; an in-memory fake in
// internal/store/storetest implements the same interface for tests.
type Adapter interface {
	// JobRecord lifecycle.
	CreateJob(ctx context.Context, rec *workflow.JobRecord) error
	GetJob(ctx context.Context, jobID string) (*workflow.JobRecord, error)
	UpdateJob(ctx context.Context, rec *workflow.JobRecord) error
	// UpdateJobUnlessStatus applies updates unless the job's current
	// status is one of the given excluded statuses; returns whether a
	// row was actually changed. Mirrors the guarded-update discipline
	// the engine/durable runtime rely on to avoid clobbering a
	// terminal/canceled job.
	UpdateJobUnlessStatus(ctx context.Context, jobID string, excluded []workflow.Status, mutate func(*workflow.JobRecord)) (bool, error)
	// DeleteJob removes a job's HASH row entirely; the scrub operation's
	// backing primitive.
	DeleteJob(ctx context.Context, jobID string) error
	// ListChildren returns every job sharing groupID except excludeJobID,
	// the lookup interrupt's descend option walks to reach execChild
	// descendants of a root job.
	ListChildren(ctx context.Context, groupID, excludeJobID string) ([]*workflow.JobRecord, error)

	// Stream dispatch.
	EnqueueStream(ctx context.Context, e *workflow.StreamEntry) error
	ClaimNextStream(ctx context.Context, topic string) (*workflow.StreamEntry, error)
	AckStream(ctx context.Context, entryID string) error

	// Task list (durable timer) scheduling.
	ScheduleTask(ctx context.Context, t *workflow.TaskListEntry) error
	ClaimDueTasks(ctx context.Context, listKey string, now time.Time, limit int) ([]*workflow.TaskListEntry, error)
	CancelTask(ctx context.Context, listKey, jobID string) error

	// Hook signals: single delivery, deleted on claim.
	PutHookSignal(ctx context.Context, s *workflow.HookSignal) error
	ClaimHookSignal(ctx context.Context, signalID string) (*workflow.HookSignal, error)

	// Scout leader election via advisory lock.
	TryAcquireScoutLock(ctx context.Context, lockName string) (bool, error)
	ReleaseScoutLock(ctx context.Context, lockName string) error

	// Quorum broadcast (LISTEN/NOTIFY).
	Publish(ctx context.Context, channel string, msg *workflow.QuorumMessage) error
	Subscribe(ctx context.Context, channel string) (<-chan *workflow.QuorumMessage, func(), error)
}
