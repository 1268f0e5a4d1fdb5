// Package storetest provides an in-memory store.Adapter used by package
// tests that exercise the engine/durable/router/scout logic without a
// live Postgres instance, the same role hand-written repo fakes play for
// handler tests elsewhere in this codebase.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/store"
)

var _ store.Adapter = (*Fake)(nil)

type Fake struct {
	mu sync.Mutex

	jobs    map[string]*workflow.JobRecord
	streams map[string][]*workflow.StreamEntry
	tasks   map[string][]*workflow.TaskListEntry
	hooks   map[string]*workflow.HookSignal
	locks   map[string]bool

	subs map[string][]chan *workflow.QuorumMessage
}

func New() *Fake {
	return &Fake{
		jobs:    map[string]*workflow.JobRecord{},
		streams: map[string][]*workflow.StreamEntry{},
		tasks:   map[string][]*workflow.TaskListEntry{},
		hooks:   map[string]*workflow.HookSignal{},
		locks:   map[string]bool{},
		subs:    map[string][]chan *workflow.QuorumMessage{},
	}
}

func clone(rec *workflow.JobRecord) *workflow.JobRecord {
	cp := *rec
	cp.Fields = make(map[string]string, len(rec.Fields))
	for k, v := range rec.Fields {
		cp.Fields[k] = v
	}
	return &cp
}

func (f *Fake) CreateJob(ctx context.Context, rec *workflow.JobRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.jobs[rec.JobID]; exists {
		return fmt.Errorf("storetest: job %s already exists", rec.JobID)
	}
	f.jobs[rec.JobID] = clone(rec)
	return nil
}

func (f *Fake) GetJob(ctx context.Context, jobID string) (*workflow.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.jobs[jobID]
	if !ok {
		return nil, nil
	}
	return clone(rec), nil
}

func (f *Fake) UpdateJob(ctx context.Context, rec *workflow.JobRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[rec.JobID]; !ok {
		return fmt.Errorf("storetest: job %s not found", rec.JobID)
	}
	f.jobs[rec.JobID] = clone(rec)
	return nil
}

func (f *Fake) UpdateJobUnlessStatus(ctx context.Context, jobID string, excluded []workflow.Status, mutate func(*workflow.JobRecord)) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.jobs[jobID]
	if !ok {
		return false, nil
	}
	for _, ex := range excluded {
		if rec.Status == ex {
			return false, nil
		}
	}
	cp := clone(rec)
	mutate(cp)
	f.jobs[jobID] = cp
	return true, nil
}

func (f *Fake) DeleteJob(ctx context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, jobID)
	return nil
}

func (f *Fake) ListChildren(ctx context.Context, groupID, excludeJobID string) ([]*workflow.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*workflow.JobRecord
	for _, rec := range f.jobs {
		if rec.GroupID == groupID && rec.JobID != excludeJobID {
			out = append(out, clone(rec))
		}
	}
	return out, nil
}

func (f *Fake) EnqueueStream(ctx context.Context, e *workflow.StreamEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	cp := *e
	f.streams[e.Topic] = append(f.streams[e.Topic], &cp)
	return nil
}

func (f *Fake) ClaimNextStream(ctx context.Context, topic string) (*workflow.StreamEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.streams[topic]
	if len(q) == 0 {
		return nil, nil
	}
	sort.Slice(q, func(i, j int) bool { return q[i].CreatedAt.Before(q[j].CreatedAt) })
	e := q[0]
	f.streams[topic] = q[1:]
	cp := *e
	return &cp, nil
}

func (f *Fake) AckStream(ctx context.Context, entryID string) error {
	return nil
}

func (f *Fake) ScheduleTask(ctx context.Context, t *workflow.TaskListEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.tasks[t.ListKey]
	for i, existing := range list {
		if existing.JobID == t.JobID {
			cp := *t
			list[i] = &cp
			f.tasks[t.ListKey] = list
			return nil
		}
	}
	cp := *t
	f.tasks[t.ListKey] = append(list, &cp)
	return nil
}

func (f *Fake) ClaimDueTasks(ctx context.Context, listKey string, now time.Time, limit int) ([]*workflow.TaskListEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.tasks[listKey]
	var due []*workflow.TaskListEntry
	var remaining []*workflow.TaskListEntry
	for _, t := range list {
		if len(due) < limit && !t.WakeAt.After(now) {
			cp := *t
			due = append(due, &cp)
			continue
		}
		remaining = append(remaining, t)
	}
	f.tasks[listKey] = remaining
	return due, nil
}

func (f *Fake) CancelTask(ctx context.Context, listKey, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.tasks[listKey]
	out := list[:0]
	for _, t := range list {
		if t.JobID != jobID {
			out = append(out, t)
		}
	}
	f.tasks[listKey] = out
	return nil
}

func (f *Fake) PutHookSignal(ctx context.Context, s *workflow.HookSignal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.hooks[s.SignalID] = &cp
	return nil
}

func (f *Fake) ClaimHookSignal(ctx context.Context, signalID string) (*workflow.HookSignal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.hooks[signalID]
	if !ok {
		return nil, nil
	}
	delete(f.hooks, signalID)
	return s, nil
}

func (f *Fake) TryAcquireScoutLock(ctx context.Context, lockName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[lockName] {
		return false, nil
	}
	f.locks[lockName] = true
	return true, nil
}

func (f *Fake) ReleaseScoutLock(ctx context.Context, lockName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, lockName)
	return nil
}

func (f *Fake) Publish(ctx context.Context, channel string, msg *workflow.QuorumMessage) error {
	f.mu.Lock()
	subs := append([]chan *workflow.QuorumMessage{}, f.subs[channel]...)
	f.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

func (f *Fake) Subscribe(ctx context.Context, channel string) (<-chan *workflow.QuorumMessage, func(), error) {
	ch := make(chan *workflow.QuorumMessage, 64)
	f.mu.Lock()
	f.subs[channel] = append(f.subs[channel], ch)
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := f.subs[channel]
		for i, c := range list {
			if c == ch {
				f.subs[channel] = append(list[:i], list[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, cancel, nil
}
