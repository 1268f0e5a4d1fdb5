package durable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
	"github.com/flowmesh/flowmesh/internal/store"
)

// pollBackoff caps how long a waitFor suspension's poll task is scheduled
// ahead (an earlier deadline wins); sleep suspensions are scheduled for
// their own wake time instead.
const pollBackoff = 2 * time.Second

// Dispatch runs fn against a fresh replay Context for rec, translating
// whatever it returns into the status code and store side effects the
// "worker" activity's Enter and Leave legs need. It is the bridge between the
// durable runtime's typed interruptions and the engine's status-driven
// transition model: a SleepInterruption becomes a scheduled task-list
// entry and status 588, a WaitInterruption a poll task and 595, and so on;
// a RetryableError becomes 599 and any other error 597.
func Dispatch(ctx context.Context, st store.Adapter, log *logger.Logger, rec *workflow.JobRecord, aid string, dimension int, fn Func) (workflow.Status, map[string]any, error) {
	chain := Chain(RecoverInterceptor())
	dctx := NewContext(ctx, log, rec, dimension)

	result, err := chain(fn)(dctx)
	if err == nil {
		return workflow.StatusSuccess, result, nil
	}

	switch it := err.(type) {
	case *SleepInterruption:
		if tErr := st.ScheduleTask(ctx, &workflow.TaskListEntry{
			ListKey: "durable.sleep", JobID: rec.JobID, AID: aid, WakeAt: it.Until,
		}); tErr != nil {
			return workflow.StatusRetryable, nil, fmt.Errorf("durable: schedule sleep: %w", tErr)
		}
		rec.WakeAt = &it.Until
		rec.SetField(workflow.DurableScratchKey("pending_session"), it.SessionID)
		return workflow.StatusSleep, nil, nil

	case *WaitInterruption:
		wake := time.Now().Add(pollBackoff)
		if !it.Deadline.IsZero() && it.Deadline.Before(wake) {
			wake = it.Deadline
		}
		if tErr := st.ScheduleTask(ctx, &workflow.TaskListEntry{
			ListKey: "durable.wait", JobID: rec.JobID, AID: aid, WakeAt: wake,
		}); tErr != nil {
			return workflow.StatusRetryable, nil, fmt.Errorf("durable: schedule wait poll: %w", tErr)
		}
		rec.SetField(workflow.DurableScratchKey("pending_session"), it.SessionID)
		rec.SetField(workflow.DurableScratchKey("pending_signal"), it.SignalID)
		return workflow.StatusWaitForSignal, nil, nil

	case *ProxyInterruption:
		if sErr := st.EnqueueStream(ctx, &workflow.StreamEntry{
			Topic: it.Topic, JobID: rec.JobID, AID: aid, Payload: it.Payload,
		}); sErr != nil {
			return workflow.StatusRetryable, nil, fmt.Errorf("durable: enqueue proxy: %w", sErr)
		}
		rec.SetField(workflow.DurableScratchKey("pending_session"), it.SessionID)
		return workflow.StatusProxyActivity, nil, nil

	case *ChildInterruption:
		childID := workflow.MintKey(workflow.KeyJob, it.App, rec.JobID+"/"+it.SessionID)
		child := workflow.NewJobRecord(childID, it.App, rec.Version, it.EntryActivity, time.Now())
		child.GroupID = rec.GroupID
		for k, v := range it.Payload {
			child.SetField(workflow.MetadataKey(k), encodeAny(v))
		}
		if cErr := st.CreateJob(ctx, child); cErr != nil {
			return workflow.StatusRetryable, nil, fmt.Errorf("durable: create child job: %w", cErr)
		}
		rec.SetField(workflow.DurableScratchKey("pending_session"), it.SessionID)
		rec.SetField(workflow.DurableScratchKey("pending_child"), childID)
		return workflow.StatusExecChild, nil, nil

	default:
		var re *RetryableError
		if errors.As(err, &re) {
			return workflow.StatusRetryable, nil, err
		}
		return workflow.StatusFatalActivity, nil, err
	}
}

// Resume is called once the external event a Dispatch suspension was
// waiting on has completed: it writes the replay marker/result for the
// pending session, then re-invokes fn so it replays past every
// already-done call and either returns for good or hits its next
// suspension.
func Resume(ctx context.Context, st store.Adapter, log *logger.Logger, rec *workflow.JobRecord, aid string, dimension int, fn Func, result map[string]any) (workflow.Status, map[string]any, error) {
	sid, _ := rec.Field(workflow.DurableScratchKey("pending_session"))
	if sid != "" {
		dctx := NewContext(ctx, log, rec, dimension)
		if err := dctx.Resolve(sid, result); err != nil {
			return workflow.StatusFatalEngine, nil, fmt.Errorf("durable: resolve session: %w", err)
		}
	}
	return Dispatch(ctx, st, log, rec, aid, dimension, fn)
}

func encodeAny(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
