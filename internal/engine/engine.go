// Package engine implements the interpreter main loop: resolving the
// current activity for a job, dispatching its Enter/Leave legs, applying
// retry/backoff, and evaluating transitions. Grounded on the same
// stage-iteration loop shape used elsewhere for DAG engines in this
// codebase, generalized from a fixed ordered stage list to an
// AppManifest's activity graph.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/flowmesh/flowmesh/internal/activity"
	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/mapper"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
	"github.com/flowmesh/flowmesh/internal/store"
)

// ManifestSource resolves an (app, version) pair to its AppManifest.
type ManifestSource interface {
	Get(app, version string) (*workflow.AppManifest, bool)
}

// maxStepsPerTick bounds how many synchronously-completing activities
// (trigger/hook/cycle/signal/resolved-await) one RunOnce call chains
// through before yielding, so a manifest bug that cycles forever cannot
// wedge a goroutine forever; the job is simply picked up again next tick.
const maxStepsPerTick = 25

type Engine struct {
	Store     store.Adapter
	Manifests ManifestSource
	Kinds     *activity.Registry
	Mapper    *mapper.Registry
	Log       *logger.Logger
}

func New(st store.Adapter, manifests ManifestSource, kinds *activity.Registry, log *logger.Logger) *Engine {
	if kinds == nil {
		kinds = activity.NewRegistry()
	}
	return &Engine{Store: st, Manifests: manifests, Kinds: kinds, Mapper: mapper.NewRegistry(), Log: log.With("component", "engine.Engine")}
}

// RunOnce advances jobID by as many synchronously-completing activities
// as it can in one tick, persisting after every leg. It returns done=true
// once the job reaches a terminal status (success or fatal failure).
func (e *Engine) RunOnce(ctx context.Context, jobID string) (done bool, err error) {
	rec, manifest, preErr := e.loadForAdvance(ctx, jobID)
	if preErr != nil || rec == nil {
		return rec == nil, preErr
	}
	return e.advanceFrom(ctx, rec, manifest, 0)
}

// Resume is the router/scout entry point for an activity whose Enter leg
// suspended (worker dispatch, sleepFor/waitFor, proxyActivity, execChild):
// it applies the external completion via the activity kind's Leave leg,
// then continues the same transition-evaluation loop RunOnce uses, so a
// worker's result can chain synchronously into whatever follows it in the
// graph without waiting for a separate tick.
func (e *Engine) Resume(ctx context.Context, jobID string, result map[string]any) (done bool, err error) {
	rec, manifest, preErr := e.loadForAdvance(ctx, jobID)
	if preErr != nil || rec == nil {
		return rec == nil, preErr
	}

	def := manifest.Lookup(rec.AID)
	if def == nil {
		return e.failJob(ctx, rec, fmt.Errorf("engine: activity %s not found in app=%s", rec.AID, rec.App))
	}
	kind, ok := e.Kinds.Get(def.Kind)
	if !ok {
		return e.failJob(ctx, rec, fmt.Errorf("engine: no kind registered for %q", def.Kind))
	}
	env := &activity.Env{Store: e.Store, Mapper: e.Mapper, Log: e.Log, Def: def, Record: rec, Now: time.Now()}
	status, legErr := kind.Leave(ctx, env, result)
	if legErr != nil {
		return e.handleLegError(ctx, rec, def, status, legErr)
	}

	next, done, err := e.handleLegSuccess(ctx, rec, def, status)
	if err != nil || !next {
		return done, err
	}
	return e.advanceFrom(ctx, rec, manifest, 1)
}

func (e *Engine) loadForAdvance(ctx context.Context, jobID string) (*workflow.JobRecord, *workflow.AppManifest, error) {
	rec, err := e.Store.GetJob(ctx, jobID)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: get job: %w", err)
	}
	if rec == nil {
		return nil, nil, fmt.Errorf("engine: job %s not found", jobID)
	}
	if rec.Status.IsTerminal() {
		return nil, nil, nil
	}
	manifest, ok := e.Manifests.Get(rec.App, rec.Version)
	if !ok {
		_, err := e.failJob(ctx, rec, fmt.Errorf("engine: no manifest for app=%s version=%s", rec.App, rec.Version))
		return nil, nil, err
	}
	return rec, manifest, nil
}

// advanceFrom walks rec.AID forward by repeatedly entering activities
// that complete synchronously, up to maxStepsPerTick - stepsAlready.
func (e *Engine) advanceFrom(ctx context.Context, rec *workflow.JobRecord, manifest *workflow.AppManifest, stepsAlready int) (done bool, err error) {
	for step := stepsAlready; step < maxStepsPerTick; step++ {
		def := manifest.Lookup(rec.AID)
		if def == nil {
			return e.failJob(ctx, rec, fmt.Errorf("engine: activity %s not found in app=%s", rec.AID, rec.App))
		}
		kind, ok := e.Kinds.Get(def.Kind)
		if !ok {
			return e.failJob(ctx, rec, fmt.Errorf("engine: no kind registered for %q", def.Kind))
		}

		env := &activity.Env{Store: e.Store, Mapper: e.Mapper, Log: e.Log, Def: def, Record: rec, Now: time.Now()}
		status, legErr := kind.Enter(ctx, env)
		if legErr != nil {
			return e.handleLegError(ctx, rec, def, status, legErr)
		}

		next, stepDone, stepErr := e.handleLegSuccess(ctx, rec, def, status)
		if stepErr != nil || !next {
			return stepDone, stepErr
		}
	}

	e.Log.Warn("engine: max steps per tick reached, yielding", "job_id", rec.JobID, "aid", rec.AID)
	return false, nil
}

// handleLegSuccess applies a non-error Enter/Leave result: fatal statuses
// fail the job, non-Success statuses persist as a suspension and stop the
// loop, and Status success evaluates transitions. It returns advance=true
// only when the caller's loop should keep stepping (a transition moved
// rec.AID to a new activity).
func (e *Engine) handleLegSuccess(ctx context.Context, rec *workflow.JobRecord, def *workflow.ActivityDef, status workflow.Status) (advance bool, done bool, err error) {
	rec.Status = status
	rec.UpdatedAt = time.Now()

	if status.IsFatal() {
		done, err = e.failJob(ctx, rec, fmt.Errorf("engine: activity %s returned fatal status %d", def.ID, status))
		return false, done, err
	}
	if status != workflow.StatusSuccess {
		// Suspension (sleep/collator/execChild/proxyActivity/waitForSignal)
		// or a dispatched-but-not-yet-completed leg (worker's Pending):
		// both wait on something outside this tick — a scout wake-up, a
		// sibling fan-in, or a router-driven Leave call.
		if err := e.Store.UpdateJob(ctx, rec); err != nil {
			return false, false, fmt.Errorf("engine: persist suspension: %w", err)
		}
		return false, false, nil
	}

	// Status success: evaluate transitions to find the next activity.
	rec.Attempts = 0
	state := activity.BuildState(rec)
	t, ok := selectTransition(def, state)
	if !ok {
		rec.Status = workflow.StatusSuccess
		rec.UpdatedAt = time.Now()
		if err := e.Store.UpdateJob(ctx, rec); err != nil {
			return false, false, fmt.Errorf("engine: persist completion: %w", err)
		}
		return false, true, nil
	}
	rec.AID = t.To
	rec.Status = workflow.StatusPending
	rec.UpdatedAt = time.Now()
	if err := e.Store.UpdateJob(ctx, rec); err != nil {
		return false, false, fmt.Errorf("engine: persist transition: %w", err)
	}
	return true, false, nil
}

func (e *Engine) failJob(ctx context.Context, rec *workflow.JobRecord, cause error) (bool, error) {
	rec.Status = workflow.StatusFatalEngine
	rec.LastError = cause.Error()
	now := time.Now()
	rec.LastErrorAt = &now
	rec.UpdatedAt = now
	if err := e.Store.UpdateJob(ctx, rec); err != nil {
		return false, fmt.Errorf("engine: persist failure: %w", err)
	}
	e.Log.Error("engine: job failed", "job_id", rec.JobID, "error", cause)
	return true, cause
}

func (e *Engine) handleLegError(ctx context.Context, rec *workflow.JobRecord, def *workflow.ActivityDef, status workflow.Status, cause error) (bool, error) {
	if status.IsFatal() {
		return e.failJob(ctx, rec, cause)
	}
	rec.Attempts++
	if rec.Attempts >= maxAttempts(def.Retry) {
		return e.failJob(ctx, rec, fmt.Errorf("activity %s: %w", def.ID, &maxAttemptsErr{attempts: rec.Attempts, err: cause}))
	}
	backoff := computeBackoff(def.Retry, rec.Attempts)
	wake := time.Now().Add(backoff)
	rec.WakeAt = &wake
	rec.Status = workflow.StatusRetryable
	rec.LastError = cause.Error()
	now := time.Now()
	rec.LastErrorAt = &now
	rec.UpdatedAt = now
	if err := e.Store.UpdateJob(ctx, rec); err != nil {
		return false, fmt.Errorf("engine: persist retry state: %w", err)
	}
	e.Log.Warn("engine: activity failed, scheduled retry", "job_id", rec.JobID, "aid", def.ID, "attempts", rec.Attempts, "backoff", backoff)
	return false, nil
}

type maxAttemptsErr struct {
	attempts int
	err      error
}

func (e *maxAttemptsErr) Error() string {
	return fmt.Sprintf("max attempts (%d) exceeded: %v", e.attempts, e.err)
}
func (e *maxAttemptsErr) Unwrap() error { return e.err }
