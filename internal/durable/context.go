package durable

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
)

// Context is handed to a user-authored durable function on every replay
// tick. Each call to a durable primitive (SleepFor, WaitFor,
// ProxyActivities, ExecChild, IsSideEffectAllowed) consumes the next deterministic
// counter for its prefix, mirroring the sessionId scheme
// "-{prefix}{dim}-{idx}-": the same call site, reached in the same order
// on every replay, always gets the same session id, so a completed call's
// replay marker is found again and its cached result returned instead of
// re-suspending or re-executing a side effect.
type Context struct {
	Ctx context.Context
	Log *logger.Logger

	rec       *workflow.JobRecord
	dimension int
	counters  map[string]int
}

// NewContext builds a fresh replay context for one engine tick. dimension
// distinguishes parallel branches of the same function (0 for the main
// branch); counters always start at zero because the function body is
// re-executed from the top in the same order every tick.
func NewContext(ctx context.Context, log *logger.Logger, rec *workflow.JobRecord, dimension int) *Context {
	return &Context{
		Ctx:       ctx,
		Log:       log,
		rec:       rec,
		dimension: dimension,
		counters:  map[string]int{},
	}
}

// Record exposes the underlying JobRecord for activity input/output
// mapping; durable primitives must go through the methods below, not
// direct field mutation, to preserve the replay-marker discipline.
func (c *Context) Record() *workflow.JobRecord { return c.rec }

func (c *Context) nextIndex(prefix string) int {
	idx := c.counters[prefix]
	c.counters[prefix] = idx + 1
	return idx
}

func (c *Context) sessionID(prefix string, idx int) string {
	return workflow.ReplayMarkerKey(prefix, c.dimension, idx)
}

func (c *Context) markDone(sessionID string, result any) error {
	c.rec.SetField(sessionID, "done")
	if result == nil {
		return nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return err
	}
	c.rec.SetField(sessionID+"/result", string(b))
	return nil
}

func (c *Context) isDone(sessionID string) bool {
	v, ok := c.rec.Field(sessionID)
	return ok && v == "done"
}

func (c *Context) readResult(sessionID string, out any) error {
	raw, ok := c.rec.Field(sessionID + "/result")
	if !ok || raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), out)
}

// DidRun reports whether the call site identified by prefix (at the
// current counter position, without consuming it) already completed on a
// prior replay of this job.
func (c *Context) DidRun(prefix string) bool {
	idx := c.counters[prefix]
	sid := c.sessionID(prefix, idx)
	v, ok := c.rec.Field(sid)
	return ok && v == "done"
}

// IsSideEffectAllowed guards a non-idempotent side effect (e.g. sending a
// notification) so it executes exactly once across any number of
// replays. Grounded on the hIncrByFloat-returns-exactly-1.0 pattern: each
// call site gets a float counter keyed by prefix and the call's position
// among this execution's calls with that prefix; the counter is
// incremented on every replay of that call, and only the replay that
// brings it to exactly 1.0 is allowed to run the effect.
func (c *Context) IsSideEffectAllowed(prefix string) bool {
	idx := c.nextIndex("fx:" + prefix)
	key := workflow.DurableScratchKey(prefix + ":" + strconv.Itoa(idx))
	cur := 0.0
	if v, ok := c.rec.Field(key); ok {
		cur, _ = strconv.ParseFloat(v, 64)
	}
	cur++
	c.rec.SetField(key, strconv.FormatFloat(cur, 'f', -1, 64))
	return cur == 1.0
}

// SleepFor suspends the job for d. On the replay after the sleep elapses
// the engine has already marked this session done, so the call returns
// nil immediately and execution continues.
func (c *Context) SleepFor(d time.Duration) error {
	idx := c.nextIndex("s")
	sid := c.sessionID("s", idx)
	if c.isDone(sid) {
		return nil
	}
	return &SleepInterruption{SessionID: sid, Until: time.Now().Add(d)}
}

// WaitFor suspends the job until a hook signal named signalID arrives (or
// deadline elapses, if non-zero), returning the signal's payload once resumed.
func (c *Context) WaitFor(signalID string, deadline time.Time) (map[string]any, error) {
	idx := c.nextIndex("w")
	sid := c.sessionID("w", idx)
	if c.isDone(sid) {
		var out map[string]any
		if err := c.readResult(sid, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, &WaitInterruption{SessionID: sid, SignalID: signalID, Deadline: deadline}
}

// ProxyActivities suspends the job until a worker activity dispatched on
// topic completes, returning its output once resumed.
func (c *Context) ProxyActivities(topic string, payload map[string]any) (map[string]any, error) {
	idx := c.nextIndex("p")
	sid := c.sessionID("p", idx)
	if c.isDone(sid) {
		var out map[string]any
		if err := c.readResult(sid, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, &ProxyInterruption{SessionID: sid, Topic: topic, Payload: payload}
}

// ExecChild suspends the job until a child job running entryActivity of
// app completes, returning its result once resumed.
func (c *Context) ExecChild(app, entryActivity string, payload map[string]any) (map[string]any, error) {
	idx := c.nextIndex("c")
	sid := c.sessionID("c", idx)
	if c.isDone(sid) {
		var out map[string]any
		if err := c.readResult(sid, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, &ChildInterruption{SessionID: sid, App: app, EntryActivity: entryActivity, Payload: payload}
}

// Resolve is called by the engine (never by user code) once a suspended
// session's external event has completed; it writes the replay marker and
// cached result so the next replay of the function sees this call site as
// already-done.
func (c *Context) Resolve(sessionID string, result map[string]any) error {
	return c.markDone(sessionID, result)
}
