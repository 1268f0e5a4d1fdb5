// Package activity implements the six two-legged activity kinds
// (trigger, worker, hook, await, cycle, signal) the engine dispatches
// against as it walks an AppManifest's graph.
package activity

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/mapper"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
	"github.com/flowmesh/flowmesh/internal/store"
)

// Env is the shared context one activity invocation runs against.
type Env struct {
	Store  store.Adapter
	Mapper *mapper.Registry
	Log    *logger.Logger
	Def    *workflow.ActivityDef
	Record *workflow.JobRecord
	Now    time.Time
}

// Kind is the two-legged contract every activity kind implements. Enter
// begins the activity (may dispatch work or schedule a suspension);
// Leave processes its completion and returns the status that drives
// transition evaluation.
type Kind interface {
	Name() workflow.ActivityKind
	Enter(ctx context.Context, env *Env) (workflow.Status, error)
	Leave(ctx context.Context, env *Env, result map[string]any) (workflow.Status, error)
}

// BuildState projects a JobRecord's typed fields plus its reserved-field
// map into the state tree the mapper resolves paths against. Every
// reserved field appears at the top level under its full key (e.g.
// "md/name", "remind/output/message"); "md/" fields appear again under
// "md" with the prefix stripped, so "{md/name}" and "{md.name}" resolve
// to the same value.
func BuildState(rec *workflow.JobRecord) map[string]any {
	state := map[string]any{
		"jid":    rec.JobID,
		"gid":    rec.GroupID,
		"app":    rec.App,
		"aid":    rec.AID,
		"status": int(rec.Status),
	}
	md := map[string]any{}
	outputs := map[string]any{}
	for k, v := range rec.Fields {
		state[k] = v
		if name, ok := strings.CutPrefix(k, "md/"); ok {
			md[name] = v
		}
	}
	state["md"] = md
	state["output"] = outputs
	return state
}

// ResolveInput evaluates an ActivityDef's Input mapping against the job's
// current state tree, producing the payload handed to Enter.
func ResolveInput(def *workflow.ActivityDef, rec *workflow.JobRecord) map[string]any {
	state := BuildState(rec)
	out := map[string]any{}
	for field, path := range def.Input {
		if mapper.IsPath(path) {
			v, ok := mapper.Resolve(path, state)
			if ok {
				out[field] = v
			}
			continue
		}
		out[field] = path
	}
	return out
}

// ApplyOutput writes an activity leg's result into the job record's
// Fields under "<aid>/output/<sink base>", per the Output mapping and the
// Pipe sink-suffix grammar ("[-]" appends to, "[N]" sets index N of, the
// JSON list already stored at that key).
func ApplyOutput(def *workflow.ActivityDef, rec *workflow.JobRecord, result map[string]any) {
	for field, sinkExpr := range def.Output {
		v, ok := result[field]
		if !ok {
			continue
		}
		sink := mapper.ParseSink(sinkExpr)
		key := workflow.ActivityOutputKey(def.ID, sink.Base)
		if sink.Append || sink.HasIdx {
			var list []any
			if raw, ok := rec.Field(key); ok {
				_ = json.Unmarshal([]byte(raw), &list)
			}
			dst := map[string]any{sink.Base: list}
			mapper.ApplySink(dst, sink, v)
			v = dst[sink.Base]
		}
		// Fields is a flat string map; encode compound values so ApplyOutput
		// and the state-tree builder agree on one storage representation.
		rec.SetField(key, encodeFieldValue(v))
	}
}
