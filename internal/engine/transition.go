package engine

import (
	"strings"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/mapper"
)

// selectTransition returns the first Transition whose condition matches
// state, or the first unconditional Transition if none of the
// conditional ones match. Conditions are "{path}" truthy checks (bare
// path) or "!{path}" negated checks; Pipe/Reduce expressions are not
// evaluated, every condition is read as a path.
func selectTransition(def *workflow.ActivityDef, state map[string]any) (*workflow.Transition, bool) {
	var fallback *workflow.Transition
	for i := range def.Transitions {
		t := &def.Transitions[i]
		if t.Condition == "" {
			if fallback == nil {
				fallback = t
			}
			continue
		}
		if evalCondition(t.Condition, state) {
			return t, true
		}
	}
	if fallback != nil {
		return fallback, true
	}
	return nil, false
}

func evalCondition(cond string, state map[string]any) bool {
	negate := strings.HasPrefix(cond, "!")
	path := strings.TrimPrefix(cond, "!")
	v, ok := mapper.Resolve(path, state)
	truthy := ok && isTruthy(v)
	if negate {
		return !truthy
	}
	return truthy
}

func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case nil:
		return false
	default:
		return true
	}
}
