package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

// Validate checks structural invariants an AppManifest must satisfy
// before the engine is allowed to interpret it: unique activity ids, a
// resolvable entry point, no dangling transition targets, no dangling
// cycle ancestors, and kind-specific required fields. It deliberately
// does not check for transition cycles — cycle activities exist
// precisely to loop the graph back on itself, so "is this a DAG" is not
// a meaningful question here the way it is for a one-shot pipeline.
func Validate(m *workflow.AppManifest) error {
	if strings.TrimSpace(m.App) == "" {
		return fmt.Errorf("app name is required")
	}
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("version is required")
	}
	if strings.TrimSpace(m.Graph.Entry) == "" {
		return fmt.Errorf("graph.entry is required")
	}
	if len(m.Graph.Activities) == 0 {
		return fmt.Errorf("graph.activities must not be empty")
	}
	if _, ok := m.Graph.Activities[m.Graph.Entry]; !ok {
		return fmt.Errorf("graph.entry %q is not a defined activity", m.Graph.Entry)
	}

	var errs []string
	for id, def := range m.Graph.Activities {
		if def.ID != "" && def.ID != id {
			errs = append(errs, fmt.Sprintf("activity %q: id field %q does not match its map key", id, def.ID))
		}
		if !def.Kind.Valid() {
			errs = append(errs, fmt.Sprintf("activity %q: unknown kind %q", id, def.Kind))
			continue
		}
		if err := validateKindFields(id, def); err != nil {
			errs = append(errs, err.Error())
		}
		for _, t := range def.Transitions {
			if _, ok := m.Graph.Activities[t.To]; !ok {
				errs = append(errs, fmt.Sprintf("activity %q: transition target %q is not defined", id, t.To))
			}
		}
		if def.Kind == workflow.KindCycle {
			if _, ok := m.Graph.Activities[def.Ancestor]; !ok {
				errs = append(errs, fmt.Sprintf("activity %q: cycle ancestor %q is not defined", id, def.Ancestor))
			}
		}
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateKindFields(id string, def *workflow.ActivityDef) error {
	switch def.Kind {
	case workflow.KindWorker:
		if strings.TrimSpace(def.Topic) == "" {
			return fmt.Errorf("activity %q: worker kind requires topic", id)
		}
	case workflow.KindHook, workflow.KindAwait, workflow.KindSignal:
		if strings.TrimSpace(def.SignalID) == "" {
			return fmt.Errorf("activity %q: %s kind requires signal_id", id, def.Kind)
		}
	case workflow.KindCycle:
		if strings.TrimSpace(def.Ancestor) == "" {
			return fmt.Errorf("activity %q: cycle kind requires ancestor", id)
		}
	}
	return nil
}
