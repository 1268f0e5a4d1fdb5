package activity

import (
	"fmt"
	"sync"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/durable"
)

// Registry is the thread-safe kind-by-name dispatch table the engine
// consults for every activity it resolves, the same RWMutex-guarded
// lookup shape used elsewhere in this codebase for job-type and
// waitpoint registries.
type Registry struct {
	mu    sync.RWMutex
	kinds map[workflow.ActivityKind]Kind
}

// NewRegistry returns a Registry preloaded with the six built-in kinds,
// its worker kind dispatching every topic as a plain external call.
func NewRegistry() *Registry {
	return NewRegistryWithDurable(nil)
}

// NewRegistryWithDurable is NewRegistry with the worker kind's Durable
// lookup wired to funcs, so any topic funcs has a Func registered for
// runs in-process instead of round-tripping through a router consumer.
func NewRegistryWithDurable(funcs *durable.FuncRegistry) *Registry {
	r := &Registry{kinds: map[workflow.ActivityKind]Kind{}}
	for _, k := range []Kind{Trigger{}, Worker{Durable: funcs}, Hook{}, Await{}, Cycle{}, Signal{}} {
		_ = r.Register(k)
	}
	return r
}

func (r *Registry) Register(k Kind) error {
	if k == nil {
		return fmt.Errorf("activity: nil kind")
	}
	name := k.Name()
	if name == "" {
		return fmt.Errorf("activity: kind has empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[name] = k
	return nil
}

func (r *Registry) Get(name workflow.ActivityKind) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}
