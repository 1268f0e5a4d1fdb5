package workflow

// ActivityKind is the closed set of two-legged activity kinds the engine
// knows how to enter/leave.
type ActivityKind string

const (
	KindTrigger ActivityKind = "trigger"
	KindWorker  ActivityKind = "worker"
	KindHook    ActivityKind = "hook"
	KindAwait   ActivityKind = "await"
	KindCycle   ActivityKind = "cycle"
	KindSignal  ActivityKind = "signal"
)

// Valid reports whether k is one of the six known activity kinds.
func (k ActivityKind) Valid() bool {
	switch k {
	case KindTrigger, KindWorker, KindHook, KindAwait, KindCycle, KindSignal:
		return true
	default:
		return false
	}
}

// RetrySpec is the per-activity retry policy carried in an ActivityDef.
type RetrySpec struct {
	MaxAttempts int     `yaml:"max_attempts,omitempty" json:"max_attempts,omitempty"`
	MinBackoffMs int64  `yaml:"min_backoff_ms,omitempty" json:"min_backoff_ms,omitempty"`
	MaxBackoffMs int64  `yaml:"max_backoff_ms,omitempty" json:"max_backoff_ms,omitempty"`
	JitterFrac  float64 `yaml:"jitter_frac,omitempty" json:"jitter_frac,omitempty"`
}

// Transition maps a source activity to the next activity id, guarded by
// an optional condition evaluated against the job's current state: a
// "{path}" truthy check or a "!{path}" negated check.
type Transition struct {
	To        string `yaml:"to" json:"to"`
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// ActivityDef is one node of an AppManifest's activity graph.
type ActivityDef struct {
	ID    string       `yaml:"id" json:"id"`
	Kind  ActivityKind `yaml:"kind" json:"kind"`
	Title string       `yaml:"title,omitempty" json:"title,omitempty"`

	// Topic names the stream topic a "worker" activity dispatches to.
	Topic string `yaml:"topic,omitempty" json:"topic,omitempty"`

	// Input maps payload-field-name -> Mapper "{path}" (any other string is
	// taken as a literal), evaluated against job state to build the payload
	// handed to Enter. Pipe expressions are not evaluated here.
	Input map[string]string `yaml:"input,omitempty" json:"input,omitempty"`

	// Output maps a field of the leg's result -> the sink name it is stored
	// under as "<aid>/output/<sink>" (with optional "[-]"/"[N]" suffix),
	// applied when a leg completes.
	Output map[string]string `yaml:"output,omitempty" json:"output,omitempty"`

	// Ancestor is the activity id a "cycle" kind loops back to.
	Ancestor string `yaml:"ancestor,omitempty" json:"ancestor,omitempty"`

	// SignalID, for "signal"/"hook"/"await" kinds, names the hook-signal
	// topic this activity produces or consumes.
	SignalID string `yaml:"signal_id,omitempty" json:"signal_id,omitempty"`

	Retry RetrySpec `yaml:"retry,omitempty" json:"retry,omitempty"`

	Transitions []Transition `yaml:"transitions,omitempty" json:"transitions,omitempty"`
}

// Graph is the full activity network of one AppManifest.
type Graph struct {
	Entry      string                  `yaml:"entry" json:"entry"`
	Activities map[string]*ActivityDef `yaml:"activities" json:"activities"`
}

// AppManifest is the declarative unit the engine interprets: one versioned
// app id plus its activity graph.
type AppManifest struct {
	App     string `yaml:"app" json:"app"`
	Version string `yaml:"version" json:"version"`
	Graph   Graph  `yaml:"graph" json:"graph"`
}

// Lookup returns the named activity, or nil if it does not exist.
func (m *AppManifest) Lookup(id string) *ActivityDef {
	if m == nil {
		return nil
	}
	return m.Graph.Activities[id]
}
