package workflow

import "fmt"

// KeyType is the closed set of derived-key namespaces the Store adapter
// mints keys for.
type KeyType string

const (
	KeyJob        KeyType = "job"
	KeyStream     KeyType = "stream"
	KeyTaskList   KeyType = "tasklist"
	KeyHookSignal KeyType = "hook"
	KeyQuorum     KeyType = "quorum"
	KeyThrottle   KeyType = "throttle"
	KeyScoutLock  KeyType = "scoutlock"
)

// MintKey builds the canonical storage key for (kind, app, id), the single
// place that owns the key-naming scheme so no other package hand-rolls
// string concatenation for storage addressing.
func MintKey(kind KeyType, app, id string) string {
	return fmt.Sprintf("%s:%s:%s", kind, app, id)
}

// ReplayMarkerKey builds the "-<prefix><dim>-<idx>-" replay marker field
// name the durable runtime writes into a JobRecord's Fields to record
// that a given durable primitive invocation has already run.
func ReplayMarkerKey(prefix string, dimension, index int) string {
	return fmt.Sprintf("-%s%d-%d-", prefix, dimension, index)
}

// ActivityOutputKey builds the "<aid>/output/<field>" reserved field name.
func ActivityOutputKey(aid, field string) string {
	return fmt.Sprintf("%s/output/%s", aid, field)
}

// MetadataKey builds the "md/<field>" reserved field name.
func MetadataKey(field string) string {
	return fmt.Sprintf("md/%s", field)
}

// DurableScratchKey builds the "d/<field>" reserved field name the durable
// runtime uses for side-effect memoization (isSideEffectAllowed counters).
func DurableScratchKey(field string) string {
	return fmt.Sprintf("d/%s", field)
}
