package workflow

import "time"

// JobRecord is the in-memory/typed projection of a JobState HASH record.
// The reserved namespaces from the wire contract (":" status semaphore,
// "md/*" metadata, "d/*" durable-function scratch, "<aid>/*" per-activity
// output, "-<prefix><dim>-<idx>-" replay markers) are modeled as a typed
// struct for the columns the store indexes on, plus a flat Fields map for
// everything else — the same split other job-tracking tables in this
// codebase make between promoted columns and a jsonb blob.
type JobRecord struct {
	JobID   string `json:"jid"`
	GroupID string `json:"gid"` // origin job id; set to JobID on the root job
	App     string `json:"app"`
	Version string `json:"vrs"`
	AID     string `json:"aid"` // current activity id

	Status   Status `json:"status"`
	Attempts int    `json:"attempts"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LockedAt     *time.Time `json:"locked_at,omitempty"`
	HeartbeatAt  *time.Time `json:"heartbeat_at,omitempty"`
	WakeAt       *time.Time `json:"wake_at,omitempty"` // sleepFor/waitFor deadline
	LastErrorAt  *time.Time `json:"last_error_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`

	TraceID string `json:"trc,omitempty"`
	SpanID  string `json:"spn,omitempty"`

	// Fields holds every reserved-namespace entry not promoted above:
	// md/*, d/*, <aid>/output/*, and the "-<prefix><dim>-<idx>-" replay
	// markers written by the durable runtime.
	Fields map[string]string `json:"fields"`
}

// NewJobRecord builds a root JobRecord (GroupID == JobID) in the queued state.
func NewJobRecord(jobID, app, version, entryActivity string, now time.Time) *JobRecord {
	return &JobRecord{
		JobID:     jobID,
		GroupID:   jobID,
		App:       app,
		Version:   version,
		AID:       entryActivity,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Fields:    map[string]string{},
	}
}

// Field reads one reserved-namespace entry.
func (j *JobRecord) Field(key string) (string, bool) {
	if j == nil || j.Fields == nil {
		return "", false
	}
	v, ok := j.Fields[key]
	return v, ok
}

// SetField writes one reserved-namespace entry, initializing the map if needed.
func (j *JobRecord) SetField(key, value string) {
	if j.Fields == nil {
		j.Fields = map[string]string{}
	}
	j.Fields[key] = value
}

// StreamEntry is one row of the Store adapter's stream table: a message
// dispatched to a topic, claimed with SKIP LOCKED by a router consumer.
type StreamEntry struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	JobID     string            `json:"jid"`
	AID       string            `json:"aid"`
	Payload   map[string]any    `json:"payload"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// TaskListEntry is one row of the Store adapter's task-list table: a
// durable `sleepFor`/`waitFor` wake-up scheduled for WakeAt, claimed by
// the scout.
type TaskListEntry struct {
	ListKey string    `json:"list_key"`
	JobID   string    `json:"jid"`
	AID     string    `json:"aid"`
	WakeAt  time.Time `json:"wake_at"`
}

// HookSignal is a single-delivery named signal awaiting a matching
// `waitFor`/hook activity. Deleted transactionally on successful lookup.
type HookSignal struct {
	SignalID  string         `json:"signal_id"`
	JobID     string         `json:"jid"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// QuorumMessage is one broadcast envelope on the mesh coordination plane.
type QuorumMessage struct {
	Type      string         `json:"type"`
	Topic     string         `json:"topic"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"ts"`
}
