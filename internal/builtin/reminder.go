package builtin

import (
	"strconv"
	"time"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/durable"
)

const defaultDelay = 5 * time.Second

// Reminder sleeps for the job's md/delay_ms field (defaulting to
// defaultDelay when absent or unparseable), then proxies md/message to
// an external notifier topic and returns its reply. It is the simplest
// durable function that exercises both SleepFor and ProxyActivities,
// standing in for every app-specific "wait then notify" workflow a
// deployment would otherwise hand-write from scratch.
func Reminder(c *durable.Context) (map[string]any, error) {
	rec := c.Record()

	delay := defaultDelay
	if raw, ok := rec.Field(workflow.MetadataKey("delay_ms")); ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms >= 0 {
			delay = time.Duration(ms) * time.Millisecond
		}
	}
	if err := c.SleepFor(delay); err != nil {
		return nil, err
	}

	message, _ := rec.Field(workflow.MetadataKey("message"))
	return c.ProxyActivities("builtin.notify", map[string]any{"message": message})
}
