// Package shutdown gives every entrypoint the same signal-to-context
// wiring, grounded on the inference subsystem's platform/shutdown
// helper, lifted out of that subsystem since the daemon entrypoint needs
// it too and it carries no inference-specific behavior.
package shutdown

import (
	"context"
	"os/signal"
	"syscall"
)

// NotifyContext returns a context canceled on SIGINT/SIGTERM.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
