package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

// Publish sends one QuorumMessage on channel via NOTIFY. Postgres caps a
// NOTIFY payload at 8000 bytes; callers keep quorum messages small
// (control-plane chatter, not bulk data) given that ceiling.
func (p *Postgres) Publish(ctx context.Context, channel string, msg *workflow.QuorumMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("store: marshal quorum message: %w", err)
	}
	if _, err := p.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, channel, string(b)); err != nil {
		return fmt.Errorf("store: publish: %w", err)
	}
	return nil
}

// Subscribe opens a dedicated connection, issues LISTEN, and forwards
// decoded notifications on the returned channel until ctx is canceled or
// the returned cancel func is called. Modeled on the same
// subscribe-confirm-forward-on-a-goroutine shape used by other pub/sub
// transports in this codebase, ported from Redis pub/sub onto pgx's
// WaitForNotification.
func (p *Postgres) Subscribe(ctx context.Context, channel string) (<-chan *workflow.QuorumMessage, func(), error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("store: acquire listen conn: %w", err)
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf(`LISTEN %q`, channel)); err != nil {
		conn.Release()
		return nil, nil, fmt.Errorf("store: listen: %w", err)
	}

	out := make(chan *workflow.QuorumMessage, 64)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(out)
		defer conn.Release()
		for {
			n, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				return
			}
			var msg workflow.QuorumMessage
			if err := json.Unmarshal([]byte(n.Payload), &msg); err != nil {
				p.log.Warn("quorum: dropping malformed notification", "channel", n.Channel, "error", err)
				continue
			}
			select {
			case out <- &msg:
			case <-subCtx.Done():
				return
			}
		}
	}()

	return out, cancel, nil
}
