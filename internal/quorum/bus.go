// Package quorum is the mesh coordination plane: a thin Bus wrapper over
// the store adapter's LISTEN/NOTIFY pub/sub plus a Redis-backed throttle
// cache used to rate-limit how often a given signal is rebroadcast.
// Grounded on the same Publish/StartForwarder shape other pub/sub
// transports in this codebase use.
package quorum

import (
	"context"
	"fmt"
	"path"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
	"github.com/flowmesh/flowmesh/internal/store"
)

// Bus is the quorum-facing handle other components hold instead of a raw
// store.Adapter, so Publish/Subscribe can gain throttling or fan-out
// policy without touching call sites.
type Bus struct {
	store store.Adapter
	log   *logger.Logger
}

func NewBus(st store.Adapter, log *logger.Logger) *Bus {
	return &Bus{store: st, log: log.With("component", "quorum.Bus")}
}

// FanoutChannel is a second, reserved destination every Publish call also
// delivers to (with Topic defaulted to the literal channel name), so a
// pattern subscriber can listen on one real LISTEN channel and match
// many logical channel names client-side — a NOTIFY channel name itself
// has no wildcard support, so this is the mesh's only way to offer
// pattern subscription.
const FanoutChannel = "quorum.fanout"

func (b *Bus) Publish(ctx context.Context, channel string, msg *workflow.QuorumMessage) error {
	if err := b.store.Publish(ctx, channel, msg); err != nil {
		return fmt.Errorf("quorum: publish: %w", err)
	}
	if channel == FanoutChannel {
		return nil
	}
	fanout := *msg
	if fanout.Topic == "" {
		fanout.Topic = channel
	}
	if err := b.store.Publish(ctx, FanoutChannel, &fanout); err != nil {
		return fmt.Errorf("quorum: fanout publish: %w", err)
	}
	return nil
}

// Subscribe returns a channel of messages and a cancel func to stop
// listening; the returned channel is closed once cancel is called or ctx
// ends.
func (b *Bus) Subscribe(ctx context.Context, channel string) (<-chan *workflow.QuorumMessage, func(), error) {
	ch, cancel, err := b.store.Subscribe(ctx, channel)
	if err != nil {
		return nil, nil, fmt.Errorf("quorum: subscribe: %w", err)
	}
	return ch, cancel, nil
}

// PSubscribe subscribes to FanoutChannel and filters messages whose Topic
// matches pattern (a path.Match-style glob, e.g. "order.*"). The returned
// channel is closed once cancel is called or ctx ends; a goroutine owns
// forwarding so a slow consumer drops messages rather than blocking the
// fanout publisher.
func (b *Bus) PSubscribe(ctx context.Context, pattern string) (<-chan *workflow.QuorumMessage, func(), error) {
	raw, cancel, err := b.Subscribe(ctx, FanoutChannel)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan *workflow.QuorumMessage, 64)
	go func() {
		defer close(out)
		for msg := range raw {
			matched, err := path.Match(pattern, msg.Topic)
			if err != nil || !matched {
				continue
			}
			select {
			case out <- msg:
			default:
			}
		}
	}()
	return out, cancel, nil
}

// RollCallChannel is the reserved channel Bus.RollCall pings and Bus.Pong
// replies travel on. Bus.RollCall only publishes the ping; the client
// surface's RollCall operation collects the pongs to enumerate live
// engine instances.
const RollCallChannel = "quorum.rollcall"

// ActivateChannel is the per-app channel an Activate coordinated
// switch-over broadcasts on, mirroring the "{namespace}:q:{appId}"
// per-app quorum channel shape with this mesh's flat channel naming.
func ActivateChannel(app string) string {
	return "quorum.activate." + app
}

func (b *Bus) RollCall(ctx context.Context, requestID string) error {
	return b.Publish(ctx, RollCallChannel, &workflow.QuorumMessage{
		Type:  "ping",
		Topic: requestID,
	})
}

// Pong replies to a rollcall ping with this member's profile, carried as
// the message Payload; requestID threads the reply back to the
// originating RollCall call.
func (b *Bus) Pong(ctx context.Context, requestID string, profile map[string]any) error {
	return b.Publish(ctx, RollCallChannel, &workflow.QuorumMessage{
		Type:    "pong",
		Topic:   requestID,
		Payload: profile,
	})
}
