package client

import (
	"context"
	"runtime"
	"time"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/platform/apierr"
	"github.com/flowmesh/flowmesh/internal/quorum"
)

// QuorumProfile is one member's self-reported state, collected by
// RollCall. Grounded on the ping/pong broadcast described for the mesh
// control plane; StreamDepth is left at zero until a per-topic queue
// depth probe exists, NumGoroutine stands in for SystemLoad since this
// runtime has no cgroup-level CPU sampling wired in.
type QuorumProfile struct {
	GUID        string  `json:"guid"`
	ThrottleMs  int64   `json:"throttle_ms"`
	StreamDepth int     `json:"stream_depth"`
	SystemLoad  float64 `json:"system_load"`
}

// Sub subscribes to one literal quorum channel.
func (c *client) Sub(ctx context.Context, channel string) (<-chan *workflow.QuorumMessage, func(), error) {
	if c.bus == nil {
		return nil, nil, apierr.New(503, "quorum_unavailable", errNilManifest)
	}
	ch, cancel, err := c.bus.Subscribe(ctx, channel)
	if err != nil {
		return nil, nil, apierr.New(502, "sub_failed", err)
	}
	return ch, cancel, nil
}

// PSub subscribes to every channel whose name matches a glob pattern, via
// the fanout-channel workaround LISTEN/NOTIFY's literal-only channel
// names require.
func (c *client) PSub(ctx context.Context, pattern string) (<-chan *workflow.QuorumMessage, func(), error) {
	if pattern == "" {
		return nil, nil, apierr.New(400, "invalid_pattern", errEmptyPattern)
	}
	if c.bus == nil {
		return nil, nil, apierr.New(503, "quorum_unavailable", errNilManifest)
	}
	ch, cancel, err := c.bus.PSubscribe(ctx, pattern)
	if err != nil {
		return nil, nil, apierr.New(502, "psub_failed", err)
	}
	return ch, cancel, nil
}

// RollCall broadcasts a ping and collects pong replies for delay,
// returning every distinct member profile observed.
func (c *client) RollCall(ctx context.Context, delay time.Duration) ([]QuorumProfile, error) {
	if c.bus == nil {
		return nil, apierr.New(503, "quorum_unavailable", errNilManifest)
	}
	requestID := "rollcall:" + c.guid + ":" + time.Now().Format(time.RFC3339Nano)
	ch, cancel, err := c.bus.Subscribe(ctx, quorum.RollCallChannel)
	if err != nil {
		return nil, apierr.New(502, "rollcall_failed", err)
	}
	defer cancel()

	if err := c.bus.RollCall(ctx, requestID); err != nil {
		return nil, apierr.New(502, "rollcall_failed", err)
	}

	deadline := time.After(delay)
	seen := map[string]QuorumProfile{}
	for {
		select {
		case msg := <-ch:
			if msg == nil || msg.Type != "pong" || msg.Topic != requestID {
				continue
			}
			seen[profileGUID(msg.Payload)] = decodeProfile(msg.Payload)
		case <-deadline:
			out := make([]QuorumProfile, 0, len(seen))
			for _, p := range seen {
				out = append(out, p)
			}
			return out, nil
		case <-ctx.Done():
			return nil, apierr.New(408, "rollcall_timeout", ctx.Err())
		}
	}
}

// Throttle checks whether key may fire again, given window; when no
// Redis-backed throttle cache is configured it always allows.
func (c *client) Throttle(ctx context.Context, key string, window time.Duration) (bool, error) {
	if c.throttle == nil {
		return true, nil
	}
	ok, err := c.throttle.Allow(ctx, key, window)
	if err != nil {
		return false, apierr.New(502, "throttle_failed", err)
	}
	return ok, nil
}

// SelfProfile builds this client's own pong payload for the RollCall
// responder Init starts.
func (c *client) SelfProfile() map[string]any {
	return map[string]any{
		"guid":         c.guid,
		"system_load":  float64(runtime.NumGoroutine()),
		"throttle_ms":  int64(0),
		"stream_depth": 0,
	}
}

func profileGUID(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	if g, ok := payload["guid"].(string); ok {
		return g
	}
	return ""
}

func decodeProfile(payload map[string]any) QuorumProfile {
	p := QuorumProfile{GUID: profileGUID(payload)}
	if payload == nil {
		return p
	}
	if v, ok := payload["system_load"].(float64); ok {
		p.SystemLoad = v
	}
	if v, ok := payload["throttle_ms"].(float64); ok {
		p.ThrottleMs = int64(v)
	}
	if v, ok := payload["stream_depth"].(float64); ok {
		p.StreamDepth = int(v)
	}
	return p
}
