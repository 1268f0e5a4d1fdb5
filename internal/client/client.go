// Package client is the Client API surface: the single handle an
// embedding application holds to start workflows, subscribe to the mesh,
// inspect and cancel jobs, and manage manifest versions. Grounded on the
// interface-struct-constructor-thin-method shape job services use
// elsewhere in this codebase, wrapping every failure in apierr.Error so
// an HTTP surface in front of it can map errors to status codes without
// re-deriving them.
package client

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/engine"
	"github.com/flowmesh/flowmesh/internal/platform/apierr"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
	"github.com/flowmesh/flowmesh/internal/quorum"
	"github.com/flowmesh/flowmesh/internal/store"
	"github.com/flowmesh/flowmesh/internal/store/manifeststore"
)

// Client is every operation an embedding application or the HTTP surface
// needs, independent of transport.
type Client interface {
	Init(ctx context.Context) error

	Deploy(ctx context.Context, m *workflow.AppManifest) error
	Activate(ctx context.Context, app, version string) error

	Pub(ctx context.Context, app, version, entryActivity string, payload map[string]any) (jobID string, err error)
	PubSub(ctx context.Context, app, version, entryActivity string, payload map[string]any, timeout time.Duration) (*workflow.JobRecord, error)

	Sub(ctx context.Context, channel string) (<-chan *workflow.QuorumMessage, func(), error)
	PSub(ctx context.Context, pattern string) (<-chan *workflow.QuorumMessage, func(), error)

	Signal(ctx context.Context, hookTopic string, payload map[string]any) (streamID string, err error)

	GetStatus(ctx context.Context, jobID string) (workflow.Status, error)
	GetState(ctx context.Context, jobID string) (*workflow.JobRecord, error)
	GetRaw(ctx context.Context, jobID string) (map[string]string, error)
	GetQueryState(ctx context.Context, jobID string, fields []string) (map[string]any, error)
	Export(ctx context.Context, jobID string) (*JobExport, error)

	Interrupt(ctx context.Context, jobID string, opts InterruptOptions) (streamID string, err error)
	Scrub(ctx context.Context, jobID string) error

	RollCall(ctx context.Context, delay time.Duration) ([]QuorumProfile, error)
	Throttle(ctx context.Context, key string, window time.Duration) (bool, error)
}

// client is the Client implementation wiring the store adapter, manifest
// cache/repo, engine, and quorum bus/throttle together behind the
// operations above.
type client struct {
	guid string

	store     store.Adapter
	manifests *manifeststore.Cache
	repo      manifeststore.Repo
	engine    *engine.Engine
	bus       *quorum.Bus
	throttle  *quorum.Throttle
	log       *logger.Logger
}

// New builds a Client. throttle may be nil; Throttle then always reports
// allowed (no rate-limiting configured).
func New(st store.Adapter, repo manifeststore.Repo, cache *manifeststore.Cache, eng *engine.Engine, bus *quorum.Bus, throttle *quorum.Throttle, log *logger.Logger) Client {
	return &client{
		guid:      uuid.NewString(),
		store:     st,
		manifests: cache,
		repo:      repo,
		engine:    eng,
		bus:       bus,
		throttle:  throttle,
		log:       log.With("component", "client.Client"),
	}
}

// Init joins the quorum plane: it starts a background ping responder (so
// this instance answers other members' RollCall calls) and announces its
// own presence. Both are best-effort; a failed broadcast does not
// prevent the client from otherwise operating, since join is advisory,
// not a precondition for store-backed operations.
func (c *client) Init(ctx context.Context) error {
	if c.bus == nil {
		return nil
	}
	pings, cancel, err := c.bus.Subscribe(ctx, quorum.RollCallChannel)
	if err != nil {
		return apierr.New(502, "quorum_unavailable", err)
	}
	go c.respondToRollCalls(ctx, pings, cancel)

	if err := c.bus.RollCall(ctx, "init:"+c.guid); err != nil {
		return apierr.New(502, "quorum_unavailable", err)
	}
	return nil
}

func (c *client) respondToRollCalls(ctx context.Context, pings <-chan *workflow.QuorumMessage, cancel func()) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pings:
			if !ok {
				return
			}
			if msg.Type != "ping" {
				continue
			}
			if err := c.bus.Pong(ctx, msg.Topic, c.SelfProfile()); err != nil {
				c.log.Warn("client: pong failed", "error", err)
			}
		}
	}
}
