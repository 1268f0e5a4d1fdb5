package client

import (
	"context"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/pkg/dbctx"
	"github.com/flowmesh/flowmesh/internal/platform/apierr"
	"github.com/flowmesh/flowmesh/internal/quorum"
)

// Deploy validates and persists a new manifest version. It never
// activates it; a deployed-but-inactive version can be inspected or
// deployed again with the deploy running ahead of any traffic switch.
func (c *client) Deploy(ctx context.Context, m *workflow.AppManifest) error {
	if m == nil {
		return apierr.New(400, "invalid_manifest", errNilManifest)
	}
	if err := c.repo.Deploy(dbctx.Context{Ctx: ctx}, m); err != nil {
		return apierr.New(422, "deploy_failed", err)
	}
	return nil
}

// Activate marks (app, version) as the live version and invalidates the
// manifest cache so the engine's next resolve picks it up, then
// broadcasts an "activate" quorum message so other replicas' caches
// invalidate without waiting for their own next miss.
func (c *client) Activate(ctx context.Context, app, version string) error {
	if err := c.repo.Activate(dbctx.Context{Ctx: ctx}, app, version); err != nil {
		return apierr.New(422, "activate_failed", err)
	}
	c.manifests.Invalidate(app)
	if c.bus != nil {
		_ = c.bus.Publish(ctx, quorum.ActivateChannel(app), &workflow.QuorumMessage{
			Type:  "activate",
			Topic: version,
		})
	}
	return nil
}
