package manifeststore

import (
	"context"
	"sync"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/pkg/dbctx"
)

// Cache is a read-through, RWMutex-guarded manifest cache in front of a
// Repo, the same registry idiom the activity and durable packages use for
// their dispatch tables. It implements engine.ManifestSource without
// importing the engine package, avoiding an import cycle.
type Cache struct {
	repo Repo

	mu  sync.RWMutex
	byKey map[string]*workflow.AppManifest
}

func NewCache(repo Repo) *Cache {
	return &Cache{repo: repo, byKey: map[string]*workflow.AppManifest{}}
}

// Get resolves (app, version) against the cache first, falling back to
// the Repo and populating the cache on a hit. Callers outside this
// package (the client's Activate, the app's built-in seeding) call
// Invalidate themselves so stale entries don't linger past a redeploy.
func (c *Cache) Get(app, version string) (*workflow.AppManifest, bool) {
	key := app + "@" + version
	c.mu.RLock()
	m, ok := c.byKey[key]
	c.mu.RUnlock()
	if ok {
		return m, true
	}
	m, err := c.repo.GetVersion(dbctx.Context{Ctx: context.Background()}, app, version)
	if err != nil || m == nil {
		return nil, false
	}
	c.mu.Lock()
	c.byKey[key] = m
	c.mu.Unlock()
	return m, true
}

// Invalidate drops every cached version of app, forcing the next Get to
// re-read from the Repo.
func (c *Cache) Invalidate(app string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.byKey {
		if len(key) > len(app) && key[:len(app)+1] == app+"@" {
			delete(c.byKey, key)
		}
	}
}
