package manifeststore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/pkg/dbctx"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
)

// sqlite in-memory backs these tests instead of a live Postgres: a
// manifest row is
// just jsonb-ish text plus two indexed columns, so there's nothing
// Postgres-specific to exercise here and the suite stays hermetic.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Record{}))
	return db
}

func testManifest(app, version string) *workflow.AppManifest {
	return &workflow.AppManifest{
		App:     app,
		Version: version,
		Graph: workflow.Graph{
			Entry: "start",
			Activities: map[string]*workflow.ActivityDef{
				"start": {ID: "start", Kind: workflow.KindTrigger},
			},
		},
	}
}

func TestRepoDeployAndGetVersion(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db, must(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	require.NoError(t, repo.Deploy(dbc, testManifest("greeter", "1")))

	got, err := repo.GetVersion(dbc, "greeter", "1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "greeter", got.App)
	assert.Equal(t, "start", got.Graph.Entry)
}

func TestRepoActivateSwapsActiveVersion(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db, must(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	require.NoError(t, repo.Deploy(dbc, testManifest("greeter", "1")))
	require.NoError(t, repo.Deploy(dbc, testManifest("greeter", "2")))
	require.NoError(t, repo.Activate(dbc, "greeter", "1"))

	active, err := repo.ActiveFor(dbc, "greeter")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "1", active.Version)

	require.NoError(t, repo.Activate(dbc, "greeter", "2"))
	active, err = repo.ActiveFor(dbc, "greeter")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "2", active.Version)
}

func TestRepoActivateUnknownVersionFails(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db, must(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	require.NoError(t, repo.Deploy(dbc, testManifest("greeter", "1")))
	err := repo.Activate(dbc, "greeter", "ghost")
	assert.Error(t, err)
}

func TestCacheReadsThroughToRepo(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db, must(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	require.NoError(t, repo.Deploy(dbc, testManifest("greeter", "1")))

	cache := NewCache(repo)
	m, ok := cache.Get("greeter", "1")
	require.True(t, ok)
	assert.Equal(t, "greeter", m.App)

	_, ok = cache.Get("greeter", "ghost")
	assert.False(t, ok)
}

func must(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return log
}
