// Package app wires one daemon instance end to end: configuration, the
// Postgres-backed store adapter and manifest repo, the interpreter
// engine, the stream consumer and task/time-hook scout poll loops, the
// quorum bus/throttle, the Client surface, and the HTTP API in front of
// it. Follows a New()/Start()/Run()/Close() lifecycle: New connects to the
// store, migrates the schema, deploys the built-in manifest and builds
// every component, Start launches background poll loops
// and joins the quorum plane, Run blocks serving HTTP, Close tears
// everything down in dependency order.
package app

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/flowmesh/flowmesh/internal/activity"
	"github.com/flowmesh/flowmesh/internal/builtin"
	"github.com/flowmesh/flowmesh/internal/client"
	"github.com/flowmesh/flowmesh/internal/config"
	"github.com/flowmesh/flowmesh/internal/durable"
	"github.com/flowmesh/flowmesh/internal/engine"
	"github.com/flowmesh/flowmesh/internal/httpapi"
	"github.com/flowmesh/flowmesh/internal/pkg/dbctx"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
	"github.com/flowmesh/flowmesh/internal/quorum"
	"github.com/flowmesh/flowmesh/internal/router"
	"github.com/flowmesh/flowmesh/internal/scout"
	"github.com/flowmesh/flowmesh/internal/store"
	"github.com/flowmesh/flowmesh/internal/store/manifeststore"
)

// App is one running daemon instance: every long-lived component plus
// the cancel func Start hands to their poll loops.
type App struct {
	Log    *logger.Logger
	Config *config.Config

	store     *store.Postgres
	manifests *manifeststore.Cache
	repo      manifeststore.Repo
	engine    *engine.Engine
	bus       *quorum.Bus
	throttle  *quorum.Throttle
	consumer  *router.Consumer
	scout     *scout.Scout
	client    client.Client
	server    *httpapi.Server

	cancel context.CancelFunc
}

// New builds every component but starts nothing: callers call Start to
// launch background poll loops and Run to serve HTTP.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("app: load config: %w", err)
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("app: init logger: %w", err)
	}

	storeCfg := store.Config{
		Host:     cfg.Store.Host,
		Port:     cfg.Store.Port,
		User:     cfg.Store.User,
		Password: cfg.Store.Password,
		Name:     cfg.Store.Name,
		SSLMode:  cfg.Store.SSLMode,
	}
	st, err := store.NewPostgres(ctx, storeCfg, log)
	if err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}

	gdb, err := gorm.Open(postgres.Open(dsn(storeCfg)), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("app: init manifest db: %w", err)
	}
	if err := gdb.AutoMigrate(&manifeststore.Record{}); err != nil {
		return nil, fmt.Errorf("app: migrate manifest store: %w", err)
	}
	repo := manifeststore.NewRepo(gdb, log)
	cache := manifeststore.NewCache(repo)

	funcs := durable.NewFuncRegistry()
	if err := builtin.RegisterFuncs(funcs); err != nil {
		return nil, fmt.Errorf("app: register builtin funcs: %w", err)
	}
	kinds := activity.NewRegistryWithDurable(funcs)
	eng := engine.New(st, cache, kinds, log)

	if err := seedBuiltin(ctx, repo, cache); err != nil {
		return nil, fmt.Errorf("app: seed builtin manifest: %w", err)
	}

	bus := quorum.NewBus(st, log)

	var throttle *quorum.Throttle
	if throttleCfg := (quorum.ThrottleConfig{
		Addr:     cfg.Throttle.Addr,
		Password: cfg.Throttle.Password,
		DB:       cfg.Throttle.DB,
	}); throttleCfg.Addr != "" {
		throttle, err = quorum.NewThrottle(throttleCfg)
		if err != nil {
			log.Warn("app: throttle unavailable, rate-limiting disabled", "error", err)
			throttle = nil
		}
	}

	registry := router.NewRegistry()
	consumer := router.NewConsumer(st, registry, eng, log)
	if cfg.Router.PollInterval.Duration > 0 {
		consumer.PollInterval = cfg.Router.PollInterval.Duration
	}

	sc := scout.New(st, eng, cfg.Scout.ListKey, log)
	if cfg.Scout.PollInterval.Duration > 0 {
		sc.PollInterval = cfg.Scout.PollInterval.Duration
	}
	if cfg.Scout.BatchSize > 0 {
		sc.BatchSize = cfg.Scout.BatchSize
	}

	c := client.New(st, repo, cache, eng, bus, throttle, log)
	srv := httpapi.NewServer(cfg.HTTP, c, log)

	return &App{
		Log:       log,
		Config:    cfg,
		store:     st,
		manifests: cache,
		repo:      repo,
		engine:    eng,
		bus:       bus,
		throttle:  throttle,
		consumer:  consumer,
		scout:     sc,
		client:    c,
		server:    srv,
	}, nil
}

func dsn(c store.Config) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// seedBuiltin deploys (never activates) the canonical reminder manifest
// so an operator can Activate it without first hand-authoring a graph,
// a no-op if that version is already deployed.
func seedBuiltin(ctx context.Context, repo manifeststore.Repo, cache *manifeststore.Cache) error {
	m, err := builtin.Manifest()
	if err != nil {
		return err
	}
	dbc := dbctx.Context{Ctx: ctx}
	existing, err := repo.GetVersion(dbc, m.App, m.Version)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	if err := repo.Deploy(dbc, m); err != nil {
		return err
	}
	cache.Invalidate(m.App)
	return nil
}

// Start launches the background poll loops (stream consumer, scout) and
// joins the quorum plane. Call once; ctx governs every loop's lifetime.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	go a.consumer.Run(runCtx)
	go a.scout.Run(runCtx)

	if err := a.client.Init(runCtx); err != nil {
		a.Log.Warn("app: quorum join failed", "error", err)
	}
}

// Run blocks serving HTTP until ctx is canceled, then drains within the
// configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Run()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Close stops every background loop and releases the store/throttle
// connections, in that order so no loop observes a closed pool mid-tick.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.throttle != nil {
		_ = a.throttle.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
