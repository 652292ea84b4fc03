// Package app wires the eight components into one running process: it is
// the composition root cmd/memoryd's verbs share, mirroring how the
// teacher's cmd/vc package holds a single package-level store built once
// in main and referenced from every verb file.
package app

import (
	"context"
	"fmt"

	"github.com/memkit/memoryd/internal/blobstore"
	"github.com/memkit/memoryd/internal/cache"
	"github.com/memkit/memoryd/internal/config"
	"github.com/memkit/memoryd/internal/contextbuilder"
	"github.com/memkit/memoryd/internal/embedder"
	"github.com/memkit/memoryd/internal/ratelimit"
	"github.com/memkit/memoryd/internal/resourcemonitor"
	"github.com/memkit/memoryd/internal/sessionmanager"
	"github.com/memkit/memoryd/internal/storage/sqlite"
	"github.com/memkit/memoryd/internal/storageengine"
	"github.com/memkit/memoryd/internal/types"
	"github.com/memkit/memoryd/internal/vectorindex"
)

// App holds every long-lived component, built once from Config and shared
// by every CLI verb for the lifetime of the process.
type App struct {
	Config   config.Config
	Logger   *config.Logger
	Engine   *storageengine.Engine
	Cache    *cache.Cache
	Context  *contextbuilder.Builder
	Sessions *sessionmanager.Manager
	Limiter  *ratelimit.Limiter
	Monitor  *resourcemonitor.Monitor

	store *sqlite.Store
}

// New builds every component named in cfg and wires them together. Vector
// persistence is loaded from cfg.VectorIndex.PersistDir if present; a
// missing or empty directory starts an empty index.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := config.NewLoggerFromEnv(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	store, err := sqlite.Open(cfg.DBPath, sqlite.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening relational store: %w", err)
	}

	vectors, err := vectorindex.Load(cfg.VectorIndex.PersistDir, vectorindex.Config{AllowPartialBatch: cfg.VectorIndex.AllowPartialBatch})
	if err != nil {
		logger.Warn("app: starting vector index empty, load failed: %v", err)
		vectors = vectorindex.New(vectorindex.Config{AllowPartialBatch: cfg.VectorIndex.AllowPartialBatch})
	}

	blobDir := cfg.StateDir
	if blobDir == "" {
		blobDir = "./data/state"
	}
	blobs, err := blobstore.New(blobDir + "/blobs")
	if err != nil {
		return nil, fmt.Errorf("opening blob store: %w", err)
	}

	embed := embedder.Deterministic(64)

	engine, err := storageengine.New(cfg.StorageEngine, store, vectors, blobs, embed, logger)
	if err != nil {
		return nil, fmt.Errorf("building storage engine: %w", err)
	}

	mem := cache.New(cfg.Cache, nil, nil, nil)

	ctxBuilder, err := contextbuilder.New(cfg.ContextBuilder)
	if err != nil {
		return nil, fmt.Errorf("building context builder: %w", err)
	}

	sessions, err := sessionmanager.New(ctx, cfg.SessionManager, store)
	if err != nil {
		return nil, fmt.Errorf("building session manager: %w", err)
	}

	limiter, err := ratelimit.New(cfg.RateLimiter)
	if err != nil {
		return nil, fmt.Errorf("building rate limiter: %w", err)
	}

	monitor, err := resourcemonitor.New(cfg.ResourceMonitor, logger)
	if err != nil {
		return nil, fmt.Errorf("building resource monitor: %w", err)
	}
	monitor.RegisterCleanupHandler(func(ctx context.Context, _ types.ResourceMetrics) {
		if err := mem.Clear(ctx); err != nil {
			logger.Warn("app: emergency cache clear failed: %v", err)
		}
	})
	monitor.Start(ctx)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Engine:   engine,
		Cache:    mem,
		Context:  ctxBuilder,
		Sessions: sessions,
		Limiter:  limiter,
		Monitor:  monitor,
		store:    store,
	}, nil
}

// Close stops the session manager and resource monitor, persists the
// vector index (logging, not returning, a persist failure), and returns
// the Storage Engine's Close result.
func (a *App) Close() error {
	a.Sessions.Close()
	a.Monitor.Stop()
	if err := a.Engine.Vectors().Persist(a.Config.VectorIndex.PersistDir); err != nil {
		a.Logger.Warn("app: failed to persist vector index on shutdown: %v", err)
	}
	return a.Engine.Close()
}
