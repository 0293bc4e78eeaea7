// Package app assembles the engine's components from configuration. Both
// binaries share this wiring so a CLI run and an API run behave identically.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/reviewloop/insight-engine/internal/cache"
	"github.com/reviewloop/insight-engine/internal/completion"
	"github.com/reviewloop/insight-engine/internal/config"
	"github.com/reviewloop/insight-engine/internal/embedding"
	"github.com/reviewloop/insight-engine/internal/imagegen"
	"github.com/reviewloop/insight-engine/internal/observability"
	"github.com/reviewloop/insight-engine/internal/orchestrator"
	"github.com/reviewloop/insight-engine/internal/selector"
	"github.com/reviewloop/insight-engine/internal/storage"
	"github.com/reviewloop/insight-engine/internal/vectorindex"
)

// App bundles the wired components.
type App struct {
	Config       *config.Config
	Logger       *observability.Logger
	DB           *sql.DB
	Repos        *storage.Repositories
	Cache        cache.Client
	Embedder     embedding.Embedder
	Executor     completion.Executor
	Index        vectorindex.Index
	Selector     *selector.Selector
	Orchestrator *orchestrator.Orchestrator
	Images       imagegen.Generator
}

// New wires every component from the loaded configuration.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	repos := storage.NewRepositories(db)

	var cacheClient cache.Client
	switch cfg.Cache.Driver {
	case "redis":
		cacheClient, err = cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
	default:
		cacheClient = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}

	embedder, err := embedding.NewClient(embedding.Config{
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		Dimension: cfg.Embedding.Dimension,
		BatchSize: cfg.Embedding.BatchSize,
		BatchRest: cfg.Embedding.BatchRest,
		Timeout:   cfg.Embedding.Timeout,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build embedding client: %w", err)
	}

	executor, err := completion.NewClient(completion.Config{
		APIKey:      cfg.Completion.APIKey,
		Model:       cfg.Completion.Model,
		BaseURL:     cfg.Completion.BaseURL,
		MaxTokens:   cfg.Completion.MaxTokens,
		Temperature: cfg.Completion.Temperature,
		Timeout:     cfg.Completion.Timeout,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("build completion client: %w", err)
	}

	var index vectorindex.Index
	switch cfg.VectorIndex.Adapter {
	case "http":
		index, err = vectorindex.NewHTTPClient(vectorindex.HTTPConfig{
			BaseURL: cfg.VectorIndex.BaseURL,
			APIKey:  cfg.VectorIndex.APIKey,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("build vector index client: %w", err)
		}
	default:
		index = vectorindex.NewMemoryIndex()
	}

	var images imagegen.Generator
	if cfg.ImageGen.Enabled {
		images, err = imagegen.NewClient(imagegen.Config{
			BaseURL: cfg.ImageGen.BaseURL,
			APIKey:  cfg.ImageGen.APIKey,
			Model:   cfg.ImageGen.Model,
			Timeout: cfg.ImageGen.Timeout,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("build image generation client: %w", err)
		}
	}

	sel := selector.New(index, embedder, cacheClient, selector.DefaultProfiles(), cfg.Selector, logger)
	orch := orchestrator.New(repos, sel, executor, images, cfg.Orchestrator, logger)

	return &App{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		Repos:        repos,
		Cache:        cacheClient,
		Embedder:     embedder,
		Executor:     executor,
		Index:        index,
		Selector:     sel,
		Orchestrator: orch,
		Images:       images,
	}, nil
}

// Close releases held connections.
func (a *App) Close() error {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close cache client")
		}
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
