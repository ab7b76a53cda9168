package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jonathan/cover-letter-agent/internal/agent"
	"github.com/jonathan/cover-letter-agent/internal/config"
	"github.com/jonathan/cover-letter-agent/internal/db"
	"github.com/jonathan/cover-letter-agent/internal/ingestion"
	"github.com/jonathan/cover-letter-agent/internal/llm"
	"github.com/jonathan/cover-letter-agent/internal/observability"
	"github.com/jonathan/cover-letter-agent/internal/pipeline"
	"github.com/jonathan/cover-letter-agent/internal/retrieval"
)

// loadConfig reads the config file and environment, then applies command line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the long-lived dependencies shared by every command
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	client   llm.Client
	embedder llm.Embedder
	db       *db.DB
	redis    *redis.Client
	store    *retrieval.Service
	pipeline *pipeline.Pipeline
}

// newApp connects the configured backends and builds the pipeline. Postgres, Redis and the
// document store are optional; each is skipped when not configured.
func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	logger, err := observability.NewLogger(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	a.client, err = llm.NewClient(ctx, cfg.LLMClientConfig(), cfg.APIKeys.For(cfg.LLM.Provider))
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	if cfg.DatabaseURL != "" {
		a.db, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := a.db.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		logger.Info("connected to postgres")
	}

	if err := a.buildStore(ctx); err != nil {
		return nil, err
	}

	cache, err := a.buildCache()
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Runtime: agent.Runtime{
			Client: a.client,
			Cache:  cache,
			Retry:    a.retryPolicy(),
			Timeout:  cfg.LLM.Timeout.Duration,
			Logger:   logger,
			Recorder: a.metrics,
		},
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
	}
	// Leave the interfaces nil rather than holding typed nil pointers.
	if a.store != nil {
		opts.Searcher = a.store
	}
	if a.db != nil {
		opts.Resumes = a.db
	}

	a.pipeline, err = pipeline.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	ok = true
	return a, nil
}

// retryPolicy applies to completion, embedding and vector store calls alike
func (a *app) retryPolicy() agent.RetryPolicy {
	return agent.RetryPolicy{
		MaxAttempts: a.cfg.LLM.RetryAttempts,
		BaseDelay:   a.cfg.LLM.RetryDelay.Duration,
	}
}

// buildStore sets up the document store: pgvector when Postgres is configured, in memory
// otherwise. Without an embedding key there is no store and generation runs without context.
func (a *app) buildStore(ctx context.Context) error {
	key := a.cfg.APIKeys.For(a.cfg.Embedding.Provider)
	if key == "" {
		a.logger.Warn("no embedding API key, document store disabled", "provider", a.cfg.Embedding.Provider)
		return nil
	}
	embedder, err := llm.NewEmbedder(ctx, a.cfg.Embedding.Provider, a.cfg.Embedding.Model, key)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	a.embedder = embedder

	var vectors retrieval.VectorStore = retrieval.NewMemoryStore()
	if a.db != nil {
		vectors = retrieval.NewPGVectorStore(a.db)
	}
	splitter := ingestion.NewSplitter(a.cfg.Ingestion.ChunkSize, a.cfg.Ingestion.ChunkOverlap)
	a.store = retrieval.NewService(embedder, vectors, splitter, a.logger).
		WithRetry(a.retryPolicy(), a.cfg.LLM.Timeout.Duration)
	return nil
}

// buildCache returns the agent output cache: in-process LRU, backed by Redis when configured
func (a *app) buildCache() (agent.Cache, error) {
	if !a.cfg.Cache.Enabled {
		return nil, nil
	}
	lru := agent.NewLRUCache(a.cfg.Cache.Size, a.cfg.Cache.TTL.Duration)
	if a.cfg.Cache.RedisURL == "" {
		return lru, nil
	}

	opts, err := redis.ParseURL(a.cfg.Cache.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	a.redis = redis.NewClient(opts)
	a.logger.Info("agent cache backed by redis", "addr", opts.Addr)
	return agent.NewTieredCache(lru, agent.NewRedisCache(a.redis, a.cfg.Cache.TTL.Duration, a.logger)), nil
}

// Close releases every backend connection
func (a *app) Close() {
	if a.client != nil {
		if err := a.client.Close(); err != nil {
			a.logger.Warn("failed to close LLM client", "error", err)
		}
	}
	if c, ok := a.embedder.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.logger.Warn("failed to close embedder", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
