package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/CodeNoLimits/guezi-rag-chatbot/db"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/config"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/embed"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/engine"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/ingest"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/observability"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/pgstore"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/retrieval"
	"github.com/CodeNoLimits/guezi-rag-chatbot/internal/vector"
)

// backend abstracts over the two storage implementations with the few
// operations the commands need beyond retrieval.Index.
type backend struct {
	search retrieval.Index
	add    ingest.Index
	clear  func(context.Context) error
	count  func(context.Context) (int64, error)
	close  func()
}

// openBackend wires the storage backend selected in the configuration.
// The postgres backend runs migrations on open.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendLocal:
		idx, err := vector.Open(cfg.Storage.DataDir, cfg.Storage.Collection, cfg.Embedding.Dimensions,
			logger.With("component", "vector"))
		if err != nil {
			return nil, err
		}
		return &backend{
			search: idx,
			add:    idx,
			clear:  idx.Clear,
			count:  func(context.Context) (int64, error) { return int64(idx.Count()), nil },
			close:  func() { _ = idx.Close() },
		}, nil

	case config.BackendPostgres:
		if err := db.Migrate(cfg.Storage.DatabaseURL); err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		pool, err := pgstore.Connect(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store := pgstore.New(pool, cfg.Retrieval.MatchThreshold, logger.With("component", "pgstore"))
		return &backend{
			search: store,
			add:    store,
			clear:  store.Clear,
			count:  store.Count,
			close:  pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// app bundles everything a query-serving command needs.
type app struct {
	cfg       *config.Config
	backend   *backend
	retriever *retrieval.Retriever
	engine    *engine.Engine
	shutdown  func(context.Context) error
}

func (a *app) Close(ctx context.Context) {
	a.backend.close()
	if err := a.shutdown(ctx); err != nil {
		logger.Warn("trace shutdown failed", "error", err)
	}
}

// setupApp loads configuration and wires the retrieval and generation
// stack. Commands that only ingest use openBackend directly.
func setupApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	shutdown, err := observability.Setup(ctx, cfg.Otel, logger)
	if err != nil {
		return nil, err
	}

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	embedder, err := embed.NewGemini(ctx, cfg.GeminiAPIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
	if err != nil {
		be.close()
		return nil, err
	}

	var opts []retrieval.Option
	if cfg.Retrieval.KeywordBoost {
		opts = append(opts, retrieval.WithKeywordBoost())
	}
	retriever := retrieval.New(be.search, embedder, logger.With("component", "retrieval"), opts...)

	generator, err := engine.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.ModelName,
		float64(cfg.Temperature), cfg.MaxTokens)
	if err != nil {
		be.close()
		return nil, err
	}
	eng := engine.New(retriever, generator, logger.With("component", "engine"),
		engine.WithTopK(cfg.Retrieval.TopK))

	return &app{
		cfg:       cfg,
		backend:   be,
		retriever: retriever,
		engine:    eng,
		shutdown:  shutdown,
	}, nil
}

// batchPolicy converts the embedding configuration into a batcher policy.
func batchPolicy(cfg *config.Config) embed.Policy {
	return embed.Policy{
		BatchSize:       cfg.Embedding.BatchSize,
		InterBatchDelay: time.Duration(cfg.Embedding.InterBatchDelayMS) * time.Millisecond,
		MaxAttempts:     cfg.Embedding.MaxAttempts,
		RetryBackoff:    time.Duration(cfg.Embedding.RetryBackoffMS) * time.Millisecond,
	}
}
