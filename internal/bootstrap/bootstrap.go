// Package bootstrap assembles the analysis pipeline from configuration.
// Both the CLI and the HTTP server start from here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeevankumar-m/sustainedaway/config"
	"github.com/jeevankumar-m/sustainedaway/internal/domain"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/cache"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/gemini"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/history"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/logging"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/metrics"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/openai"
	"github.com/jeevankumar-m/sustainedaway/internal/usecase"
)

// Options tune what Build wires
type Options struct {
	// SkipHistory leaves scan history out even when configured
	SkipHistory bool
}

// Components is the assembled application
type Components struct {
	Service *usecase.AnalysisService
	// Metrics is nil when metrics are disabled
	Metrics *metrics.Recorder
	closers []io.Closer
}

// Close releases the cache and history connections
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build creates the analysis service and its dependencies
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Components, error) {
	log := logging.FromContext(ctx)
	components := &Components{}

	generator, err := NewGenerator(ctx, cfg.AI)
	if err != nil {
		return nil, err
	}
	log.Info("Generator ready", "provider", generator.Name(), "model", cfg.AI.Model)

	cacheRepo, err := NewCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	if closer, ok := cacheRepo.(io.Closer); ok {
		components.closers = append(components.closers, closer)
	}

	var historyRepo domain.HistoryRepository
	if cfg.History.Enabled && !opts.SkipHistory {
		store, err := history.OpenSQLite(ctx, cfg.History.Path)
		if err != nil {
			_ = components.Close()
			return nil, err
		}
		components.closers = append(components.closers, store)
		historyRepo = store
		log.Info("Scan history enabled", "path", cfg.History.Path)
	}

	var recorder domain.AnalysisRecorder
	if cfg.Metrics.Enabled {
		components.Metrics = metrics.NewRecorder()
		recorder = components.Metrics
	}

	components.Service = usecase.NewAnalysisService(generator, cacheRepo, historyRepo, recorder, usecase.AnalysisServiceConfig{
		CacheTTL:          cfg.Cache.TTL,
		GenerationTimeout: cfg.AI.Timeout,
		BatchConcurrency:  cfg.Analysis.BatchConcurrency,
	})
	return components, nil
}

// NewGenerator creates the configured generative AI client
func NewGenerator(ctx context.Context, cfg config.AIConfig) (domain.Generator, error) {
	switch cfg.Provider {
	case "", "gemini":
		return gemini.NewClient(ctx, gemini.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	case "openai":
		return openai.NewClient(openai.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

// NewCache creates the configured cache. It returns nil for "none"; a nil
// CacheRepository disables caching in the service.
func NewCache(ctx context.Context, cfg config.CacheConfig) (domain.CacheRepository, error) {
	switch cfg.Type {
	case "", "memory":
		return cache.NewMemoryCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, cfg.RedisURL)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}
