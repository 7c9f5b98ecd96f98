package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// GenerationRequest is a single prompt, optionally with an attached image
type GenerationRequest struct {
	Prompt string
	Image  *Image
}

// Generator is the generative AI service. It returns the model's raw text.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Name() string
}

// HistoryRepository persists scans per user
type HistoryRepository interface {
	Save(ctx context.Context, entry *HistoryEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]HistoryEntry, error)
}

// AnalysisRecorder receives pipeline observations
type AnalysisRecorder interface {
	RecordAnalysis(kind, outcome string)
	RecordGeneration(provider string, duration time.Duration, err error)
	RecordCache(kind string, hit bool)
}
