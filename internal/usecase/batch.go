package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/logging"
)

// AnalyzeProducts analyzes many product descriptions with bounded concurrency.
// results[i] always corresponds to requests[i]; each item falls back on its own.
func (s *AnalysisService) AnalyzeProducts(ctx context.Context, requests []*domain.ProductRequest) []*domain.ProductAnalysis {
	results := make([]*domain.ProductAnalysis, len(requests))
	if len(requests) == 0 {
		return results
	}
	logging.FromContext(ctx).Info("Starting batch analysis", "items", len(requests), "concurrency", s.batchConcurrency)

	var group errgroup.Group
	group.SetLimit(s.batchConcurrency)
	for i, request := range requests {
		group.Go(func() error {
			results[i] = s.AnalyzeProduct(ctx, request)
			return nil
		})
	}
	_ = group.Wait()

	return results
}
