package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/logging"
)

// Package-level compiled regex patterns for cache key normalization
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// Analysis kinds and outcomes reported to the recorder
const (
	kindProduct = "product"
	kindImage   = string(domain.ScanKindImage)
	kindBill    = string(domain.ScanKindBill)

	outcomeSuccess         = "success"
	outcomeInvalidInput    = "invalid_input"
	outcomeInvalidResponse = "invalid_response"
	outcomeEmptyResponse   = "empty_response"
	outcomeError           = "error"
)

const (
	defaultCacheTTL         = 24 * time.Hour
	defaultBatchConcurrency = 4
	defaultHistoryLimit     = 50
	maxHistoryLimit         = 200
)

// AnalysisServiceConfig holds configuration for the analysis service
type AnalysisServiceConfig struct {
	CacheTTL          time.Duration
	GenerationTimeout time.Duration
	BatchConcurrency  int
}

// AnalysisService runs the prompt -> generate -> normalize pipeline for every
// input modality. It never returns an error for an analysis: failures become
// schema-conformant fallback payloads.
type AnalysisService struct {
	generator        domain.Generator
	cache            domain.CacheRepository
	history          domain.HistoryRepository
	recorder         domain.AnalysisRecorder
	cacheTTL         time.Duration
	timeout          time.Duration
	batchConcurrency int
	now              func() time.Time
	newID            func() string
}

// NewAnalysisService creates a new analysis service. cache, history and
// recorder may be nil.
func NewAnalysisService(
	generator domain.Generator,
	cache domain.CacheRepository,
	history domain.HistoryRepository,
	recorder domain.AnalysisRecorder,
	config AnalysisServiceConfig,
) *AnalysisService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = defaultCacheTTL
	}
	concurrency := config.BatchConcurrency
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}

	return &AnalysisService{
		generator:        generator,
		cache:            cache,
		history:          history,
		recorder:         recorder,
		cacheTTL:         cacheTTL,
		timeout:          config.GenerationTimeout,
		batchConcurrency: concurrency,
		now:              time.Now,
		newID:            uuid.NewString,
	}
}

// AnalyzeProduct assesses a product description.
// Flow: check cache -> build prompt -> generate -> normalize -> cache -> return
func (s *AnalysisService) AnalyzeProduct(ctx context.Context, request *domain.ProductRequest) (result *domain.ProductAnalysis) {
	if request == nil {
		s.recorder.RecordAnalysis(kindProduct, outcomeInvalidInput)
		return ProductInputFailure()
	}
	log := logging.FromContext(ctx).With("kind", kindProduct)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic", "panic", r)
			result = ProductFailure(request.Title, fmt.Errorf("internal error: %v", r))
			s.recorder.RecordAnalysis(kindProduct, outcomeError)
		}
	}()

	cacheKey := productCacheKey(request)
	var cached domain.ProductAnalysis
	if s.getFromCache(ctx, kindProduct, cacheKey, &cached) {
		log.Debug("Cache hit", "key", cacheKey)
		s.recorder.RecordAnalysis(kindProduct, outcomeSuccess)
		return &cached
	}

	analysis, err := s.runProduct(ctx, request)
	if err != nil {
		log.Error("Product analysis failed", "title", request.Title, "err", err)
		s.recorder.RecordAnalysis(kindProduct, outcomeFor(err))
		return ProductFailure(request.Title, err)
	}

	s.setInCache(ctx, cacheKey, analysis)
	s.recorder.RecordAnalysis(kindProduct, outcomeSuccess)
	return analysis
}

func (s *AnalysisService) runProduct(ctx context.Context, request *domain.ProductRequest) (*domain.ProductAnalysis, error) {
	prompt, err := BuildProductPrompt(request)
	if err != nil {
		return nil, err
	}

	raw, err := s.generate(ctx, domain.GenerationRequest{Prompt: prompt})
	if err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx)
	log.Debug("Raw AI response", "kind", kindProduct, "text", raw)

	analysis, err := NormalizeProductAnalysis(raw)
	if err != nil {
		return nil, err
	}
	log.Debug("Structured data", "kind", kindProduct, "data", debugJSON(analysis))
	return analysis, nil
}

// AnalyzeImage assesses a photo of a single product. The returned ID is the
// history record created for the scan, or empty when none was stored.
func (s *AnalysisService) AnalyzeImage(ctx context.Context, request domain.ScanRequest) (result *domain.ImageAnalysis, historyID string) {
	if request.Image == nil || len(request.Image.Data) == 0 {
		s.recorder.RecordAnalysis(kindImage, outcomeInvalidInput)
		return ImageInputFailure(MsgNoImage), ""
	}
	log := logging.FromContext(ctx).With("kind", kindImage)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic", "panic", r)
			result, historyID = ImageFailure(fmt.Errorf("internal error: %v", r)), ""
			s.recorder.RecordAnalysis(kindImage, outcomeError)
		}
	}()

	cacheKey := scanCacheKey(domain.ScanKindImage, request.Image)
	analysis := &domain.ImageAnalysis{}
	if !s.getFromCache(ctx, kindImage, cacheKey, analysis) {
		raw, err := s.runScan(ctx, domain.ScanKindImage, request.Image)
		if err == nil {
			analysis, err = NormalizeImageAnalysis(raw)
		}
		if err != nil {
			log.Error("Image analysis failed", "err", err)
			s.recorder.RecordAnalysis(kindImage, outcomeFor(err))
			return ImageFailure(err), ""
		}
		log.Debug("Structured data", "kind", kindImage, "data", debugJSON(analysis))
		s.setInCache(ctx, cacheKey, analysis)
	}

	s.recorder.RecordAnalysis(kindImage, outcomeSuccess)
	id := s.recordScan(ctx, &domain.HistoryEntry{
		UserID:              request.UserID,
		Kind:                domain.ScanKindImage,
		ProductName:         analysis.ProductName,
		Brand:               analysis.Brand,
		SustainabilityScore: analysis.SustainabilityRating,
		ImageURL:            request.ImageURL,
	}, analysis)
	return analysis, id
}

// AnalyzeBill assesses every product on a photographed receipt. The returned
// ID is the history record created for the scan, or empty when none was stored.
func (s *AnalysisService) AnalyzeBill(ctx context.Context, request domain.ScanRequest) (result *domain.BillAnalysis, historyID string) {
	if request.Image == nil || len(request.Image.Data) == 0 {
		s.recorder.RecordAnalysis(kindBill, outcomeInvalidInput)
		return BillInputFailure(MsgNoImage), ""
	}
	log := logging.FromContext(ctx).With("kind", kindBill)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic", "panic", r)
			result, historyID = BillFailure(fmt.Errorf("internal error: %v", r)), ""
			s.recorder.RecordAnalysis(kindBill, outcomeError)
		}
	}()

	cacheKey := scanCacheKey(domain.ScanKindBill, request.Image)
	analysis := &domain.BillAnalysis{}
	if !s.getFromCache(ctx, kindBill, cacheKey, analysis) {
		raw, err := s.runScan(ctx, domain.ScanKindBill, request.Image)
		if err == nil {
			analysis, err = NormalizeBillAnalysis(raw)
		}
		if err != nil {
			log.Error("Bill analysis failed", "err", err)
			s.recorder.RecordAnalysis(kindBill, outcomeFor(err))
			return BillFailure(err), ""
		}
		log.Debug("Structured data", "kind", kindBill, "data", debugJSON(analysis))
		s.setInCache(ctx, cacheKey, analysis)
	}

	s.recorder.RecordAnalysis(kindBill, outcomeSuccess)
	id := s.recordScan(ctx, &domain.HistoryEntry{
		UserID:              request.UserID,
		Kind:                domain.ScanKindBill,
		ProductName:         billSummary(analysis.Products),
		SustainabilityScore: analysis.OverallSustainabilityScore,
		ImageURL:            request.ImageURL,
	}, analysis)
	return analysis, id
}

func (s *AnalysisService) runScan(ctx context.Context, kind domain.ScanKind, image *domain.Image) (string, error) {
	prompt, err := BuildScanPrompt(kind)
	if err != nil {
		return "", err
	}
	raw, err := s.generate(ctx, domain.GenerationRequest{Prompt: prompt, Image: image})
	if err != nil {
		return "", err
	}
	logging.FromContext(ctx).Debug("Raw AI response", "kind", kind, "text", raw)
	return raw, nil
}

// History lists the most recent scans of a user
func (s *AnalysisService) History(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	if s.history == nil {
		return nil, domain.ErrHistoryUnavailable
	}
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.history.ListByUser(ctx, userID, limit)
}

// generate calls the generator with the configured timeout
func (s *AnalysisService) generate(ctx context.Context, request domain.GenerationRequest) (string, error) {
	if s.generator == nil {
		return "", fmt.Errorf("%w: no generator configured", domain.ErrGeneratorFailure)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := s.now()
	text, err := s.generator.Generate(ctx, request)
	s.recorder.RecordGeneration(s.generator.Name(), s.now().Sub(start), err)
	if err != nil {
		if errors.Is(err, domain.ErrGeneratorFailure) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", domain.ErrGeneratorFailure, err)
	}
	return text, nil
}

// recordScan stores a history entry; failures are logged, never returned
func (s *AnalysisService) recordScan(ctx context.Context, entry *domain.HistoryEntry, payload any) string {
	if s.history == nil {
		return ""
	}
	log := logging.FromContext(ctx)

	data, err := json.Marshal(payload)
	if err != nil {
		log.Warn("Failed to encode history payload", "err", err)
		return ""
	}
	entry.ID = s.newID()
	entry.Payload = string(data)
	entry.ScannedAt = s.now().UTC()

	if err := s.history.Save(ctx, entry); err != nil {
		log.Warn("Failed to save scan history", "kind", entry.Kind, "err", err)
		return ""
	}
	log.Info("Scan saved to history", "id", entry.ID, "kind", entry.Kind)
	return entry.ID
}

// getFromCache decodes a cached analysis into target and reports whether it was found
func (s *AnalysisService) getFromCache(ctx context.Context, kind, key string, target any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			logging.FromContext(ctx).Warn("Cache lookup failed", "key", key, "err", err)
		}
		s.recorder.RecordCache(kind, false)
		return false
	}
	if err := json.Unmarshal(data, target); err != nil {
		logging.FromContext(ctx).Warn("Discarding undecodable cache entry", "key", key, "err", err)
		s.recorder.RecordCache(kind, false)
		return false
	}
	s.recorder.RecordCache(kind, true)
	return true
}

// setInCache stores an analysis; failures are logged, never returned
func (s *AnalysisService) setInCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		logging.FromContext(ctx).Warn("Failed to encode cache entry", "key", key, "err", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		logging.FromContext(ctx).Warn("Failed to store cache entry", "key", key, "err", err)
	}
}

// productCacheKey creates a normalized cache key from a product request.
// Format: "analysis:product:{normalized_title}:{normalized_brand}:{details_digest}"
func productCacheKey(request *domain.ProductRequest) string {
	var details strings.Builder
	details.WriteString(request.Description)
	details.WriteByte(0)
	details.WriteString(string(request.Price))
	for _, spec := range sortedSpecifications(request.Specifications) {
		details.WriteByte(0)
		details.WriteString(spec.Key)
		details.WriteByte('=')
		details.WriteString(spec.Value)
	}
	sum := sha256.Sum256([]byte(details.String()))

	return fmt.Sprintf("analysis:product:%s:%s:%s",
		normalizeForCacheKey(request.Title),
		normalizeForCacheKey(request.Brand),
		hex.EncodeToString(sum[:8]))
}

// scanCacheKey keys image analyses by content digest
func scanCacheKey(kind domain.ScanKind, image *domain.Image) string {
	sum := sha256.Sum256(image.Data)
	return fmt.Sprintf("analysis:%s:%s", kind, hex.EncodeToString(sum[:]))
}

// normalizeForCacheKey normalizes a string for use as cache key component.
// Converts to lowercase, keeps letters and digits of any script, and trims whitespace.
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

func billSummary(products []domain.ProductAssessment) string {
	names := make([]string, 0, len(products))
	for _, product := range products {
		names = append(names, product.ProductName)
	}
	return strings.Join(names, ", ")
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAIResponse):
		return outcomeInvalidResponse
	case errors.Is(err, domain.ErrEmptyResponse):
		return outcomeEmptyResponse
	case errors.Is(err, domain.ErrInvalidInput):
		return outcomeInvalidInput
	default:
		return outcomeError
	}
}

func debugJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}

type noopRecorder struct{}

func (noopRecorder) RecordAnalysis(string, string)                 {}
func (noopRecorder) RecordGeneration(string, time.Duration, error) {}
func (noopRecorder) RecordCache(string, bool)                      {}
