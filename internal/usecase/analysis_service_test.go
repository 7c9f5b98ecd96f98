package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu        sync.Mutex
	data      map[string][]byte
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string][]byte),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockGenerator is a mock implementation of domain.Generator
type MockGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	respond  func(req domain.GenerationRequest) (string, error)
	calls    []domain.GenerationRequest
}

func (m *MockGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	respond := m.respond
	m.mu.Unlock()

	if respond != nil {
		return respond(req)
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *MockGenerator) Name() string { return "mock" }

func (m *MockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MockHistoryRepository is a mock implementation of domain.HistoryRepository
type MockHistoryRepository struct {
	saved     []domain.HistoryEntry
	saveError error
	listLimit int
}

func (m *MockHistoryRepository) Save(ctx context.Context, entry *domain.HistoryEntry) error {
	if m.saveError != nil {
		return m.saveError
	}
	m.saved = append(m.saved, *entry)
	return nil
}

func (m *MockHistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	m.listLimit = limit
	var out []domain.HistoryEntry
	for _, entry := range m.saved {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// MockRecorder collects analysis outcomes
type MockRecorder struct {
	mu          sync.Mutex
	outcomes    []string
	generations int
	cacheHits   int
}

func (m *MockRecorder) RecordAnalysis(kind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, kind+":"+outcome)
}

func (m *MockRecorder) RecordGeneration(provider string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations++
}

func (m *MockRecorder) RecordCache(kind string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.cacheHits++
	}
}

const validProductResponse = "```json\n" + `{
	"title": "Eco Bottle",
	"score": 4.5,
	"analysis": {"environmental": "Reusable steel", "health": "BPA free", "social": "Fair wages"},
	"recommendations": {"environmental": "Use recycled steel", "health": ["Avoid painted interiors"]},
	"certifications": ["B Corp"],
	"key_features": {"positive": ["Durable"], "negative": ["Heavy"]}
}` + "\n```"

func newProductRequest() *domain.ProductRequest {
	return &domain.ProductRequest{
		Title:       "Eco Bottle",
		Description: "Stainless steel water bottle",
		Brand:       "GreenCo",
		Price:       "24.99",
		Specifications: map[string]string{
			"Material": "Steel",
			"Capacity": "750ml",
		},
	}
}

func testImage() *domain.Image {
	return &domain.Image{Data: []byte("\x89PNG\r\n\x1a\nfake"), MIMEType: "image/png"}
}

func TestNewAnalysisService(t *testing.T) {
	t.Run("creates service with default values", func(t *testing.T) {
		svc := NewAnalysisService(&MockGenerator{}, nil, nil, nil, AnalysisServiceConfig{})
		if svc == nil {
			t.Fatal("expected service to be created")
		}
		if svc.cacheTTL != 24*time.Hour {
			t.Errorf("cacheTTL = %v, want 24h", svc.cacheTTL)
		}
		if svc.batchConcurrency != 4 {
			t.Errorf("batchConcurrency = %d, want 4", svc.batchConcurrency)
		}
		if svc.recorder == nil {
			t.Error("expected a no-op recorder")
		}
	})

	t.Run("creates service with custom values", func(t *testing.T) {
		svc := NewAnalysisService(&MockGenerator{}, nil, nil, nil, AnalysisServiceConfig{
			CacheTTL:          time.Hour,
			GenerationTimeout: 5 * time.Second,
			BatchConcurrency:  8,
		})
		if svc.cacheTTL != time.Hour {
			t.Errorf("cacheTTL = %v, want 1h", svc.cacheTTL)
		}
		if svc.timeout != 5*time.Second {
			t.Errorf("timeout = %v, want 5s", svc.timeout)
		}
		if svc.batchConcurrency != 8 {
			t.Errorf("batchConcurrency = %d, want 8", svc.batchConcurrency)
		}
	})
}

func TestAnalyzeProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("returns input failure for nil request", func(t *testing.T) {
		generator := &MockGenerator{response: validProductResponse}
		svc := NewAnalysisService(generator, nil, nil, nil, AnalysisServiceConfig{})

		result := svc.AnalyzeProduct(ctx, nil)
		if result.Error != MsgInvalidInput {
			t.Errorf("Error = %q, want %q", result.Error, MsgInvalidInput)
		}
		if generator.callCount() != 0 {
			t.Error("generator must not be called")
		}
	})

	t.Run("normalizes a valid response", func(t *testing.T) {
		generator := &MockGenerator{response: validProductResponse}
		recorder := &MockRecorder{}
		svc := NewAnalysisService(generator, nil, nil, recorder, AnalysisServiceConfig{})

		result := svc.AnalyzeProduct(ctx, newProductRequest())
		if result.Failed() {
			t.Fatalf("unexpected failure: %s", result.Error)
		}
		if result.Title != "Eco Bottle" || result.Score != 4.5 {
			t.Errorf("got title %q score %v", result.Title, result.Score)
		}
		if got := result.Recommendations.Environmental; len(got) != 1 || got[0] != "Use recycled steel" {
			t.Errorf("Environmental = %v, want wrapped string", got)
		}
		if got := result.Recommendations.Social; len(got) != 1 || got[0] != NoRecommendation {
			t.Errorf("Social = %v, want placeholder", got)
		}
		if recorder.generations != 1 {
			t.Errorf("generations = %d, want 1", recorder.generations)
		}
		if len(recorder.outcomes) != 1 || recorder.outcomes[0] != "product:success" {
			t.Errorf("outcomes = %v", recorder.outcomes)
		}
	})

	t.Run("prompt carries the product details", func(t *testing.T) {
		generator := &MockGenerator{response: validProductResponse}
		svc := NewAnalysisService(generator, nil, nil, nil, AnalysisServiceConfig{})

		svc.AnalyzeProduct(ctx, newProductRequest())
		prompt := generator.calls[0].Prompt
		for _, want := range []string{"Eco Bottle", "GreenCo", "24.99", "- Capacity: 750ml", "- Material: Steel"} {
			if !strings.Contains(prompt, want) {
				t.Errorf("prompt missing %q", want)
			}
		}
		if generator.calls[0].Image != nil {
			t.Error("product prompt must not carry an image")
		}
	})

	t.Run("returns cached analysis without calling the generator", func(t *testing.T) {
		cache := NewMockCacheRepository()
		generator := &MockGenerator{response: validProductResponse}
		recorder := &MockRecorder{}
		svc := NewAnalysisService(generator, cache, nil, recorder, AnalysisServiceConfig{})

		first := svc.AnalyzeProduct(ctx, newProductRequest())
		second := svc.AnalyzeProduct(ctx, newProductRequest())

		if generator.callCount() != 1 {
			t.Errorf("generator calls = %d, want 1", generator.callCount())
		}
		if !cache.setCalled {
			t.Error("expected result to be cached")
		}
		if recorder.cacheHits != 1 {
			t.Errorf("cacheHits = %d, want 1", recorder.cacheHits)
		}
		if second.Title != first.Title || second.Score != first.Score {
			t.Errorf("cached result differs: %+v vs %+v", second, first)
		}
	})

	t.Run("does not cache failures", func(t *testing.T) {
		cache := NewMockCacheRepository()
		generator := &MockGenerator{response: "not json"}
		svc := NewAnalysisService(generator, cache, nil, nil, AnalysisServiceConfig{})

		result := svc.AnalyzeProduct(ctx, newProductRequest())
		if result.Error != MsgInvalidAIResponse {
			t.Errorf("Error = %q, want %q", result.Error, MsgInvalidAIResponse)
		}
		if cache.setCalled {
			t.Error("failure must not be cached")
		}
	})

	t.Run("cache errors do not fail the analysis", func(t *testing.T) {
		cache := NewMockCacheRepository()
		cache.getError = domain.ErrCacheUnavailable
		cache.setError = domain.ErrCacheUnavailable
		svc := NewAnalysisService(&MockGenerator{response: validProductResponse}, cache, nil, nil, AnalysisServiceConfig{})

		result := svc.AnalyzeProduct(ctx, newProductRequest())
		if result.Failed() {
			t.Errorf("unexpected failure: %s", result.Error)
		}
	})

	t.Run("maps generator errors to the fallback", func(t *testing.T) {
		recorder := &MockRecorder{}
		svc := NewAnalysisService(&MockGenerator{err: errors.New("quota exceeded")}, nil, nil, recorder, AnalysisServiceConfig{})

		result := svc.AnalyzeProduct(ctx, newProductRequest())
		want := "Error analyzing product: AI service request failed: quota exceeded"
		if result.Error != want {
			t.Errorf("Error = %q, want %q", result.Error, want)
		}
		if result.Title != "Eco Bottle" {
			t.Errorf("Title = %q, want request title", result.Title)
		}
		if recorder.outcomes[0] != "product:error" {
			t.Errorf("outcome = %q, want product:error", recorder.outcomes[0])
		}
	})

	t.Run("maps empty responses to the fallback", func(t *testing.T) {
		svc := NewAnalysisService(&MockGenerator{response: "  "}, nil, nil, nil, AnalysisServiceConfig{})

		result := svc.AnalyzeProduct(ctx, newProductRequest())
		if result.Error != MsgNoAIResponse {
			t.Errorf("Error = %q, want %q", result.Error, MsgNoAIResponse)
		}
	})

	t.Run("missing generator yields a fallback", func(t *testing.T) {
		svc := NewAnalysisService(nil, nil, nil, nil, AnalysisServiceConfig{})

		result := svc.AnalyzeProduct(ctx, newProductRequest())
		if !strings.HasPrefix(result.Error, "Error analyzing product: ") {
			t.Errorf("Error = %q", result.Error)
		}
	})

	t.Run("recovers from generator panics", func(t *testing.T) {
		generator := &MockGenerator{respond: func(domain.GenerationRequest) (string, error) {
			panic("kaboom")
		}}
		svc := NewAnalysisService(generator, nil, nil, nil, AnalysisServiceConfig{})

		result := svc.AnalyzeProduct(ctx, newProductRequest())
		if !strings.Contains(result.Error, "kaboom") {
			t.Errorf("Error = %q, want panic message", result.Error)
		}
	})

	t.Run("applies the generation timeout", func(t *testing.T) {
		generator := &MockGenerator{respond: func(domain.GenerationRequest) (string, error) {
			return "", context.DeadlineExceeded
		}}
		svc := NewAnalysisService(generator, nil, nil, nil, AnalysisServiceConfig{GenerationTimeout: time.Millisecond})

		result := svc.AnalyzeProduct(ctx, newProductRequest())
		if !strings.Contains(result.Error, "deadline exceeded") {
			t.Errorf("Error = %q, want deadline message", result.Error)
		}
	})
}

func TestAnalyzeImage(t *testing.T) {
	ctx := context.Background()
	response := `{"productName":"Granola","brand":"Nature Valley","sustainabilityRating":3.5,"recommendations":{"environmental":["Compostable wrapper"],"health":["Less sugar"],"social":["Fair trade oats"]}}`

	t.Run("returns input failure without image", func(t *testing.T) {
		generator := &MockGenerator{response: response}
		svc := NewAnalysisService(generator, nil, nil, nil, AnalysisServiceConfig{})

		result, id := svc.AnalyzeImage(ctx, domain.ScanRequest{})
		if result.Error != MsgNoImage || id != "" {
			t.Errorf("got error %q id %q", result.Error, id)
		}
		if generator.callCount() != 0 {
			t.Error("generator must not be called")
		}
	})

	t.Run("analyzes the image and records history", func(t *testing.T) {
		generator := &MockGenerator{response: response}
		history := &MockHistoryRepository{}
		svc := NewAnalysisService(generator, nil, history, nil, AnalysisServiceConfig{})
		svc.newID = func() string { return "scan-1" }
		svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

		result, id := svc.AnalyzeImage(ctx, domain.ScanRequest{Image: testImage(), UserID: "user-1", ImageURL: "https://img/1.png"})
		if result.Failed() {
			t.Fatalf("unexpected failure: %s", result.Error)
		}
		if result.ProductName != "Granola" || result.SustainabilityRating != 3.5 {
			t.Errorf("got %+v", result.ProductAssessment)
		}
		if id != "scan-1" {
			t.Errorf("id = %q, want scan-1", id)
		}
		if generator.calls[0].Image == nil {
			t.Error("image must be forwarded to the generator")
		}

		if len(history.saved) != 1 {
			t.Fatalf("saved = %d, want 1", len(history.saved))
		}
		entry := history.saved[0]
		if entry.UserID != "user-1" || entry.Kind != domain.ScanKindImage || entry.ProductName != "Granola" || entry.Brand != "Nature Valley" {
			t.Errorf("entry = %+v", entry)
		}
		if entry.ImageURL != "https://img/1.png" || !entry.ScannedAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)) {
			t.Errorf("entry = %+v", entry)
		}
		var payload domain.ImageAnalysis
		if err := json.Unmarshal([]byte(entry.Payload), &payload); err != nil {
			t.Fatalf("payload is not JSON: %v", err)
		}
		if payload.ProductName != "Granola" {
			t.Errorf("payload productName = %q", payload.ProductName)
		}
	})

	t.Run("failed analyses are not recorded", func(t *testing.T) {
		history := &MockHistoryRepository{}
		svc := NewAnalysisService(&MockGenerator{response: "sorry"}, nil, history, nil, AnalysisServiceConfig{})

		result, id := svc.AnalyzeImage(ctx, domain.ScanRequest{Image: testImage(), UserID: "user-1"})
		if result.Error != MsgInvalidAIResponse {
			t.Errorf("Error = %q, want %q", result.Error, MsgInvalidAIResponse)
		}
		if id != "" || len(history.saved) != 0 {
			t.Error("failure must not be recorded")
		}
	})

	t.Run("history errors do not fail the analysis", func(t *testing.T) {
		history := &MockHistoryRepository{saveError: errors.New("disk full")}
		svc := NewAnalysisService(&MockGenerator{response: response}, nil, history, nil, AnalysisServiceConfig{})

		result, id := svc.AnalyzeImage(ctx, domain.ScanRequest{Image: testImage()})
		if result.Failed() || id != "" {
			t.Errorf("got error %q id %q", result.Error, id)
		}
	})

	t.Run("identical images hit the cache", func(t *testing.T) {
		cache := NewMockCacheRepository()
		generator := &MockGenerator{response: response}
		history := &MockHistoryRepository{}
		svc := NewAnalysisService(generator, cache, history, nil, AnalysisServiceConfig{})

		svc.AnalyzeImage(ctx, domain.ScanRequest{Image: testImage()})
		result, _ := svc.AnalyzeImage(ctx, domain.ScanRequest{Image: testImage()})

		if generator.callCount() != 1 {
			t.Errorf("generator calls = %d, want 1", generator.callCount())
		}
		if result.ProductName != "Granola" {
			t.Errorf("ProductName = %q", result.ProductName)
		}
		if len(history.saved) != 2 {
			t.Errorf("saved = %d, want every scan recorded", len(history.saved))
		}
	})
}

func TestAnalyzeBill(t *testing.T) {
	ctx := context.Background()
	response := `{"products":[{"productName":"Milk"},{"productName":"Bread"}],"overallSustainabilityScore":3.2,"recommendations":["Bring bags"]}`

	t.Run("returns input failure without image", func(t *testing.T) {
		svc := NewAnalysisService(&MockGenerator{response: response}, nil, nil, nil, AnalysisServiceConfig{})

		result, _ := svc.AnalyzeBill(ctx, domain.ScanRequest{Image: &domain.Image{}})
		if result.Error != MsgNoImage {
			t.Errorf("Error = %q, want %q", result.Error, MsgNoImage)
		}
	})

	t.Run("analyzes the bill and records history", func(t *testing.T) {
		history := &MockHistoryRepository{}
		svc := NewAnalysisService(&MockGenerator{response: response}, nil, history, nil, AnalysisServiceConfig{})
		svc.newID = func() string { return "bill-1" }

		result, id := svc.AnalyzeBill(ctx, domain.ScanRequest{Image: testImage(), UserID: "user-2"})
		if result.Failed() {
			t.Fatalf("unexpected failure: %s", result.Error)
		}
		if len(result.Products) != 2 || result.OverallSustainabilityScore != 3.2 {
			t.Errorf("got %+v", result)
		}
		if result.Recommendations.Health[0] != NoRecommendation {
			t.Errorf("flat recommendations must be replaced, got %v", result.Recommendations)
		}
		if id != "bill-1" {
			t.Errorf("id = %q", id)
		}
		if history.saved[0].ProductName != "Milk, Bread" || history.saved[0].Kind != domain.ScanKindBill {
			t.Errorf("entry = %+v", history.saved[0])
		}
	})

	t.Run("maps generator errors to the fallback", func(t *testing.T) {
		svc := NewAnalysisService(&MockGenerator{err: errors.New("unavailable")}, nil, nil, nil, AnalysisServiceConfig{})

		result, _ := svc.AnalyzeBill(ctx, domain.ScanRequest{Image: testImage()})
		want := "Error processing bill: AI service request failed: unavailable"
		if result.Error != want {
			t.Errorf("Error = %q, want %q", result.Error, want)
		}
		if result.Products == nil {
			t.Error("products must be an empty list")
		}
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("unavailable without a store", func(t *testing.T) {
		svc := NewAnalysisService(&MockGenerator{}, nil, nil, nil, AnalysisServiceConfig{})

		_, err := svc.History(ctx, "user-1", 10)
		if !errors.Is(err, domain.ErrHistoryUnavailable) {
			t.Errorf("error = %v, want ErrHistoryUnavailable", err)
		}
	})

	t.Run("requires a user", func(t *testing.T) {
		svc := NewAnalysisService(&MockGenerator{}, nil, &MockHistoryRepository{}, nil, AnalysisServiceConfig{})

		_, err := svc.History(ctx, " ", 10)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("clamps the limit", func(t *testing.T) {
		history := &MockHistoryRepository{saved: []domain.HistoryEntry{{ID: "1", UserID: "u"}, {ID: "2", UserID: "other"}}}
		svc := NewAnalysisService(&MockGenerator{}, nil, history, nil, AnalysisServiceConfig{})

		entries, err := svc.History(ctx, "u", 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(entries) != 1 || history.listLimit != 50 {
			t.Errorf("entries = %d limit = %d", len(entries), history.listLimit)
		}

		_, _ = svc.History(ctx, "u", 10000)
		if history.listLimit != 200 {
			t.Errorf("limit = %d, want 200", history.listLimit)
		}
	})
}

func TestProductCacheKey(t *testing.T) {
	base := newProductRequest()

	t.Run("normalizes title and brand", func(t *testing.T) {
		key := productCacheKey(base)
		if !strings.HasPrefix(key, "analysis:product:eco bottle:greenco:") {
			t.Errorf("key = %q", key)
		}
	})

	t.Run("equal requests give equal keys", func(t *testing.T) {
		other := newProductRequest()
		other.Title = "  ECO   Bottle! "
		if productCacheKey(base) != productCacheKey(other) {
			t.Error("expected equal keys")
		}
	})

	t.Run("details change the key", func(t *testing.T) {
		other := newProductRequest()
		other.Specifications["Material"] = "Plastic"
		if productCacheKey(base) == productCacheKey(other) {
			t.Error("expected different keys")
		}
	})
}

func TestNormalizeForCacheKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Chicken Breast", "chicken breast"},
		{"  CHICKEN  BREAST  ", "chicken breast"},
		{"chicken-breast", "chickenbreast"},
		{"Chicken & Rice", "chicken rice"},
		{"Éco Savon", "éco savon"},
		{"緑茶 500ml", "緑茶 500ml"},
		{"Чай «Зелёный»", "чай зелёный"},
		{"हरी चाय", "हरी चाय"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := normalizeForCacheKey(tt.input)
			if result != tt.expected {
				t.Errorf("normalizeForCacheKey(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrInvalidAIResponse, "invalid_response"},
		{domain.ErrEmptyResponse, "empty_response"},
		{domain.ErrInvalidInput, "invalid_input"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := outcomeFor(tt.err); got != tt.want {
				t.Errorf("outcomeFor(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
