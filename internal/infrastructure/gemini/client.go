package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/logging"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.0-flash"

// Config holds the Gemini connection settings
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint, mostly for tests
	BaseURL string
}

// Client generates text with the Gemini API
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client. The API key is required.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", domain.ErrInvalidInput)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// Name identifies the provider in logs and metrics
func (c *Client) Name() string {
	return "gemini"
}

// Generate sends the prompt, and the image when present, as a single user turn
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	log := logging.FromContext(ctx).With("provider", "gemini", "model", c.model)

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image.Data, req.Image.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	log.Debug("Sending generation request", "parts", len(parts), "prompt_chars", len(req.Prompt))
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeneratorFailure, err)
	}

	text := responseText(resp)
	if text == "" {
		log.Warn("Model returned no text")
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}

	var result strings.Builder
	for _, part := range content.Parts {
		if part != nil && part.Text != "" {
			result.WriteString(part.Text)
		}
	}
	return result.String()
}
