package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jeevankumar-m/sustainedaway/internal/domain"
	"github.com/jeevankumar-m/sustainedaway/internal/infrastructure/logging"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o-mini"

// Config holds the connection settings for an OpenAI-compatible endpoint
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client generates text with the chat completions API
type Client struct {
	client openai.Client
	model  string
}

// NewClient creates a chat completions client. The API key is required.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: openai api key is required", domain.ErrInvalidInput)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Name identifies the provider in logs and metrics
func (c *Client) Name() string {
	return "openai"
}

// Generate sends the prompt, and the image as a data URL when present
func (c *Client) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	log := logging.FromContext(ctx).With("provider", "openai", "model", c.model)

	params := c.completionParams(req)
	log.Debug("Sending generation request", "prompt_chars", len(req.Prompt), "image", req.Image != nil)

	response, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGeneratorFailure, err)
	}
	if len(response.Choices) == 0 {
		log.Warn("Model returned no choices")
		return "", nil
	}
	return response.Choices[0].Message.Content, nil
}

func (c *Client) completionParams(req domain.GenerationRequest) openai.ChatCompletionNewParams {
	parts := []openai.ChatCompletionContentPartUnionParam{
		{OfText: &openai.ChatCompletionContentPartTextParam{
			Text: req.Prompt,
		}},
	}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, openai.ChatCompletionContentPartUnionParam{
			OfImageURL: &openai.ChatCompletionContentPartImageParam{
				ImageURL: openai.ChatCompletionContentPartImageImageURLParam{
					URL:    dataURL(req.Image),
					Detail: "auto",
				},
			},
		})
	}

	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: parts,
					},
				},
			},
		},
	}
}

// dataURL inlines image bytes so no upload step is needed
func dataURL(image *domain.Image) string {
	mimeType := image.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image.Data)
}
