package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"catalog-workers/internal/common/logger"
)

const DefaultGeminiModel = "gemini-2.5-flash"

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxRetries  int
	Timeout     time.Duration
	// BaseURL overrides the API endpoint; used by tests.
	BaseURL string
}

// GeminiClient generates text with the Gemini API.
type GeminiClient struct {
	client *genai.Client
	config GeminiConfig
	logger logger.Logger
}

func NewGeminiClient(ctx context.Context, cfg GeminiConfig, log logger.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: cfg,
		logger: log.With(map[string]interface{}{"llm": "gemini", "model": cfg.Model}),
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(c.config.Temperature)),
	}
	if req.JSON {
		gc.ResponseMIMEType = "application/json"
	}
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	return withRetries(ctx, c.config.MaxRetries, func(ctx context.Context) (string, error) {
		resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, contents, gc)
		if err != nil {
			c.logger.Warn("Gemini call failed", map[string]interface{}{
				"unit":  req.Unit,
				"error": err.Error(),
			})
			var apiErr genai.APIError
			if errors.As(err, &apiErr) && apiErr.Code != http.StatusTooManyRequests && apiErr.Code < 500 {
				return "", permanent{err}
			}
			return "", err
		}
		text := resp.Text()
		if strings.TrimSpace(text) == "" {
			return "", permanent{ErrEmptyResponse}
		}
		return text, nil
	})
}
