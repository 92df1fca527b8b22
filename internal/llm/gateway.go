package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"catalog-workers/internal/common/config"
	httpclient "catalog-workers/internal/common/http"
	"catalog-workers/internal/common/logger"
)

const (
	generatePath     = "/api/ai/generate"
	defaultMaxTokens = 2048
)

type GatewayConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxRetries  int
	MaxTokens   int
	Temperature float64
}

// GatewayConfigFrom reads the gateway section of the application config.
func GatewayConfigFrom(cfg *config.Config) GatewayConfig {
	return GatewayConfig{
		BaseURL:     cfg.APIs.GenAI.BaseURL,
		APIKey:      cfg.APIs.GenAI.APIKey,
		Timeout:     config.GetDuration(cfg.APIs.GenAI.Timeout),
		MaxRetries:  cfg.LLM.MaxRetries,
		Temperature: cfg.LLM.Temperature,
	}
}

type generateRequest struct {
	Prompt      string                 `json:"prompt"`
	Context     map[string]interface{} `json:"context"`
	MaxTokens   int                    `json:"max_tokens"`
	Temperature float64                `json:"temperature"`
}

type generateResponse struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources"`
}

// GatewayClient calls the internal GenAI gateway.
type GatewayClient struct {
	config GatewayConfig
	http   *httpclient.Client
	logger logger.Logger
}

func NewGatewayClient(cfg GatewayConfig, log logger.Logger) *GatewayClient {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &GatewayClient{
		config: cfg,
		http:   httpclient.NewClient(0),
		logger: log.With(map[string]interface{}{"llm": "gateway"}),
	}
}

func (c *GatewayClient) Generate(ctx context.Context, req Request) (string, error) {
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	body := generateRequest{
		Prompt:      req.Prompt,
		Context:     req.Context,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}
	headers := map[string]string{}
	if c.config.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.config.APIKey
	}
	url := strings.TrimRight(c.config.BaseURL, "/") + generatePath

	return withRetries(ctx, c.config.MaxRetries, func(ctx context.Context) (string, error) {
		var resp generateResponse
		if err := c.http.PostJSON(ctx, url, headers, body, &resp); err != nil {
			c.logger.Warn("Gateway call failed", map[string]interface{}{
				"unit":  req.Unit,
				"error": err.Error(),
			})
			var se *httpclient.StatusError
			if errors.As(err, &se) && !se.Retryable() {
				return "", permanent{err}
			}
			return "", err
		}
		if strings.TrimSpace(resp.Text) == "" {
			return "", permanent{ErrEmptyResponse}
		}
		return resp.Text, nil
	})
}
