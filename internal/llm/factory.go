package llm

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"catalog-workers/internal/common/config"
	"catalog-workers/internal/common/logger"
)

// New builds the configured provider, wrapped in the response cache when enabled and a Redis
// client is available.
func New(ctx context.Context, cfg *config.Config, rdb *redis.Client, log logger.Logger) (Client, error) {
	var client Client
	switch cfg.LLM.Provider {
	case "", "gateway":
		client = NewGatewayClient(GatewayConfigFrom(cfg), log)
	case "gemini":
		gc, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.APIs.Gemini.APIKey,
			Model:       cfg.APIs.Gemini.Model,
			Temperature: cfg.LLM.Temperature,
			MaxRetries:  cfg.LLM.MaxRetries,
			Timeout:     config.GetDuration(cfg.APIs.GenAI.Timeout),
		}, log)
		if err != nil {
			return nil, err
		}
		client = gc
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}

	if cfg.LLM.Cache.Enabled && rdb != nil {
		client = NewCachedClient(client, rdb, config.Days(cfg.LLM.Cache.TTLDays), log)
	}
	return client, nil
}
