package retrieval

import (
	"github.com/elastic/go-elasticsearch/v8"

	"catalog-workers/internal/common/config"
	"catalog-workers/internal/common/logger"
)

// New returns the configured retriever. Disabled retrieval or a missing client yields Nop.
func New(cfg config.RetrievalConfig, es *elasticsearch.Client, log logger.Logger) Retriever {
	if !cfg.Enabled || es == nil || cfg.Index == "" {
		return Nop{}
	}
	return NewRetrying(NewElastic(es, cfg.Index, cfg.Size), cfg.MaxAttempts, config.GetDuration(cfg.InitialBackoff), log)
}
