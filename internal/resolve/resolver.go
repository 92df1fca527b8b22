// Package resolve implements the three per-product resolution units: listing copy, constrained
// option choices and free-text chunk fills. Units never fail; any error yields an empty result of
// the unit's own type.
package resolve

import (
	"time"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/common/metrics"
	"catalog-workers/internal/llm"
)

const (
	outcomeOK    = "ok"
	outcomeMemo  = "memo"
	outcomeEmpty = "empty"
)

// Input is what every unit receives for one product.
type Input struct {
	Index   int
	Product catalog.Product
	// Reference is the formatted retrieval context, possibly empty.
	Reference string
	// Memo holds previously generated content for the product, nil when absent or forced.
	Memo *catalog.Bundle
	// Fresh skips cached model responses.
	Fresh bool
}

type Resolver struct {
	llm    llm.Client
	rules  catalog.Rules
	logger logger.Logger
}

func New(client llm.Client, rules catalog.Rules, log logger.Logger) *Resolver {
	return &Resolver{
		llm:    client,
		rules:  rules,
		logger: log.With(map[string]interface{}{"component": "resolve"}),
	}
}

func observe(unit catalog.UnitKind, start time.Time, outcome string) {
	metrics.UnitsTotal.WithLabelValues(string(unit), outcome).Inc()
	metrics.UnitDuration.WithLabelValues(string(unit)).Observe(time.Since(start).Seconds())
}

func (r *Resolver) unitLogger(unit catalog.UnitKind, in Input) logger.Logger {
	return r.logger.WithFields(map[string]interface{}{
		"unit":         string(unit),
		"productIndex": in.Index,
		"sku":          in.Product.SKU,
	})
}
