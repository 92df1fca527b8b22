// Package retrieval looks up reference documents that enrich the prompts of the resolution units.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-workers/internal/common/logger"
)

var ErrRetrievalFailed = errors.New("RETRIEVAL_FAILED")

// NoContext is the prompt text used when no reference document is available.
const NoContext = "Nenhuma informação adicional encontrada na base de conhecimento."

type Document struct {
	ID      string  `json:"id"`
	Title   string  `json:"title,omitempty"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Document, error)
}

// Nop returns no documents.
type Nop struct{}

func (Nop) Retrieve(context.Context, string) ([]Document, error) { return nil, nil }

// QueryFor builds the lookup phrase for a product.
func QueryFor(title string) string {
	if strings.TrimSpace(title) == "" {
		title = "produto"
	}
	return fmt.Sprintf("Forneça informações e especificações para o produto '%s' para ajudar no preenchimento de seus atributos.", title)
}

// FormatContext renders documents as a bullet list for prompts.
func FormatContext(docs []Document) string {
	lines := make([]string, 0, len(docs))
	for _, d := range docs {
		if c := strings.TrimSpace(d.Content); c != "" {
			lines = append(lines, "- "+c)
		}
	}
	if len(lines) == 0 {
		return NoContext
	}
	return strings.Join(lines, "\n")
}

// Retrying retries the wrapped retriever with exponential backoff and fails open: after the last
// attempt it logs and returns no documents.
type Retrying struct {
	next           Retriever
	maxAttempts    int
	initialBackoff time.Duration
	logger         logger.Logger
}

func NewRetrying(next Retriever, maxAttempts int, initialBackoff time.Duration, log logger.Logger) *Retrying {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if initialBackoff <= 0 {
		initialBackoff = 2 * time.Second
	}
	return &Retrying{
		next:           next,
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		logger:         log.With(map[string]interface{}{"component": "retrieval"}),
	}
}

func (r *Retrying) Retrieve(ctx context.Context, query string) ([]Document, error) {
	delay := r.initialBackoff
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		docs, err := r.next.Retrieve(ctx, query)
		if err == nil {
			return docs, nil
		}
		r.logger.Warn("Reference lookup failed", map[string]interface{}{
			"attempt": attempt,
			"error":   err.Error(),
		})
		if attempt == r.maxAttempts {
			break
		}
		select {
		case <-time.After(delay):
			delay *= 2
		case <-ctx.Done():
			r.logger.Warn("Reference lookup abandoned", map[string]interface{}{"error": ctx.Err().Error()})
			return nil, nil
		}
	}
	r.logger.Warn("All reference lookups failed, continuing without documents", nil)
	return nil, nil
}
