// internal/workers/catalog/generate-main-content/models.go
package generatemaincontent

import (
	"catalog-workers/internal/catalog"
	"catalog-workers/internal/pipeline"
)

type Input struct {
	JobID string            `json:"jobId"`
	Task  pipeline.UnitTask `json:"task"`
}

type Output struct {
	Result catalog.Envelope `json:"result"`
}
