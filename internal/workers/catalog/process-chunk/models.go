// internal/workers/catalog/process-chunk/models.go
package processchunk

import (
	"catalog-workers/internal/catalog"
	"catalog-workers/internal/classify"
	"catalog-workers/internal/pipeline"
)

type Input struct {
	JobID string            `json:"jobId"`
	Plan  *classify.Plan    `json:"plan"`
	Task  pipeline.UnitTask `json:"task"`
}

type Output struct {
	Result catalog.Envelope `json:"result"`
}
