// internal/workers/catalog/extract-schema/models.go
package extractschema

import (
	"catalog-workers/internal/catalog"
	"catalog-workers/internal/classify"
	"catalog-workers/internal/pipeline"
)

type Input struct {
	JobID       string            `json:"jobId"`
	Products    []catalog.Product `json:"products"`
	ForceUpdate bool              `json:"forceUpdate,omitempty"`
}

// Output feeds the multi-instance unit activities: one instance per entry of tasks.
type Output struct {
	Plan      *classify.Plan      `json:"plan"`
	Prepared  []pipeline.Prepared `json:"prepared"`
	Tasks     []pipeline.UnitTask `json:"tasks"`
	UnitCount int                 `json:"unitCount"`
}
