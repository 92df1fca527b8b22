// internal/workers/catalog/assemble-spreadsheet/models.go
package assemblespreadsheet

import (
	"catalog-workers/internal/catalog"
	"catalog-workers/internal/jobs"
	"catalog-workers/internal/pipeline"
)

// Input is collected after the unit activities: results is the multi-instance output
// collection, in any order.
type Input struct {
	JobID    string                      `json:"jobId"`
	Prepared []pipeline.Prepared         `json:"prepared"`
	Images   map[string]catalog.ImageSet `json:"images,omitempty"`
	Results  []catalog.Envelope          `json:"results"`
}

// Output deliberately leaves out the workbook; it is served from the job status.
type Output struct {
	JobID    string     `json:"jobId"`
	State    jobs.State `json:"state"`
	Filename string     `json:"filename"`
	Products int        `json:"products"`
	Rows     int        `json:"rows"`
}
