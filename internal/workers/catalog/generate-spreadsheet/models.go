// internal/workers/catalog/generate-spreadsheet/models.go
package generatespreadsheet

import "catalog-workers/internal/jobs"

type Output struct {
	JobID    string     `json:"jobId"`
	State    jobs.State `json:"state"`
	Filename string     `json:"filename"`
	Products int        `json:"products"`
}
