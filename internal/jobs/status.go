// Package jobs tracks spreadsheet generation jobs: their polled status, the template artifact
// that travels between workers and the completion notification.
package jobs

import (
	"context"
	"time"
)

type State string

const (
	StatePending  State = "PENDING"
	StateProgress State = "PROGRESS"
	StateSuccess  State = "SUCCESS"
	StateFailure  State = "FAILURE"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

// Status is what Poll returns. SUCCESS carries the workbook as base64; FAILURE carries the
// error type and message.
type Status struct {
	JobID        string    `json:"jobId"`
	State        State     `json:"state"`
	Step         string    `json:"step,omitempty"`
	Products     int       `json:"products"`
	UnitsTotal   int       `json:"unitsTotal,omitempty"`
	Filename     string    `json:"filename,omitempty"`
	FileContent  string    `json:"fileContent,omitempty"`
	ErrorType    string    `json:"errorType,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store persists job statuses. Get returns a JOB_NOT_FOUND error for unknown or expired jobs.
type Store interface {
	Save(ctx context.Context, st *Status) error
	Get(ctx context.Context, jobID string) (*Status, error)
}

// ArtifactStore keeps the uploaded template until the job that needs it finishes.
type ArtifactStore interface {
	Put(ctx context.Context, jobID string, data []byte) error
	Get(ctx context.Context, jobID string) ([]byte, error)
	Delete(ctx context.Context, jobID string) error
}
