package generatespreadsheet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/jobs"
	"catalog-workers/internal/pipeline"
	"catalog-workers/internal/pipeline/pipelinetest"
)

func createTestHandler(t *testing.T) (*Handler, *pipelinetest.Fixture) {
	fx := pipelinetest.New(t)
	return NewHandler(LoadConfig(), fx.Executor, logger.NewTestLogger(t)), fx
}

func TestHandler_Execute_Success(t *testing.T) {
	h, fx := createTestHandler(t)
	fx.StartJob(t, "job-1", 2)

	out, err := h.Execute(context.Background(), &pipeline.Job{ID: "job-1", Products: pipelinetest.Products(2)})
	require.NoError(t, err)

	assert.Equal(t, "job-1", out.JobID)
	assert.Equal(t, jobs.StateSuccess, out.State)
	assert.Equal(t, 2, out.Products)
	assert.NotEmpty(t, out.Filename)

	st := fx.Status(t, "job-1")
	assert.Equal(t, jobs.StateSuccess, st.State)
	assert.NotEmpty(t, st.FileContent)
	assert.Equal(t, 2, fx.LLM.Calls(string(catalog.UnitMainContent)))
}

func TestHandler_Execute_FailureMarksJob(t *testing.T) {
	h, fx := createTestHandler(t)
	_, err := fx.Tracker.Start(context.Background(), "job-1", 1)
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), &pipeline.Job{ID: "job-1", Products: pipelinetest.Products(1)})
	assert.True(t, errors.HasCode(err, errors.ErrCodeArtifactNotFound))

	st := fx.Status(t, "job-1")
	assert.Equal(t, jobs.StateFailure, st.State)
}

func TestHandler_Execute_MissingJobID(t *testing.T) {
	h, _ := createTestHandler(t)

	_, err := h.Execute(context.Background(), &pipeline.Job{Products: pipelinetest.Products(1)})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSubmission))
}
