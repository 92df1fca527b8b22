package assemblespreadsheet

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/jobs"
	"catalog-workers/internal/pipeline"
	"catalog-workers/internal/pipeline/pipelinetest"
	"catalog-workers/internal/template"
	tt "catalog-workers/internal/template/templatetest"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) (*Handler, *pipelinetest.Fixture) {
	fx := pipelinetest.New(t)
	return NewHandler(LoadConfig(), fx.Executor, logger.NewTestLogger(t)), fx
}

// createTestInput runs every unit the way the unit workers would and carries the
// envelopes through JSON, as process variables do.
func createTestInput(t *testing.T, fx *pipelinetest.Fixture, jobID string, products int) *Input {
	plan := fx.Plan(t)
	prepared := fx.Prepare(t, products)

	var envelopes []catalog.Envelope
	for _, task := range pipeline.Tasks(pipeline.Units(plan, len(prepared)), prepared) {
		r := fx.Generator.RunUnit(context.Background(), plan, task.Unit, task.Product.Input())
		envelopes = append(envelopes, catalog.Wrap(r))
	}
	raw, err := json.Marshal(envelopes)
	require.NoError(t, err)

	input := &Input{
		JobID:    jobID,
		Prepared: prepared,
		Images:   map[string]catalog.ImageSet{"0": {Principal: "https://img.example.com/a.jpg"}},
	}
	require.NoError(t, json.Unmarshal(raw, &input.Results))
	return input
}

func cellValue(t *testing.T, st *jobs.Status, col, row int) string {
	data, err := base64.StdEncoding.DecodeString(st.FileContent)
	require.NoError(t, err)
	f, err := template.Open(data)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(tt.Sheet, tt.Cell(col, row))
	require.NoError(t, err)
	return v
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	h, fx := createTestHandler(t)
	fx.StartJob(t, "job-1", 2)

	out, err := h.Execute(context.Background(), createTestInput(t, fx, "job-1", 2))
	require.NoError(t, err)

	assert.Equal(t, jobs.StateSuccess, out.State)
	assert.Equal(t, 2, out.Products)
	assert.Equal(t, 2, out.Rows)
	assert.NotEmpty(t, out.Filename)

	st := fx.Status(t, "job-1")
	assert.Equal(t, jobs.StateSuccess, st.State)
	assert.Equal(t, out.Filename, st.Filename)

	row := template.DefaultLayout().DataRow
	assert.Equal(t, "GT-500-A", cellValue(t, st, tt.ColSKU, row))
	assert.Equal(t, "GT-500-B", cellValue(t, st, tt.ColSKU, row+1))
	assert.Equal(t, pipelinetest.Title, cellValue(t, st, tt.ColItemName, row))
	assert.Equal(t, "Azul", cellValue(t, st, tt.ColColor, row+1))
	assert.Equal(t, "https://img.example.com/a.jpg", cellValue(t, st, tt.ColMainImage, row))

	_, err = fx.Artifacts.Get(context.Background(), "job-1")
	assert.True(t, errors.HasCode(err, errors.ErrCodeArtifactNotFound), "template removed once the job finishes")
}

func TestHandler_Execute_RemembersGeneratedContent(t *testing.T) {
	h, fx := createTestHandler(t)
	fx.StartJob(t, "job-1", 1)

	_, err := h.Execute(context.Background(), createTestInput(t, fx, "job-1", 1))
	require.NoError(t, err)

	rec, err := fx.Memory.Get(context.Background(), "sku_GT-500-A")
	require.NoError(t, err)
	assert.Equal(t, pipelinetest.Title, rec.Content.Main.Title)
}

func TestHandler_Execute_UndecodableResultIsDropped(t *testing.T) {
	h, fx := createTestHandler(t)
	fx.StartJob(t, "job-1", 1)

	input := createTestInput(t, fx, "job-1", 1)
	input.Results = append(input.Results, catalog.Envelope{Kind: catalog.UnitChunk})

	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateSuccess, out.State)
	assert.Equal(t, 1, out.Rows)
}

func TestHandler_Execute_MissingResultsStillWriteRows(t *testing.T) {
	h, fx := createTestHandler(t)
	fx.StartJob(t, "job-1", 1)

	input := createTestInput(t, fx, "job-1", 1)
	input.Results = nil

	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Rows)

	st := fx.Status(t, "job-1")
	assert.Equal(t, "GT-500-A", cellValue(t, st, tt.ColSKU, template.DefaultLayout().DataRow))
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_ArtifactExpired(t *testing.T) {
	h, fx := createTestHandler(t)
	fx.StartJob(t, "job-1", 1)
	input := createTestInput(t, fx, "job-1", 1)
	require.NoError(t, fx.Artifacts.Delete(context.Background(), "job-1"))

	_, err := h.Execute(context.Background(), input)
	assert.True(t, errors.HasCode(err, errors.ErrCodeArtifactNotFound))

	st := fx.Status(t, "job-1")
	assert.Equal(t, jobs.StateFailure, st.State)
	assert.Equal(t, string(errors.ErrCodeArtifactNotFound), st.ErrorType)
}

func TestHandler_Execute_MissingJobID(t *testing.T) {
	h, _ := createTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSubmission))
}
