package processchunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-workers/internal/catalog"
	"catalog-workers/internal/classify"
	"catalog-workers/internal/common/errors"
	"catalog-workers/internal/common/logger"
	"catalog-workers/internal/pipeline"
	"catalog-workers/internal/pipeline/pipelinetest"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) (*Handler, *pipelinetest.Fixture) {
	fx := pipelinetest.New(t)
	return NewHandler(LoadConfig(), fx.Generator, logger.NewTestLogger(t)), fx
}

func createTestInput(plan *classify.Plan, product pipeline.Prepared, chunk string) *Input {
	return &Input{
		JobID: "job-1",
		Plan:  plan,
		Task: pipeline.UnitTask{
			Unit:    pipeline.Unit{Kind: catalog.UnitChunk, Index: product.Index, Chunk: chunk},
			Product: product,
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_EveryChunk(t *testing.T) {
	h, fx := createTestHandler(t)
	plan := fx.Plan(t)
	product := fx.Prepare(t, 1)[0]
	require.NotEmpty(t, plan.Chunks)

	filled := 0
	for _, c := range plan.Chunks {
		out, err := h.Execute(context.Background(), createTestInput(plan, product, c.Name))
		require.NoError(t, err)

		assert.Equal(t, catalog.UnitChunk, out.Result.Kind)
		require.NotNil(t, out.Result.Chunk)
		assert.Equal(t, c.Name, out.Result.Chunk.Chunk)
		for _, v := range out.Result.Chunk.Values {
			assert.Equal(t, "valor", v)
		}
		filled += len(out.Result.Chunk.Values)
	}
	assert.Positive(t, filled)
}

func TestHandler_Execute_UnknownChunkIsEmpty(t *testing.T) {
	h, fx := createTestHandler(t)

	out, err := h.Execute(context.Background(), createTestInput(fx.Plan(t), fx.Prepare(t, 1)[0], "Seção inexistente"))
	require.NoError(t, err)
	assert.Empty(t, out.Result.Chunk.Values)
	assert.Equal(t, 0, fx.LLM.Calls("chunk_fill"))
}

func TestHandler_Execute_Validation(t *testing.T) {
	h, fx := createTestHandler(t)
	plan := fx.Plan(t)
	product := fx.Prepare(t, 1)[0]

	_, err := h.Execute(context.Background(), createTestInput(nil, product, plan.Chunks[0].Name))
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSubmission))

	wrong := createTestInput(plan, product, "")
	wrong.Task.Unit.Kind = catalog.UnitMainContent
	_, err = h.Execute(context.Background(), wrong)
	assert.True(t, errors.HasCode(err, errors.ErrCodeBusinessRule))
}
