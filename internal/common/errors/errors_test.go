package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name            string
		err             *StandardError
		expectedCode    string
		expectedRetries int
	}{
		{"fatal sheet error", NewSheetNotFoundError("Modelo"), "SHEET_NOT_FOUND", 0},
		{"artifact maps to template missing", NewArtifactNotFoundError("k"), "TEMPLATE_MISSING", 0},
		{"retryable llm failure", NewLLMRequestFailedError(fmt.Errorf("502")), "LLM_REQUEST_FAILED", 3},
		{"llm timeout", NewLLMTimeoutError("slow"), "LLM_TIMEOUT", 1},
		{"unmapped code passes through", NewRetrievalFailedError(fmt.Errorf("x")), "RETRIEVAL_FAILED", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.expectedCode, bpmn.Code)
			assert.Equal(t, tt.expectedRetries, bpmn.Retries)
			vars := bpmn.ToErrorVariables()
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
			assert.Equal(t, tt.expectedCode, vars["errorCode"])
		})
	}
}

func TestNonRetryableSuppressesRetries(t *testing.T) {
	err := NewLLMRequestFailedError(fmt.Errorf("x"))
	err.Retryable = false
	assert.Equal(t, 0, ConvertToBPMNError(err).Retries)
}

func TestAsStandard_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("pipeline: %w", NewNoProductsError())

	stdErr, ok := AsStandard(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeNoProducts, stdErr.Code)
	assert.True(t, HasCode(wrapped, ErrCodeNoProducts))
	assert.False(t, HasCode(stderrors.New("plain"), ErrCodeNoProducts))
}

func TestNormalize_PlainError(t *testing.T) {
	stdErr := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.Equal(t, "boom", stdErr.Details)
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrCodeTemplateMissing))
	assert.True(t, IsFatal(ErrCodeNoProducts))
	assert.False(t, IsFatal(ErrCodeLLMTimeout))
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "TEMPLATE", GetErrorCategory(ErrCodeSheetNotFound))
	assert.Equal(t, "INPUT", GetErrorCategory(ErrCodeNoProducts))
	assert.Equal(t, "AI", GetErrorCategory(ErrCodeLLMTimeout))
	assert.Equal(t, "STORAGE", GetErrorCategory(ErrCodeJobNotFound))
	assert.Equal(t, "TIMEOUT", GetErrorCategory(ErrCodeKickoffTimeout))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeAuthentication))
}

func TestWithMetadata(t *testing.T) {
	err := NewJobNotFoundError("abc").WithMetadata("attempt", 2)
	assert.Equal(t, 2, err.Metadata["attempt"])
	assert.Contains(t, err.Error(), "JOB_NOT_FOUND")
}
