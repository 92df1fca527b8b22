// Package errors provides standardized error handling for the catalog pipeline and its BPMN workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Structural preconditions. Any of these aborts the whole job.
const (
	ErrCodeTemplateMissing    ErrorCode = "TEMPLATE_MISSING"
	ErrCodeTemplateUnreadable ErrorCode = "TEMPLATE_UNREADABLE"
	ErrCodeSheetNotFound      ErrorCode = "SHEET_NOT_FOUND"
	ErrCodeNoProducts         ErrorCode = "NO_PRODUCTS"
	ErrCodeInvalidSubmission  ErrorCode = "INVALID_SUBMISSION"
)

// Collaborator failures.
const (
	ErrCodeLLMTimeout          ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMRequestFailed    ErrorCode = "LLM_REQUEST_FAILED"
	ErrCodeLLMResponseInvalid  ErrorCode = "LLM_RESPONSE_INVALID"
	ErrCodeRetrievalFailed     ErrorCode = "RETRIEVAL_FAILED"
	ErrCodeMemoryStoreFailed   ErrorCode = "MEMORY_STORE_FAILED"
	ErrCodeJobStoreFailed      ErrorCode = "JOB_STORE_FAILED"
	ErrCodeJobNotFound         ErrorCode = "JOB_NOT_FOUND"
	ErrCodeArtifactNotFound    ErrorCode = "ARTIFACT_NOT_FOUND"
	ErrCodeKickoffTimeout      ErrorCode = "KICKOFF_TIMEOUT"
	ErrCodeWorkbookWriteFailed ErrorCode = "WORKBOOK_WRITE_FAILED"
	ErrCodeNotificationFailed  ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeImportFailed        ErrorCode = "IMPORT_FAILED"
)

// Generic codes shared with the zeebe client wrapper.
const (
	ErrCodeBusinessRule    ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeAuthentication  ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandard unwraps err looking for a *StandardError.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateMissingError is raised when a submission carries no template bytes.
func NewTemplateMissingError() *StandardError {
	return newError(ErrCodeTemplateMissing, "Template file is missing", "no template bytes supplied", false)
}

// NewTemplateUnreadableError wraps a workbook parse failure.
func NewTemplateUnreadableError(err error) *StandardError {
	return newError(ErrCodeTemplateUnreadable, "Template workbook could not be opened", err.Error(), false)
}

// NewSheetNotFoundError is raised when the required sheet is absent from the template.
func NewSheetNotFoundError(sheet string) *StandardError {
	return newError(ErrCodeSheetNotFound, "Required sheet not found in template", fmt.Sprintf("sheet: %s", sheet), false)
}

// NewNoProductsError is raised for an empty product list.
func NewNoProductsError() *StandardError {
	return newError(ErrCodeNoProducts, "No product data supplied", "products list is empty", false)
}

// NewInvalidSubmissionError reports a schema-invalid submission payload.
func NewInvalidSubmissionError(details string) *StandardError {
	return newError(ErrCodeInvalidSubmission, "Submission payload is invalid", details, false)
}

func NewLLMTimeoutError(details string) *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM call timed out", details, true)
}

func NewLLMRequestFailedError(err error) *StandardError {
	return newError(ErrCodeLLMRequestFailed, "LLM request failed", err.Error(), true)
}

func NewLLMResponseInvalidError(details string) *StandardError {
	return newError(ErrCodeLLMResponseInvalid, "LLM response could not be used", details, false)
}

func NewRetrievalFailedError(err error) *StandardError {
	return newError(ErrCodeRetrievalFailed, "Reference document retrieval failed", err.Error(), true)
}

func NewMemoryStoreFailedError(op string, err error) *StandardError {
	return newError(ErrCodeMemoryStoreFailed, "Product memory store error", fmt.Sprintf("op: %s, error: %s", op, err.Error()), true)
}

func NewJobStoreFailedError(op string, err error) *StandardError {
	return newError(ErrCodeJobStoreFailed, "Job status store error", fmt.Sprintf("op: %s, error: %s", op, err.Error()), true)
}

func NewJobNotFoundError(jobID string) *StandardError {
	return newError(ErrCodeJobNotFound, "Job not found", fmt.Sprintf("jobId: %s", jobID), false)
}

func NewArtifactNotFoundError(key string) *StandardError {
	return newError(ErrCodeArtifactNotFound, "Template artifact not found or expired", fmt.Sprintf("key: %s", key), false)
}

// NewKickoffTimeoutError is returned when the pipeline did not confirm start in time.
func NewKickoffTimeoutError(jobID string, waited time.Duration) *StandardError {
	return newError(ErrCodeKickoffTimeout, "Pipeline kickoff was not confirmed in time",
		fmt.Sprintf("jobId: %s, waited: %s", jobID, waited), true)
}

func NewWorkbookWriteFailedError(err error) *StandardError {
	return newError(ErrCodeWorkbookWriteFailed, "Workbook serialization failed", err.Error(), false)
}

func NewNotificationFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationFailed, "Notification delivery failed", fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true)
}

func NewImportFailedError(details string) *StandardError {
	return newError(ErrCodeImportFailed, "Spreadsheet import failed", details, false)
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return newError(ErrCodeBusinessRule, message, details, false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeNotFound, fmt.Sprintf("Resource not found in %s", service), details, false)
}

func NewAuthenticationError(details string) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal codes to the error codes catch events listen on.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeTemplateMissing:    "TEMPLATE_MISSING",
	ErrCodeTemplateUnreadable: "TEMPLATE_UNREADABLE",
	ErrCodeSheetNotFound:      "SHEET_NOT_FOUND",
	ErrCodeNoProducts:         "NO_PRODUCTS",
	ErrCodeInvalidSubmission:  "INVALID_SUBMISSION",
	ErrCodeArtifactNotFound:   "TEMPLATE_MISSING",
	ErrCodeLLMTimeout:         "LLM_TIMEOUT",
	ErrCodeLLMRequestFailed:   "LLM_REQUEST_FAILED",
	ErrCodeMemoryStoreFailed:  "MEMORY_STORE_FAILED",
	ErrCodeJobStoreFailed:     "JOB_STORE_FAILED",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeLLMRequestFailed,
		ErrCodeRetrievalFailed,
		ErrCodeMemoryStoreFailed,
		ErrCodeJobStoreFailed,
		ErrCodeNotificationFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeTimeout,
		ErrCodeKickoffTimeout:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsFatal reports whether the code is a structural precondition failure.
func IsFatal(code ErrorCode) bool {
	switch code {
	case ErrCodeTemplateMissing, ErrCodeTemplateUnreadable, ErrCodeSheetNotFound, ErrCodeNoProducts, ErrCodeInvalidSubmission:
		return true
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TEMPLATE") || strings.Contains(codeStr, "SHEET") || strings.Contains(codeStr, "WORKBOOK"):
		return "TEMPLATE"
	case strings.Contains(codeStr, "PRODUCTS") || strings.Contains(codeStr, "SUBMISSION") || strings.Contains(codeStr, "IMPORT"):
		return "INPUT"
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "RETRIEVAL"):
		return "AI"
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "ARTIFACT") || strings.Contains(codeStr, "JOB"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "TIMEOUT"):
		return "TIMEOUT"
	default:
		return "OTHER"
	}
}
