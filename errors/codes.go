package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: provider timeouts, temporary service unavailability.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: unknown task name, missing template variable, invalid input.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates resource exhaustion or quota issues.
	// Examples: provider rate limiting, token quota exceeded.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates unexpected errors, bugs, or system failures.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for common failure scenarios.
const (
	// Transient errors
	ErrCodeTimeout     ErrorCode = "TIMEOUT"     // Provider call timed out
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE" // Provider temporarily unavailable
	ErrCodeNetworkErr  ErrorCode = "NETWORK_ERR" // Network connectivity issue

	// Permanent errors
	ErrCodeUnknownTask     ErrorCode = "UNKNOWN_TASK"     // Task name not in registry
	ErrCodeUnknownPipeline ErrorCode = "UNKNOWN_PIPELINE" // Pipeline name not configured
	ErrCodeMissingVariable ErrorCode = "MISSING_VARIABLE" // Required template variable absent
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"    // Malformed or invalid request input
	ErrCodeUnsupported     ErrorCode = "UNSUPPORTED"      // Document/media type not supported
	ErrCodeCanceled        ErrorCode = "CANCELED"         // Operation was canceled

	// Resource errors
	ErrCodeRateLimit     ErrorCode = "RATE_LIMITED"   // Provider rate limit exceeded
	ErrCodeQuotaExceeded ErrorCode = "QUOTA_EXCEEDED" // Token or billing quota exhausted

	// Pipeline errors
	ErrCodeTaskExecution    ErrorCode = "TASK_EXECUTION"    // Model invocation for a task failed
	ErrCodeSchemaValidation ErrorCode = "SCHEMA_VALIDATION" // Output does not match declared schema
	ErrCodeConfig           ErrorCode = "CONFIG"            // Configuration could not be loaded
	ErrCodeProvider         ErrorCode = "PROVIDER"          // Collaborator (extractor, retriever) failed

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL" // Unexpected internal error
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	// Transient
	case ErrCodeTimeout, ErrCodeUnavailable, ErrCodeNetworkErr:
		return CategoryTransient

	// Permanent
	case ErrCodeUnknownTask, ErrCodeUnknownPipeline, ErrCodeMissingVariable,
		ErrCodeInvalidInput, ErrCodeUnsupported, ErrCodeCanceled,
		ErrCodeSchemaValidation, ErrCodeConfig:
		return CategoryPermanent

	// Resource
	case ErrCodeRateLimit, ErrCodeQuotaExceeded:
		return CategoryResource

	// Varies with the underlying cause; treated as transient so the
	// orchestrator may substitute a degraded stage and continue.
	case ErrCodeTaskExecution, ErrCodeProvider:
		return CategoryTransient

	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}
