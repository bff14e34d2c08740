package queryspec

import (
	"errors"
	"fmt"
)

// Error codes surfaced to the client as error_code + human message,
// never as raw stack traces. Validation failures are terminal; the
// request is malformed by construction and retrying cannot help.
// Connectivity failures carry their specific code so the UI can give
// actionable guidance.
const (
	ErrCodeMissingParams      = "MISSING_PARAMS"
	ErrCodeInvalidIdentifier  = "INVALID_IDENTIFIER"
	ErrCodeInvalidAggregation = "INVALID_AGGREGATION"
	ErrCodeNoFields           = "NO_FIELDS"
	ErrCodeDatasetNotFound    = "DATASET_NOT_FOUND"
	ErrCodeConnectionFailed   = "CONNECTION_FAILED"
	ErrCodeDNSError           = "DNS_ERROR"
	ErrCodeTLSHandshake       = "TLS_HANDSHAKE"
	ErrCodeAuthFailed         = "AUTH_FAILED"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeQueryFailed        = "QUERY_FAILED"
	ErrCodeUnsupportedSource  = "UNSUPPORTED_SOURCE"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// EngineError pairs a taxonomy code with a human-readable message.
type EngineError struct {
	Code    string
	Message string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

// NewError creates an EngineError with the given code and message.
func NewError(code, format string, args ...interface{}) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an EngineError that preserves the underlying cause.
func WrapError(code string, cause error, format string, args ...interface{}) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf extracts the taxonomy code from an error, falling back to
// INTERNAL_ERROR for anything the engine did not classify.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ErrCodeInternal
}
