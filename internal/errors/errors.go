package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an emolens error code.
type ErrorCode string

const (
	ErrBlankInput     ErrorCode = "BLANK_INPUT"     // 400
	ErrValidation     ErrorCode = "VALIDATION"      // 400
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrNetwork        ErrorCode = "NETWORK"         // 502, analysis endpoint unreachable
	ErrAPI            ErrorCode = "API"             // 502, analysis endpoint returned non-2xx
	ErrEmptyResult    ErrorCode = "EMPTY_RESULT"    // 502
	ErrTransport      ErrorCode = "TRANSPORT"       // 502, relay unreachable
	ErrServer         ErrorCode = "SERVER"          // 502, relay returned non-2xx
	ErrPersistence    ErrorCode = "PERSISTENCE"     // 500
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// LensError represents a structured error with code, status, and details.
type LensError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *LensError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *LensError) Unwrap() error {
	return e.Cause
}

// NewBlankInput creates a 400 error for an empty or whitespace-only selection.
func NewBlankInput() *LensError {
	return &LensError{
		Code:    ErrBlankInput,
		Status:  400,
		Message: "no text selected",
	}
}

// NewValidation creates a 400 error for a request rejected before it is sent.
func NewValidation(msg string) *LensError {
	return &LensError{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *LensError {
	return &LensError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error.
func NewNotFound(what string) *LensError {
	return &LensError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", what),
		Details: map[string]any{"identifier": what},
	}
}

// NewNetwork creates an error for a transport failure reaching the analysis endpoint.
func NewNetwork(err error) *LensError {
	return &LensError{
		Code:    ErrNetwork,
		Status:  502,
		Message: fmt.Sprintf("analysis endpoint unreachable: %v", err),
		Cause:   err,
	}
}

// NewAPI creates an error for a non-success response from the analysis endpoint.
func NewAPI(status string) *LensError {
	return &LensError{
		Code:    ErrAPI,
		Status:  502,
		Message: fmt.Sprintf("API Error: %s", status),
		Details: map[string]any{"status": status},
	}
}

// NewEmptyResult creates an error for a response that carries no emotions.
func NewEmptyResult() *LensError {
	return &LensError{
		Code:    ErrEmptyResult,
		Status:  502,
		Message: "No valid sentiment data received from API",
	}
}

// NewTransport creates an error for a transport failure reaching the relay.
func NewTransport(err error) *LensError {
	return &LensError{
		Code:    ErrTransport,
		Status:  502,
		Message: fmt.Sprintf("relay unreachable: %v", err),
		Cause:   err,
	}
}

// NewServer creates an error for a non-success response from the relay.
func NewServer(statusCode int, status string) *LensError {
	return &LensError{
		Code:    ErrServer,
		Status:  502,
		Message: fmt.Sprintf("Server Error: %s", status),
		Details: map[string]any{"status_code": statusCode},
	}
}

// NewPersistence creates a 500 error for a failed local history write or read.
func NewPersistence(err error) *LensError {
	return &LensError{
		Code:    ErrPersistence,
		Status:  500,
		Message: fmt.Sprintf("history persistence failed: %v", err),
		Cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *LensError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &LensError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Cause:   err,
	}
}

// Is checks if an error is, or wraps, a LensError with the given code.
func Is(err error, code ErrorCode) bool {
	var lErr *LensError
	if stderrors.As(err, &lErr) {
		return lErr.Code == code
	}
	return false
}
