package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"biasaudit/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodeDatabaseError       = "DATABASE_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeInternalError       = "INTERNAL_ERROR"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeRoleDetection       = "ROLE_DETECTION_FAILED"
	CodeEmptyDataset        = "EMPTY_DATASET"
	CodeInsufficientDomain  = "INSUFFICIENT_DOMAIN"
	CodeInsufficientSamples = "INSUFFICIENT_SAMPLES"
	CodeComputationFailure  = "COMPUTATION_FAILURE"
)

// opaqueComputationMessage is all a caller learns about a server-side failure
const opaqueComputationMessage = "internal computation failure"

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

// FromDomain classifies a pipeline error into a transport-safe AppError.
// Validation-class errors keep their message so the caller can supply explicit hints;
// everything else becomes an opaque computation failure.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Code != CodeInternalError {
		return appErr
	}

	switch {
	case stderrors.Is(err, core.ErrRoleDetection):
		return &AppError{Code: CodeRoleDetection, Message: err.Error(), Cause: err}
	case stderrors.Is(err, core.ErrEmptyDataset):
		return &AppError{Code: CodeEmptyDataset, Message: err.Error(), Cause: err}
	case stderrors.Is(err, core.ErrInsufficientDomain):
		return &AppError{Code: CodeInsufficientDomain, Message: err.Error(), Cause: err}
	case stderrors.Is(err, core.ErrInsufficientSamples):
		return &AppError{Code: CodeInsufficientSamples, Message: err.Error(), Cause: err}
	case stderrors.Is(err, core.ErrUnsupportedFormat), stderrors.Is(err, core.ErrMalformedDataset):
		return &AppError{Code: CodeInvalidInput, Message: err.Error(), Cause: err}
	case stderrors.Is(err, core.ErrReportNotFound):
		return &AppError{Code: CodeNotFound, Message: err.Error(), Cause: err}
	default:
		return &AppError{Code: CodeComputationFailure, Message: opaqueComputationMessage, Cause: err}
	}
}

// PublicMessage is the text safe to return to a client. Opaque codes never leak the cause.
func (e *AppError) PublicMessage() string {
	switch e.Code {
	case CodeComputationFailure, CodeInternalError, CodeDatabaseError, CodeConfigInvalid:
		return opaqueComputationMessage
	}
	return e.Message
}

// HTTPStatus maps an error code to the response status
func HTTPStatus(code string) int {
	switch code {
	case CodeRoleDetection, CodeEmptyDataset, CodeInsufficientDomain, CodeInsufficientSamples, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
