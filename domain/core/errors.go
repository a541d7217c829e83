package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Validation errors: caused by the uploaded data or the supplied hints
	ErrRoleDetection       = errors.New("column role detection failed")
	ErrEmptyDataset        = errors.New("dataset is empty after dropping missing values")
	ErrInsufficientDomain  = errors.New("protected attribute must have at least 2 values")
	ErrInsufficientSamples = errors.New("insufficient rows for train/test split")
	ErrUnsupportedFormat   = errors.New("unsupported dataset format")
	ErrMalformedDataset    = errors.New("malformed dataset")

	// Not found errors
	ErrReportNotFound = errors.New("audit report not found")

	// Computation errors: training or explaining failed for a reason the caller cannot fix
	ErrComputation = errors.New("computation failure")
)

// NewRoleDetectionError reports which role could not be resolved.
func NewRoleDetectionError(role string, hint string) error {
	return fmt.Errorf("%w: %s column could not be detected, %s", ErrRoleDetection, role, hint)
}

// NewInsufficientDomainError reports the column and the number of distinct values seen.
func NewInsufficientDomainError(column string, distinct int) error {
	return fmt.Errorf("%w: column %q has %d distinct value(s)", ErrInsufficientDomain, column, distinct)
}

// NewComputationError wraps a training/explaining failure.
func NewComputationError(stage string, err error) error {
	return fmt.Errorf("%w during %s: %v", ErrComputation, stage, err)
}

// IsClientError reports whether err was caused by the caller's input and is safe to surface.
func IsClientError(err error) bool {
	return errors.Is(err, ErrRoleDetection) ||
		errors.Is(err, ErrEmptyDataset) ||
		errors.Is(err, ErrInsufficientDomain) ||
		errors.Is(err, ErrInsufficientSamples) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrMalformedDataset)
}

// IsNotFoundError checks for a missing stored report
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrReportNotFound)
}
