package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"biasaudit/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestFromDomain_ClassifiesValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"role detection", core.NewRoleDetectionError("target", "provide target_column"), CodeRoleDetection, http.StatusBadRequest},
		{"empty dataset", fmt.Errorf("audit: %w", core.ErrEmptyDataset), CodeEmptyDataset, http.StatusBadRequest},
		{"insufficient domain", core.NewInsufficientDomainError("Gender", 1), CodeInsufficientDomain, http.StatusBadRequest},
		{"insufficient samples", core.ErrInsufficientSamples, CodeInsufficientSamples, http.StatusBadRequest},
		{"bad format", fmt.Errorf("%w: .pdf", core.ErrUnsupportedFormat), CodeInvalidInput, http.StatusBadRequest},
		{"missing report", core.ErrReportNotFound, CodeNotFound, http.StatusNotFound},
		{"computation", core.NewComputationError("training", stderrors.New("nan weights")), CodeComputationFailure, http.StatusInternalServerError},
		{"unknown", stderrors.New("boom"), CodeComputationFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromDomain(tt.err)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.status, HTTPStatus(appErr.Code))
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestPublicMessage_HidesComputationDetail(t *testing.T) {
	appErr := FromDomain(core.NewComputationError("explaining", stderrors.New("tensor index 17 out of range")))
	assert.Equal(t, "internal computation failure", appErr.PublicMessage())
	assert.NotContains(t, appErr.PublicMessage(), "tensor")

	validation := FromDomain(core.NewRoleDetectionError("protected", "specify explicitly"))
	assert.Contains(t, validation.PublicMessage(), "protected column could not be detected")
}

func TestNotFound_MapsTo404(t *testing.T) {
	err := NotFound("route /nope")
	assert.Equal(t, CodeNotFound, GetCode(err))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(FromDomain(err).Code))
	assert.Equal(t, "route /nope not found", FromDomain(err).PublicMessage())
}

func TestWrap_PreservesCode(t *testing.T) {
	base := InvalidInput("row_index must be an integer")
	wrapped := Wrap(base, "counterfactual request")
	assert.Equal(t, CodeInvalidInput, GetCode(wrapped))
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Equal(t, CodeInternalError, GetCode(Wrap(stderrors.New("x"), "ctx")))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}
