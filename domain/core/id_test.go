package core

import (
	"errors"
	"fmt"
	"testing"
)

// TestNewAuditIDUniqueness tests that NewAuditID generates unique identifiers
func TestNewAuditIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[AuditID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewAuditID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

// TestParseAuditID tests audit ID parsing
func TestParseAuditID(t *testing.T) {
	valid := NewAuditID()

	tests := []struct {
		input    string
		hasError bool
	}{
		{valid.String(), false},
		{"  " + valid.String() + " ", false},
		{"", true},
		{"   ", true},
		{"not-a-uuid", true},
	}

	for _, tt := range tests {
		got, err := ParseAuditID(tt.input)
		if tt.hasError {
			if err == nil {
				t.Errorf("ParseAuditID(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAuditID(%q) unexpected error: %v", tt.input, err)
		}
		if got != valid {
			t.Errorf("ParseAuditID(%q) = %q, want %q", tt.input, got, valid)
		}
	}
}

func TestHashShort(t *testing.T) {
	h := NewHash([]byte("Gender,Loan_Approved\nMale,1\n"))
	if len(h) != 64 {
		t.Fatalf("Expected 64 hex chars, got %d", len(h))
	}
	if h.Short() != string(h)[:12] {
		t.Errorf("Short() = %q", h.Short())
	}
	if NewHash([]byte("a")) == NewHash([]byte("b")) {
		t.Error("Different inputs must hash differently")
	}
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		err    error
		client bool
	}{
		{NewRoleDetectionError("target", "provide target_column"), true},
		{fmt.Errorf("loading: %w", ErrEmptyDataset), true},
		{NewInsufficientDomainError("Gender", 1), true},
		{ErrInsufficientSamples, true},
		{NewComputationError("training", errors.New("singular")), false},
		{errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := IsClientError(tt.err); got != tt.client {
			t.Errorf("IsClientError(%v) = %v, want %v", tt.err, got, tt.client)
		}
	}
}
