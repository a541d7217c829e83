package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AuditID identifies one audit invocation and its stored report
type AuditID string

// NewAuditID creates a new unique identifier using UUID v7 for time-ordered generation
func NewAuditID() AuditID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return AuditID(id.String())
}

// String returns the string representation
func (id AuditID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id AuditID) IsEmpty() bool {
	return id == ""
}

// ParseAuditID validates a textual audit identifier
func ParseAuditID(s string) (AuditID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("audit ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("audit ID %q is not a UUID: %w", s, err)
	}
	return AuditID(s), nil
}
