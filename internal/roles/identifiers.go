package roles

import (
	"strings"

	"biasaudit/domain/dataset"
)

// personalTokens mark columns that identify a person rather than describe a trait
var personalTokens = []string{"name", "email", "phone"}

// idSafeTokens contain "id" without being identifiers
var idSafeTokens = []string{"valid", "video", "acid", "fluid"}

// IsIdentifier applies the identifier rule to a column name
func IsIdentifier(name string) bool {
	lower := strings.ToLower(name)
	if containsAny(lower, personalTokens) {
		return true
	}
	return strings.Contains(lower, "id") && !containsAny(lower, idSafeTokens)
}

func isPersonalName(name string) bool {
	return strings.Contains(strings.ToLower(name), "name")
}

// Identifiers lists identifier columns in schema order. Target and protected are never included.
func Identifiers(schema dataset.Schema, target, protected string) []string {
	var out []string
	for _, col := range schema {
		if col.Name == target || col.Name == protected {
			continue
		}
		if IsIdentifier(col.Name) {
			out = append(out, col.Name)
		}
	}
	return out
}
