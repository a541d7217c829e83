// Package roles infers which columns of an uploaded dataset hold the decision
// outcome, the protected attribute, and personal identifiers.
package roles

import (
	"strings"

	"biasaudit/domain/audit"
	"biasaudit/domain/core"
	"biasaudit/domain/dataset"
	"biasaudit/internal/logging"

	"go.uber.org/zap"
)

// Hints are optional user-supplied role names. Names absent from the schema are ignored.
type Hints struct {
	Target    string
	Protected string
}

// priorityTargets are canonical outcome column names, matched case-insensitively
var priorityTargets = []string{
	"loan_approved", "loan_status", "approved", "status", "target", "class", "outcome", "y",
}

// targetKeywords are substrings that suggest an outcome column
var targetKeywords = []string{
	"outcome", "class", "target", "label", "decision", "approved", "churn", "status",
}

// targetStopTokens disqualify a keyword match ("Months_Employed" is not a status)
var targetStopTokens = []string{"months"}

// protectedKeywords name legally protected categories
var protectedKeywords = []string{
	"gender", "sex", "race", "ethnicity", "disability", "caste", "religion", "age",
}

// rule is one (predicate, role) step. chosenTarget is empty while the target is being resolved.
type rule struct {
	name  string
	match func(col dataset.Column, chosenTarget string) bool
}

var targetRules = []rule{
	{
		name: "priority_name",
		match: func(col dataset.Column, _ string) bool {
			return containsFold(priorityTargets, col.Name)
		},
	},
	{
		name: "target_keyword",
		match: func(col dataset.Column, _ string) bool {
			lower := strings.ToLower(col.Name)
			return containsAny(lower, targetKeywords) && !containsAny(lower, targetStopTokens)
		},
	},
}

var protectedRules = []rule{
	{
		name: "protected_keyword",
		match: func(col dataset.Column, target string) bool {
			return col.Name != target && containsAny(strings.ToLower(col.Name), protectedKeywords)
		},
	},
	{
		name: "first_categorical",
		match: func(col dataset.Column, target string) bool {
			return col.Kind == dataset.KindCategorical &&
				col.Name != target &&
				!isPersonalName(col.Name)
		},
	},
}

// Detector resolves column roles from a schema. It holds no per-request state.
type Detector struct {
	logger *zap.Logger
}

// NewDetector creates a detector
func NewDetector(logger *zap.Logger) *Detector {
	return &Detector{logger: logging.OrNop(logger).Named("detector")}
}

// Detect resolves target and protected columns. Identical schema and hints always
// produce identical roles.
func (d *Detector) Detect(schema dataset.Schema, hints Hints) (audit.ColumnRoles, error) {
	target := d.acceptHint(schema, hints.Target, "target")
	protected := d.acceptHint(schema, hints.Protected, "protected")

	if target != "" && target == protected {
		d.logger.Warn("protected hint names the target column, auto-detecting",
			zap.String("hint", hints.Protected))
		protected = ""
	}

	if target == "" {
		col, via, ok := firstMatch(schema, targetRules, protected)
		if !ok {
			return audit.ColumnRoles{}, core.NewRoleDetectionError("target",
				"please name it explicitly (target_column)")
		}
		target = col
		d.logger.Info("auto-detected target", zap.String("column", target), zap.String("rule", via))
	}

	if protected == "" {
		col, via, ok := firstMatch(schema, protectedRules, target)
		if !ok {
			return audit.ColumnRoles{}, core.NewRoleDetectionError("protected",
				"please name it explicitly (protected_attribute)")
		}
		protected = col
		d.logger.Info("auto-detected protected attribute", zap.String("column", protected), zap.String("rule", via))
	}

	return audit.ColumnRoles{
		Target:      target,
		Protected:   protected,
		Identifiers: Identifiers(schema, target, protected),
	}, nil
}

func (d *Detector) acceptHint(schema dataset.Schema, hint, role string) string {
	if hint == "" {
		return ""
	}
	if !schema.Has(hint) {
		d.logger.Warn("hint not found in columns, auto-detecting",
			zap.String("role", role), zap.String("hint", hint))
		return ""
	}
	return hint
}

// firstMatch evaluates rules in priority order; within a rule the first column in
// schema order wins.
func firstMatch(schema dataset.Schema, rules []rule, other string) (string, string, bool) {
	for _, r := range rules {
		for _, col := range schema {
			if col.Name == other {
				continue
			}
			if r.match(col, other) {
				return col.Name, r.name, true
			}
		}
	}
	return "", "", false
}

func containsFold(set []string, name string) bool {
	for _, s := range set {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
