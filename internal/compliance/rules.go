// Package compliance maps fairness metrics onto regulatory rule checks and a
// narrative legal opinion.
package compliance

import (
	"fmt"
	"math"
	"strings"

	"biasaudit/domain/audit"
)

const (
	// AdverseImpactThreshold is the four-fifths line for disparate impact
	AdverseImpactThreshold = 0.8
	// ParityThreshold is the largest tolerated parity gap on a sensitive attribute
	ParityThreshold = 0.10
	// MinorGapThreshold marks a parity gap worth monitoring even when compliant
	MinorGapThreshold = 0.05
)

const (
	regulationFairness  = "RBI FREE-AI Framework (Fairness Sutra)"
	regulationArticle15 = "Constitution of India - Article 15 (Anti-Discrimination)"
	regulationPSL       = "Priority Sector Lending (PSL) Guidelines"
)

var (
	sensitiveKeywords = []string{"caste", "religion", "gender", "race", "ethnicity"}
	// economicCategories are whole attribute names, compared case-insensitively
	economicCategories = []string{"caste", "caste_category", "income", "region"}
)

// Input is what the evaluator needs: two metrics and the attribute they were measured on
type Input struct {
	DisparateImpact             float64 `json:"disparate_impact" form:"disparate_impact"`
	DemographicParityDifference float64 `json:"demographic_parity_difference" form:"demographic_parity_difference"`
	ProtectedAttribute          string  `json:"protected_attribute" form:"protected_attribute" binding:"required"`
}

// rule evaluates one regulation. triggered=false means the rule does not apply and
// emits no check.
type rule struct {
	name  string
	check func(in Input) (audit.RuleCheck, []string, bool)
}

var rules = []rule{
	{name: "adverse_impact", check: adverseImpact},
	{name: "protected_parity", check: protectedParity},
	{name: "sector_lending", check: sectorLending},
}

func adverseImpact(in Input) (audit.RuleCheck, []string, bool) {
	check := audit.RuleCheck{Regulation: regulationFairness}
	if in.DisparateImpact >= AdverseImpactThreshold {
		check.Status = audit.SeverityCompliant
		check.Severity = "N/A"
		check.Details = fmt.Sprintf("Disparate Impact of %.2f meets the 0.8 threshold", in.DisparateImpact)
		return check, nil, true
	}

	check.Status = audit.SeverityNonCompliant
	check.Severity = "HIGH"
	check.Details = fmt.Sprintf("Disparate Impact of %.2f is below the 0.8 threshold", in.DisparateImpact)
	check.Risk = "High - Regulatory penalties and mandatory model retraining"
	recs := []string{
		"Immediately apply bias mitigation techniques",
		"Document fairness improvement plan for RBI submission",
	}
	return check, recs, true
}

func protectedParity(in Input) (audit.RuleCheck, []string, bool) {
	if !matchesAny(in.ProtectedAttribute, sensitiveKeywords) {
		return audit.RuleCheck{}, nil, false
	}

	check := audit.RuleCheck{Regulation: regulationArticle15}
	gap := math.Abs(in.DemographicParityDifference)
	if gap <= ParityThreshold {
		check.Status = audit.SeverityCompliant
		check.Severity = "N/A"
		check.Details = fmt.Sprintf("Protected attribute '%s' shows acceptable parity", in.ProtectedAttribute)
		return check, nil, true
	}

	check.Status = audit.SeverityCritical
	check.Severity = "CRITICAL"
	check.Details = fmt.Sprintf("Discrimination detected on protected attribute '%s' with %.1f%% parity difference",
		in.ProtectedAttribute, gap*100)
	check.Risk = "Litigation Imminent - Violation of fundamental rights"
	recs := []string{
		"Suspend model deployment immediately",
		"Consult legal team for compliance strategy",
	}
	return check, recs, true
}

func sectorLending(in Input) (audit.RuleCheck, []string, bool) {
	if !isOneOf(in.ProtectedAttribute, economicCategories) {
		return audit.RuleCheck{}, nil, false
	}
	check := audit.RuleCheck{
		Regulation: regulationPSL,
		Status:     audit.SeverityWarning,
		Severity:   "MEDIUM",
		Details:    "Bias against certain groups may impact regulatory lending quotas",
		Risk:       "Potential shortfall in PSL targets (40% for domestic banks)",
	}
	return check, []string{"Review lending distribution across priority sectors"}, true
}

func isOneOf(name string, names []string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, n := range names {
		if lower == n {
			return true
		}
	}
	return false
}

func matchesAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
