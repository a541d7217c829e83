package compliance

import (
	"testing"

	"biasaudit/domain/audit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate_AdverseImpactOnly(t *testing.T) {
	r := Evaluate(Input{DisparateImpact: 0.75, DemographicParityDifference: 0.05, ProtectedAttribute: "Gender"})

	assert.Equal(t, audit.SeverityNonCompliant, r.Overall)
	assert.Equal(t, "HIGH", r.RiskLevel)
	require.Len(t, r.Checks, 2)
	assert.Equal(t, "adverse_impact", r.Checks[0].Rule)
	assert.Equal(t, audit.SeverityNonCompliant, r.Checks[0].Status)
	assert.Equal(t, "protected_parity", r.Checks[1].Rule)
	assert.Equal(t, audit.SeverityCompliant, r.Checks[1].Status)

	require.NotNil(t, r.FinancialImpact)
	assert.Equal(t, "INR", r.FinancialImpact.Currency)
	assert.Contains(t, r.Recommendations, "Immediately apply bias mitigation techniques")
	assert.Contains(t, r.LegalOpinion, "Disparate Impact: 0.75")
	assert.Contains(t, r.LegalOpinionHTML, "<strong>Gender</strong>")
}

func TestEvaluate_CriticalParityGap(t *testing.T) {
	r := Evaluate(Input{DisparateImpact: 0.9, DemographicParityDifference: -0.25, ProtectedAttribute: "Religion"})

	assert.Equal(t, audit.SeverityCritical, r.Overall)
	assert.Equal(t, "CRITICAL", r.RiskLevel)
	assert.Contains(t, r.Checks[1].Details, "25.0% parity difference")
	assert.Contains(t, r.Recommendations, "Suspend model deployment immediately")
	assert.NotNil(t, r.FinancialImpact)
}

func TestEvaluate_SectorLendingWarning(t *testing.T) {
	r := Evaluate(Input{DisparateImpact: 0.95, DemographicParityDifference: 0.02, ProtectedAttribute: "Income"})

	assert.Equal(t, audit.SeverityWarning, r.Overall)
	assert.Equal(t, "MEDIUM", r.RiskLevel)
	require.Len(t, r.Checks, 2)
	assert.Equal(t, "sector_lending", r.Checks[1].Rule)
	assert.Nil(t, r.FinancialImpact)
	assert.Equal(t, []string{"Review lending distribution across priority sectors"}, r.Recommendations)
}

func TestEvaluate_SectorLendingNeedsWholeName(t *testing.T) {
	for _, attr := range []string{"Annual_Income", "Region_Code", "Subcaste"} {
		t.Run(attr, func(t *testing.T) {
			r := Evaluate(Input{DisparateImpact: 0.95, DemographicParityDifference: 0.01, ProtectedAttribute: attr})
			for _, c := range r.Checks {
				assert.NotEqual(t, "sector_lending", c.Rule)
			}
			if attr == "Subcaste" {
				return
			}
			assert.Equal(t, audit.SeverityCompliant, r.Overall)
			assert.Equal(t, "LOW", r.RiskLevel)
		})
	}
}

func TestEvaluate_SectorLendingIsCaseInsensitive(t *testing.T) {
	r := Evaluate(Input{DisparateImpact: 0.95, DemographicParityDifference: 0.01, ProtectedAttribute: "REGION"})
	assert.Equal(t, audit.SeverityWarning, r.Overall)
}

func TestEvaluate_CasteTriggersParityAndSectorRules(t *testing.T) {
	r := Evaluate(Input{DisparateImpact: 0.85, DemographicParityDifference: 0.12, ProtectedAttribute: "Caste_Category"})

	require.Len(t, r.Checks, 3)
	assert.Equal(t, audit.SeverityCritical, r.Overall)
	assert.Equal(t, audit.SeverityWarning, r.Checks[2].Status)
}

func TestEvaluate_Compliant(t *testing.T) {
	r := Evaluate(Input{DisparateImpact: 1.0, DemographicParityDifference: 0.0, ProtectedAttribute: "Age"})

	assert.Equal(t, audit.SeverityCompliant, r.Overall)
	assert.Equal(t, "LOW", r.RiskLevel)
	assert.Len(t, r.Checks, 1)
	assert.Empty(t, r.Recommendations)
	assert.NotNil(t, r.Recommendations)
	assert.Contains(t, r.LegalOpinion, "COMPLIANCE VERIFICATION")
	assert.NotContains(t, r.LegalOpinion, "Minor demographic parity gap")
}

func TestEvaluate_MinorGapNote(t *testing.T) {
	r := Evaluate(Input{DisparateImpact: 0.9, DemographicParityDifference: 0.07, ProtectedAttribute: "Gender"})

	assert.Equal(t, audit.SeverityCompliant, r.Overall)
	assert.Contains(t, r.LegalOpinion, "Minor demographic parity gap of 7.0%")
}

func TestEvaluate_OverallIsMaximumOfChecks(t *testing.T) {
	inputs := []Input{
		{DisparateImpact: 0.5, DemographicParityDifference: 0.5, ProtectedAttribute: "race"},
		{DisparateImpact: 0.5, DemographicParityDifference: 0.0, ProtectedAttribute: "region"},
		{DisparateImpact: 1.2, DemographicParityDifference: 0.3, ProtectedAttribute: "disability"},
	}
	for _, in := range inputs {
		r := Evaluate(in)
		max := audit.SeverityCompliant
		for _, c := range r.Checks {
			max = audit.MaxSeverity(max, c.Status)
		}
		assert.Equal(t, max, r.Overall, in.ProtectedAttribute)
	}
}
