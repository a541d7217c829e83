package audit

import (
	"encoding/json"
	"math"
	"time"

	"biasaudit/domain/core"
)

// ColumnRoles is the role assignment computed once per request from the schema
type ColumnRoles struct {
	Target      string   `json:"target_column"`
	Protected   string   `json:"protected_attribute"`
	Identifiers []string `json:"identifiers,omitempty"`
}

// IsIdentifier reports whether the column was excluded as an identifier
func (r ColumnRoles) IsIdentifier(name string) bool {
	for _, id := range r.Identifiers {
		if id == name {
			return true
		}
	}
	return false
}

// FairnessMetrics compares the favorable-outcome rates of two protected groups
type FairnessMetrics struct {
	DisparateImpact             float64  `json:"disparate_impact"`
	DemographicParityDifference float64  `json:"demographic_parity_difference"`
	FavorableLabel              string   `json:"favorable_label"`
	GroupA                      string   `json:"group_a"`
	GroupB                      string   `json:"group_b"`
	SelectionRateA              float64  `json:"selection_rate_a"`
	SelectionRateB              float64  `json:"selection_rate_b"`
	FairnessScore               float64  `json:"fairness_score"`
	GroupsIgnored               []string `json:"groups_ignored,omitempty"`
}

// GroupsCompared returns the compared groups in report order
func (m FairnessMetrics) GroupsCompared() []string {
	return []string{m.GroupA, m.GroupB}
}

// FeatureImportance is one ranked entry of the explanation
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// CounterfactualResult is the outcome of flipping the protected value on one row
type CounterfactualResult struct {
	OriginalOutcome     string            `json:"original_outcome_label"`
	FlippedOutcome      string            `json:"flipped_outcome_label"`
	OriginalProbability float64           `json:"original_probability"`
	FlippedProbability  float64           `json:"flipped_probability"`
	BiasConfirmed       bool              `json:"bias_confirmed"`
	OriginalGroup       string            `json:"original_group"`
	FlippedGroup        string            `json:"flipped_group"`
	ProtectedAttribute  string            `json:"protected_attribute"`
	Message             string            `json:"message"`
	RowIndex            int               `json:"row_index"`
	RowData             map[string]string `json:"row_data,omitempty"`
}

// Severity orders compliance outcomes: Compliant < Warning < NonCompliant < Critical
type Severity int

const (
	SeverityCompliant Severity = iota
	SeverityWarning
	SeverityNonCompliant
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityCompliant:    "COMPLIANT",
	SeverityWarning:      "WARNING",
	SeverityNonCompliant: "NON_COMPLIANT",
	SeverityCritical:     "CRITICAL",
}

var riskLevels = map[Severity]string{
	SeverityCompliant:    "LOW",
	SeverityWarning:      "MEDIUM",
	SeverityNonCompliant: "HIGH",
	SeverityCritical:     "CRITICAL",
}

// String returns the wire name of the severity
func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// RiskLevel maps a severity to the reported risk level
func (s Severity) RiskLevel() string {
	if level, ok := riskLevels[s]; ok {
		return level
	}
	return "UNKNOWN"
}

// MarshalJSON encodes the severity by name
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MaxSeverity returns the higher of two severities
func MaxSeverity(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}

// RuleCheck is the result of one compliance rule
type RuleCheck struct {
	Rule       string   `json:"rule"`
	Regulation string   `json:"regulation"`
	Status     Severity `json:"status"`
	Severity   string   `json:"severity"`
	Details    string   `json:"details"`
	Risk       string   `json:"risk,omitempty"`
}

// FinancialImpact estimates exposure when the risk level is HIGH or CRITICAL
type FinancialImpact struct {
	EstimatedPenalty   string `json:"estimated_penalty"`
	ReputationalDamage string `json:"reputational_damage"`
	ComplianceCost     string `json:"compliance_cost"`
	Currency           string `json:"currency"`
}

// ComplianceReport is the ordered list of rule checks plus the overall verdict
type ComplianceReport struct {
	Checks           []RuleCheck      `json:"compliance_checks"`
	Overall          Severity         `json:"overall_status"`
	RiskLevel        string           `json:"risk_level"`
	Recommendations  []string         `json:"recommendations"`
	FinancialImpact  *FinancialImpact `json:"financial_impact,omitempty"`
	LegalOpinion     string           `json:"legal_opinion"`
	LegalOpinionHTML string           `json:"legal_opinion_html"`
}

// RepresentativeProfile is an example applicant surfaced with the audit
type RepresentativeProfile struct {
	Name               string `json:"name"`
	CreditScore        string `json:"credit_score"`
	Income             string `json:"income"`
	ProtectedValue     string `json:"protected_value"`
	Status             string `json:"status"`
	ProtectedAttribute string `json:"protected_attribute"`
}

// AuditDetails carries the metric breakdown of an audit
type AuditDetails struct {
	FairnessMetrics
	ConfusionMatrix [][]int  `json:"confusion_matrix"`
	ConfusionLabels []string `json:"confusion_labels"`
	TargetColumn    string   `json:"target_column"`
	ProtectedColumn string   `json:"protected_attribute"`
	Features        []string `json:"features"`
}

// AuditReport is the response of the audit operation
type AuditReport struct {
	ID                    core.AuditID           `json:"audit_id"`
	DatasetHash           core.Hash              `json:"dataset_hash,omitempty"`
	CreatedAt             time.Time              `json:"created_at"`
	FairnessScore         float64                `json:"fairness_score"`
	Accuracy              float64                `json:"accuracy"`
	TopFeatures           []FeatureImportance    `json:"top_features"`
	AttributionFallback   string                 `json:"attribution_fallback,omitempty"`
	Details               AuditDetails           `json:"details"`
	RepresentativeProfile *RepresentativeProfile `json:"representative_profile,omitempty"`
}

// ExplainReport is the explainability-only view
type ExplainReport struct {
	TopFeatures []FeatureImportance `json:"top_features"`
	Message     string              `json:"message"`
	Debug       ExplainDebug        `json:"debug_info"`
}

// ExplainDebug describes how the attribution vector was obtained
type ExplainDebug struct {
	FeatureNames    []string `json:"feature_names"`
	FeatureCount    int      `json:"feature_names_len"`
	AttributionSize int      `json:"attribution_len"`
	Fallback        string   `json:"fallback,omitempty"`
	ExplainedRows   int      `json:"explained_rows"`
}

// MitigationReport compares fairness before and after rebalancing
type MitigationReport struct {
	OriginalScore  float64           `json:"original_score"`
	MitigatedScore float64           `json:"mitigated_score"`
	Improvement    float64           `json:"improvement"`
	Details        MitigationDetails `json:"details"`
}

// MitigationDetails holds the metric pairs and the sample-count delta
type MitigationDetails struct {
	OriginalDisparateImpact    float64 `json:"original_disparate_impact"`
	MitigatedDisparateImpact   float64 `json:"mitigated_disparate_impact"`
	OriginalDemographicParity  float64 `json:"original_demographic_parity"`
	MitigatedDemographicParity float64 `json:"mitigated_demographic_parity"`
	SamplesAdded               int     `json:"samples_added"`
	OversampledGroup           string  `json:"oversampled_group,omitempty"`
}

// StoredReport is the ledger row persisted for each audit
type StoredReport struct {
	ID                 core.AuditID    `db:"id" json:"id"`
	Operation          string          `db:"operation" json:"operation"`
	DatasetHash        string          `db:"dataset_hash" json:"dataset_hash"`
	TargetColumn       string          `db:"target_column" json:"target_column"`
	ProtectedAttribute string          `db:"protected_attribute" json:"protected_attribute"`
	FairnessScore      float64         `db:"fairness_score" json:"fairness_score"`
	DisparateImpact    float64         `db:"disparate_impact" json:"disparate_impact"`
	Payload            json.RawMessage `db:"payload" json:"payload"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
}

// Round4 rounds metric values for reporting
func Round4(v float64) float64 {
	return roundTo(v, 4)
}

// Round2 rounds scores for reporting
func Round2(v float64) float64 {
	return roundTo(v, 2)
}

func roundTo(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
