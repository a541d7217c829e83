package compliance

import (
	"fmt"
	"math"
	"strings"

	"biasaudit/domain/audit"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var exposure = audit.FinancialImpact{
	EstimatedPenalty:   "₹50 Lakhs - ₹5 Crores",
	ReputationalDamage: "Severe brand impact in Indian market",
	ComplianceCost:     "₹20-30 Lakhs for remediation",
	Currency:           "INR",
}

// Evaluate runs every rule in order. The overall status is the highest severity
// among the emitted checks.
func Evaluate(in Input) audit.ComplianceReport {
	report := audit.ComplianceReport{
		Checks:          []audit.RuleCheck{},
		Overall:         audit.SeverityCompliant,
		Recommendations: []string{},
	}

	for _, r := range rules {
		check, recs, triggered := r.check(in)
		if !triggered {
			continue
		}
		check.Rule = r.name
		report.Checks = append(report.Checks, check)
		report.Recommendations = append(report.Recommendations, recs...)
		report.Overall = audit.MaxSeverity(report.Overall, check.Status)
	}

	report.RiskLevel = report.Overall.RiskLevel()
	if report.Overall >= audit.SeverityNonCompliant {
		impact := exposure
		report.FinancialImpact = &impact
	}

	report.LegalOpinion = opinion(in, report)
	report.LegalOpinionHTML = RenderHTML(report.LegalOpinion)
	return report
}

// opinion concatenates the narrative templates of the triggered rules
func opinion(in Input, report audit.ComplianceReport) string {
	var parts []string
	gap := math.Abs(in.DemographicParityDifference) * 100

	if in.DisparateImpact < AdverseImpactThreshold {
		parts = append(parts,
			"**CRITICAL REGULATORY ALERT:**",
			fmt.Sprintf("The model is unfairly penalizing **%s** (Disparate Impact: %.2f).", in.ProtectedAttribute, in.DisparateImpact),
			"This aligns with a prohibited bias under **Article 15 of the Constitution of India** and **RBI FREE-AI Guidelines**.")
	} else {
		parts = append(parts,
			"**COMPLIANCE VERIFICATION:**",
			fmt.Sprintf("The model demonstrates acceptable fairness for **%s** (Disparate Impact: %.2f).", in.ProtectedAttribute, in.DisparateImpact),
			"Current metrics align with **RBI FREE-AI Framework** fairness thresholds.")
	}

	for _, c := range report.Checks {
		switch {
		case c.Rule == "protected_parity" && c.Status == audit.SeverityCritical:
			parts = append(parts, fmt.Sprintf("A parity gap of %.1f%% on **%s** exceeds the 10%% tolerance for a constitutionally protected category.", gap, in.ProtectedAttribute))
		case c.Rule == "sector_lending":
			parts = append(parts, "Skewed outcomes on this attribute may also put **Priority Sector Lending** targets at risk.")
		}
	}

	if report.FinancialImpact != nil {
		parts = append(parts, fmt.Sprintf("Estimated regulatory liability is **%s**.", report.FinancialImpact.EstimatedPenalty))
	}

	if report.Overall >= audit.SeverityNonCompliant {
		parts = append(parts, "**Legal Recommendation:** Immediate suspension of model deployment is advised. Consult legal counsel before proceeding with any automated decision-making on this attribute.")
	} else if gap > MinorGapThreshold*100 {
		parts = append(parts, fmt.Sprintf("Note: Minor demographic parity gap of %.1f%% detected. While compliant, continued monitoring is recommended.", gap))
	}

	return strings.Join(parts, " ")
}

// RenderHTML converts the markdown narrative to HTML
func RenderHTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return string(markdown.ToHTML([]byte(md), p, r))
}
