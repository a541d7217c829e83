// Package counterfactual tests whether a single prediction depends on the
// protected attribute by flipping it and querying the model again.
package counterfactual

import (
	"fmt"
	"sort"

	"biasaudit/domain/audit"
	"biasaudit/domain/core"
	"biasaudit/internal/logging"
	"biasaudit/internal/prep"
	"biasaudit/ports"

	"go.uber.org/zap"
)

// Analyzer flips the protected value of one row
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{logger: logging.OrNop(logger).Named("counterfactual")}
}

// Domain returns the two smallest distinct encoded protected values across the
// prepared dataset. Fewer than two values fail with core.ErrInsufficientDomain.
func Domain(p *prep.Prepared) (v0, v1 float64, err error) {
	values := p.ProtectedValues()
	seen := make(map[float64]bool)
	var distinct []float64
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			distinct = append(distinct, v)
		}
	}
	if len(distinct) < 2 {
		return 0, 0, core.NewInsufficientDomainError(p.Roles.Protected, len(distinct))
	}
	sort.Float64s(distinct)
	return distinct[0], distinct[1], nil
}

// Flip returns the value a protected value flips to
func Flip(current, v0, v1 float64) float64 {
	if current == v0 {
		return v1
	}
	return v0
}

// Analyze compares the model's prediction on row with the prediction on the same row
// with only the protected value flipped. An out-of-range row falls back to row 0.
func (a *Analyzer) Analyze(p *prep.Prepared, model ports.Classifier, row int) (*audit.CounterfactualResult, error) {
	v0, v1, err := Domain(p)
	if err != nil {
		return nil, err
	}
	if row < 0 || row >= p.Rows() {
		a.logger.Warn("row index out of range, using first row",
			zap.Int("row_index", row),
			zap.Int("rows", p.Rows()))
		row = 0
	}

	col := p.ProtectedIndex()
	original := append([]float64(nil), p.X[row]...)
	flipped := append([]float64(nil), original...)
	flipped[col] = Flip(original[col], v0, v1)

	preds := model.Predict([][]float64{original, flipped})
	probs := model.PredictProba([][]float64{original, flipped})

	res := &audit.CounterfactualResult{
		OriginalOutcome:     p.LabelName(preds[0]),
		FlippedOutcome:      p.LabelName(preds[1]),
		OriginalProbability: audit.Round4(positiveProbability(probs[0])),
		FlippedProbability:  audit.Round4(positiveProbability(probs[1])),
		BiasConfirmed:       preds[0] != preds[1],
		OriginalGroup:       p.GroupName(original[col]),
		FlippedGroup:        p.GroupName(flipped[col]),
		ProtectedAttribute:  p.Roles.Protected,
		RowIndex:            row,
		RowData:             p.Source.Record(row),
	}
	res.Message = message(res, preds[1] > preds[0])

	a.logger.Info("counterfactual evaluated",
		zap.Int("row_index", row),
		zap.String("original_group", res.OriginalGroup),
		zap.String("flipped_group", res.FlippedGroup),
		zap.Bool("bias_confirmed", res.BiasConfirmed))
	return res, nil
}

// positiveProbability is the probability of the second class, or of the only class
func positiveProbability(probs []float64) float64 {
	if len(probs) > 1 {
		return probs[1]
	}
	if len(probs) == 1 {
		return probs[0]
	}
	return 0
}

func message(r *audit.CounterfactualResult, improved bool) string {
	if !r.BiasConfirmed {
		return fmt.Sprintf("NO BIAS: The outcome remains %s regardless of whether the applicant is '%s' or '%s'.",
			r.OriginalOutcome, r.OriginalGroup, r.FlippedGroup)
	}
	verdict := "REJECTED"
	if improved {
		verdict = "APPROVED"
	}
	return fmt.Sprintf("BIAS DETECTED: If this applicant were '%s' instead of '%s', they would have been %s (outcome changed from %s to %s).",
		r.FlippedGroup, r.OriginalGroup, verdict, r.OriginalOutcome, r.FlippedOutcome)
}
