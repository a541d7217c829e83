package classifier

import (
	"context"
	"fmt"

	"biasaudit/domain/core"
	"biasaudit/internal/attribution"
	"biasaudit/ports"
)

// Explainer computes attributions for the models trained in this package. Forests
// yield a per-class list of path attributions; logistic models yield a
// samples×features matrix (or a per-class list for more than two classes).
type Explainer struct{}

var _ ports.Explainer = Explainer{}

// NewExplainer creates an explainer
func NewExplainer() Explainer {
	return Explainer{}
}

// Explain implements ports.Explainer
func (Explainer) Explain(ctx context.Context, model ports.Classifier, X [][]float64) (attribution.Raw, error) {
	switch m := model.(type) {
	case *Forest:
		raw, err := m.pathAttributions(ctx, X)
		if err != nil {
			return attribution.Raw{}, core.NewComputationError("attribution", err)
		}
		return raw, nil
	case *Logistic:
		if err := ctx.Err(); err != nil {
			return attribution.Raw{}, core.NewComputationError("attribution", err)
		}
		return m.linearAttributions(X), nil
	default:
		return attribution.Raw{}, core.NewComputationError("attribution", fmt.Errorf("unsupported model %T", model))
	}
}
