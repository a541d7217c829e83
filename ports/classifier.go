package ports

import (
	"context"

	"biasaudit/internal/attribution"
)

// Classifier is a trained model. Labels and classes are encoded target values.
type Classifier interface {
	// Classes returns the sorted class labels; PredictProba columns follow this order
	Classes() []float64
	Predict(X [][]float64) []float64
	PredictProba(X [][]float64) [][]float64
}

// Trainer fits a Classifier on a feature matrix and label vector
type Trainer interface {
	Train(ctx context.Context, X [][]float64, y []float64) (Classifier, error)
}

// Explainer produces raw per-sample per-feature attributions for a trained model.
// The shape of the result depends on the explainer and is normalized by the caller.
type Explainer interface {
	Explain(ctx context.Context, model Classifier, X [][]float64) (attribution.Raw, error)
}
