package classifier

import (
	"context"
	"math"

	"biasaudit/domain/core"
	"biasaudit/internal/attribution"
	"biasaudit/internal/logging"
	"biasaudit/ports"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Logistic is an L2-regularized logistic regression over standardized features.
// Binary targets use a single weight vector; more classes use one-vs-rest.
type Logistic struct {
	classes []float64
	mean    []float64
	scale   []float64
	weights [][]float64
	bias    []float64
}

// Classes implements ports.Classifier
func (m *Logistic) Classes() []float64 {
	return m.classes
}

func (m *Logistic) standardize(x []float64) []float64 {
	z := make([]float64, len(x))
	for j, v := range x {
		z[j] = (v - m.mean[j]) / m.scale[j]
	}
	return z
}

func (m *Logistic) proba(x []float64) []float64 {
	k := len(m.classes)
	if k < 2 {
		return []float64{1}
	}
	z := m.standardize(x)
	if k == 2 {
		p := sigmoid(floats.Dot(m.weights[0], z) + m.bias[0])
		return []float64{1 - p, p}
	}

	out := make([]float64, k)
	for c := range out {
		out[c] = sigmoid(floats.Dot(m.weights[c], z) + m.bias[c])
	}
	if sum := floats.Sum(out); sum > 0 {
		floats.Scale(1/sum, out)
	}
	return out
}

// PredictProba implements ports.Classifier
func (m *Logistic) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, x := range X {
		out[i] = m.proba(x)
	}
	return out
}

// Predict implements ports.Classifier
func (m *Logistic) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = m.classes[argmax(m.proba(x))]
	}
	return out
}

// linearAttributions returns w_j·z_j per sample: the contribution of each
// standardized feature relative to the training mean.
func (m *Logistic) linearAttributions(X [][]float64) attribution.Raw {
	perClass := make([][][]float64, len(m.weights))
	for c, w := range m.weights {
		rows := make([][]float64, len(X))
		for i, x := range X {
			z := m.standardize(x)
			floats.Mul(z, w)
			rows[i] = z
		}
		perClass[c] = rows
	}
	if len(perClass) == 1 {
		return attribution.Matrix(perClass[0])
	}
	return attribution.PerClass(perClass...)
}

// LogisticTrainer fits Logistic models with batch gradient descent
type LogisticTrainer struct {
	MaxIter  int
	StepSize float64
	logger   *zap.Logger
}

var _ ports.Trainer = (*LogisticTrainer)(nil)

// NewLogisticTrainer creates a logistic regression trainer
func NewLogisticTrainer(maxIter int, stepSize float64, logger *zap.Logger) *LogisticTrainer {
	return &LogisticTrainer{
		MaxIter:  maxIter,
		StepSize: stepSize,
		logger:   logging.OrNop(logger).Named("logistic"),
	}
}

const gradientTolerance = 1e-6

// Train implements ports.Trainer
func (t *LogisticTrainer) Train(ctx context.Context, X [][]float64, y []float64) (ports.Classifier, error) {
	if err := checkTrainingSet(X, y); err != nil {
		return nil, core.NewComputationError("logistic training", err)
	}

	classes, yIdx := encodeLabels(y)
	p := len(X[0])
	m := &Logistic{
		classes: classes,
		mean:    make([]float64, p),
		scale:   make([]float64, p),
	}

	col := make(stats.Float64Data, len(X))
	for j := 0; j < p; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		mean, _ := col.Mean()
		sd, _ := col.StandardDeviationPopulation()
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		m.mean[j] = mean
		m.scale[j] = sd
	}

	Z := make([][]float64, len(X))
	for i, row := range X {
		Z[i] = m.standardize(row)
	}

	problems := len(classes)
	switch {
	case problems < 2:
		problems = 0
	case problems == 2:
		problems = 1
	}

	for c := 0; c < problems; c++ {
		positive := c
		if len(classes) == 2 {
			positive = 1
		}
		target := make([]float64, len(yIdx))
		for i, v := range yIdx {
			if v == positive {
				target[i] = 1
			}
		}
		w, b, iters, err := t.fit(ctx, Z, target)
		if err != nil {
			return nil, core.NewComputationError("logistic training", err)
		}
		m.weights = append(m.weights, w)
		m.bias = append(m.bias, b)
		t.logger.Debug("fitted logistic problem",
			zap.Int("class", c),
			zap.Int("iterations", iters))
	}
	return m, nil
}

// fit minimizes mean log-loss plus an L2 penalty of 1/(2n)·|w|².
func (t *LogisticTrainer) fit(ctx context.Context, Z [][]float64, target []float64) ([]float64, float64, int, error) {
	n := float64(len(Z))
	p := len(Z[0])
	w := make([]float64, p)
	grad := make([]float64, p)
	var b float64

	maxIter := t.MaxIter
	if maxIter <= 0 {
		maxIter = 1000
	}
	step := t.StepSize
	if step <= 0 {
		step = 0.5
	}

	iter := 0
	for ; iter < maxIter; iter++ {
		if iter%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, iter, err
			}
		}

		for j := range grad {
			grad[j] = w[j] / n
		}
		var gradB float64
		for i, z := range Z {
			residual := sigmoid(floats.Dot(w, z)+b) - target[i]
			floats.AddScaled(grad, residual/n, z)
			gradB += residual / n
		}

		floats.AddScaled(w, -step, grad)
		b -= step * gradB

		if math.Max(floats.Norm(grad, math.Inf(1)), math.Abs(gradB)) < gradientTolerance {
			break
		}
	}
	return w, b, iter, nil
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
