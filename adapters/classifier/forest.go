package classifier

import (
	"context"
	"math"
	"math/rand"
	"runtime"

	"biasaudit/domain/core"
	"biasaudit/internal/attribution"
	"biasaudit/internal/logging"
	"biasaudit/ports"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Forest is a trained random forest
type Forest struct {
	trees     []*node
	classes   []float64
	nFeatures int
}

// Classes implements ports.Classifier
func (f *Forest) Classes() []float64 {
	return f.classes
}

// PredictProba averages the leaf class distributions of all trees
func (f *Forest) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, x := range X {
		probs := make([]float64, len(f.classes))
		for _, t := range f.trees {
			for c, v := range t.leaf(x).value {
				probs[c] += v
			}
		}
		for c := range probs {
			probs[c] /= float64(len(f.trees))
		}
		out[i] = probs
	}
	return out
}

// Predict returns the most probable class; ties go to the smaller class
func (f *Forest) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, probs := range f.PredictProba(X) {
		out[i] = f.classes[argmax(probs)]
	}
	return out
}

// pathAttributions decomposes each prediction into per-feature contributions along
// every tree's decision path, averaged over the forest. One samples×features matrix
// is returned per class.
func (f *Forest) pathAttributions(ctx context.Context, X [][]float64) (attribution.Raw, error) {
	perClass := make([][][]float64, len(f.classes))
	for c := range perClass {
		perClass[c] = make([][]float64, len(X))
	}

	for s, x := range X {
		if err := ctx.Err(); err != nil {
			return attribution.Raw{}, err
		}
		acc := make([][]float64, len(f.classes))
		for c := range acc {
			acc[c] = make([]float64, f.nFeatures)
		}
		for _, t := range f.trees {
			t.contribute(x, acc)
		}
		for c := range acc {
			for j := range acc[c] {
				acc[c][j] /= float64(len(f.trees))
			}
			perClass[c][s] = acc[c]
		}
	}
	return attribution.PerClass(perClass...), nil
}

// ForestTrainer grows a bootstrap-aggregated forest of Gini trees
type ForestTrainer struct {
	Trees    int
	MaxDepth int
	Seed     int64
	logger   *zap.Logger
}

var _ ports.Trainer = (*ForestTrainer)(nil)

// NewForestTrainer creates a forest trainer
func NewForestTrainer(trees, maxDepth int, seed int64, logger *zap.Logger) *ForestTrainer {
	return &ForestTrainer{
		Trees:    trees,
		MaxDepth: maxDepth,
		Seed:     seed,
		logger:   logging.OrNop(logger).Named("forest"),
	}
}

// Train implements ports.Trainer. Tree i is seeded with Seed+i so the forest does
// not depend on goroutine scheduling.
func (t *ForestTrainer) Train(ctx context.Context, X [][]float64, y []float64) (ports.Classifier, error) {
	if err := checkTrainingSet(X, y); err != nil {
		return nil, core.NewComputationError("forest training", err)
	}
	trees := t.Trees
	if trees <= 0 {
		trees = 1
	}

	classes, yIdx := encodeLabels(y)
	p := len(X[0])
	maxFeatures := int(math.Sqrt(float64(p)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	forest := &Forest{
		trees:     make([]*node, trees),
		classes:   classes,
		nFeatures: p,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range forest.trees {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(t.Seed + int64(i)))
			sample := make([]int, len(X))
			for j := range sample {
				sample[j] = rng.Intn(len(X))
			}
			b := &treeBuilder{
				X:           X,
				y:           yIdx,
				nClasses:    len(classes),
				maxDepth:    t.MaxDepth,
				maxFeatures: maxFeatures,
				minSplit:    2,
				rng:         rng,
			}
			forest.trees[i] = b.build(sample, 0)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, core.NewComputationError("forest training", err)
	}

	t.logger.Debug("trained random forest",
		zap.Int("trees", trees),
		zap.Int("max_depth", t.MaxDepth),
		zap.Int("features", p),
		zap.Int("rows", len(X)))
	return forest, nil
}
