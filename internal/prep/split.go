package prep

import (
	"math"
	"math/rand"
	"sort"

	"biasaudit/domain/core"
)

// Split is a held-out partition of a prepared matrix
type Split struct {
	XTrain, XTest [][]float64
	YTrain, YTest []float64
	TrainIdx      []int
	TestIdx       []int
}

// TrainTestSplit shuffles rows with the given seed and holds out ceil(testRatio·n) of
// them, keeping at least one training row.
func TrainTestSplit(X [][]float64, y []float64, testRatio float64, seed int64) (*Split, error) {
	n := len(X)
	if n < 2 || len(y) != n {
		return nil, core.ErrInsufficientSamples
	}
	nTest := int(math.Ceil(testRatio * float64(n)))
	if nTest < 1 {
		nTest = 1
	}
	if nTest > n-1 {
		nTest = n - 1
	}

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	s := &Split{}
	for i, idx := range perm {
		if i < nTest {
			s.TestIdx = append(s.TestIdx, idx)
			s.XTest = append(s.XTest, X[idx])
			s.YTest = append(s.YTest, y[idx])
		} else {
			s.TrainIdx = append(s.TrainIdx, idx)
			s.XTrain = append(s.XTrain, X[idx])
			s.YTrain = append(s.YTrain, y[idx])
		}
	}
	return s, nil
}

// Subsample returns at most limit rows of X chosen with the given seed, in their
// original relative order. X is returned unchanged when it is already small enough.
func Subsample(X [][]float64, limit int, seed int64) [][]float64 {
	if limit <= 0 || len(X) <= limit {
		return X
	}
	rng := rand.New(rand.NewSource(seed))
	picked := rng.Perm(len(X))[:limit]
	sort.Ints(picked)

	out := make([][]float64, limit)
	for i, idx := range picked {
		out[i] = X[idx]
	}
	return out
}
