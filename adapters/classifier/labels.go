// Package classifier provides the training and attribution capabilities behind
// ports.Trainer and ports.Explainer.
package classifier

import (
	"errors"
	"fmt"
	"sort"
)

var (
	errEmptyTraining = errors.New("empty training set")
	errShapeMismatch = errors.New("X and y length mismatch")
)

// encodeLabels maps y onto class indices over the sorted distinct labels
func encodeLabels(y []float64) ([]float64, []int) {
	seen := make(map[float64]bool)
	var classes []float64
	for _, v := range y {
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	sort.Float64s(classes)

	pos := make(map[float64]int, len(classes))
	for i, c := range classes {
		pos[c] = i
	}
	idx := make([]int, len(y))
	for i, v := range y {
		idx[i] = pos[v]
	}
	return classes, idx
}

func checkTrainingSet(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return errEmptyTraining
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", errShapeMismatch, len(X), len(y))
	}
	p := len(X[0])
	for i, row := range X {
		if len(row) != p {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), p)
		}
	}
	return nil
}

// argmax returns the first index of the largest value
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
