package fairness

import (
	"github.com/montanaflynn/stats"
)

// Accuracy is the share of predictions equal to the true label
func Accuracy(yTrue, yPred []float64) float64 {
	var correct stats.Float64Data
	for i := range yTrue {
		if i < len(yPred) && yTrue[i] == yPred[i] {
			correct = append(correct, 1)
		} else {
			correct = append(correct, 0)
		}
	}
	acc, err := correct.Mean()
	if err != nil {
		return 0
	}
	return acc
}

// ConfusionMatrix counts (true, predicted) pairs over the sorted union of labels.
// Rows are true labels, columns predictions.
func ConfusionMatrix(yTrue, yPred []float64) ([][]int, []float64) {
	labels := distinct(append(append([]float64(nil), yTrue...), yPred...))
	pos := make(map[float64]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	cm := make([][]int, len(labels))
	for i := range cm {
		cm[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		if i < len(yPred) {
			cm[pos[yTrue[i]]][pos[yPred[i]]]++
		}
	}
	return cm, labels
}
