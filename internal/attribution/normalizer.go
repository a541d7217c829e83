package attribution

import (
	"math"
	"sort"

	"biasaudit/domain/audit"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Reason tags a best-effort normalization
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonTruncated  Reason = "truncated"
	ReasonZeroPadded Reason = "zero_padded"
	ReasonEmpty      Reason = "empty"
	ReasonNonFinite  Reason = "non_finite"
)

// Result is the per-feature magnitude vector. Fallback is empty when the tensor
// mapped cleanly onto the features.
type Result struct {
	Values   []float64
	Fallback Reason
	// Size is the flattened length of the selected slice
	Size int
}

// Ok reports whether no fallback was needed
func (r Result) Ok() bool {
	return r.Fallback == ReasonNone
}

// Normalize reduces raw to n non-negative values. It never fails: shapes that do
// not divide evenly into n features are truncated or zero-padded and tagged.
func Normalize(raw Raw, n int) Result {
	if n <= 0 {
		return Result{Values: []float64{}, Fallback: ReasonEmpty}
	}

	flat := raw.Selected().Data
	res := Result{Size: len(flat)}

	abs := make([]float64, len(flat))
	for i, v := range flat {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			res.Fallback = ReasonNonFinite
			continue
		}
		abs[i] = math.Abs(v)
	}

	L := len(abs)
	switch {
	case L == 0:
		res.Values = make([]float64, n)
		res.Fallback = ReasonEmpty
	case L == n:
		res.Values = abs
	case L%n == 0:
		res.Values = columnMeans(mat.NewDense(L/n, n, abs))
	case L > n:
		res.Values = abs[:n:n]
		res.Fallback = ReasonTruncated
	default:
		res.Values = make([]float64, n)
		copy(res.Values, abs)
		res.Fallback = ReasonZeroPadded
	}
	return res
}

func columnMeans(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	out := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		out[j] = stat.Mean(col, nil)
	}
	return out
}

// TopK ranks features by their reported (4-decimal) importance, descending,
// breaking ties by feature order, and returns at most k entries.
func TopK(features []string, values []float64, k int) []audit.FeatureImportance {
	n := len(features)
	if len(values) < n {
		n = len(values)
	}
	rounded := make([]float64, n)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
		rounded[i] = audit.Round4(values[i])
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return rounded[idx[a]] > rounded[idx[b]]
	})

	if k > n || k <= 0 {
		k = n
	}
	out := make([]audit.FeatureImportance, k)
	for i := 0; i < k; i++ {
		out[i] = audit.FeatureImportance{
			Feature:    features[idx[i]],
			Importance: rounded[idx[i]],
		}
	}
	return out
}
