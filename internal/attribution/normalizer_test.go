package attribution

import (
	"math"
	"math/rand"
	"testing"

	"biasaudit/domain/audit"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmpopts.EquateApprox(0, 1e-12)

func TestNormalize_SamplesByFeatures(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rows := make([][]float64, 100)
	want := make([]float64, 5)
	for i := range rows {
		rows[i] = make([]float64, 5)
		for j := range rows[i] {
			v := rng.NormFloat64()
			rows[i][j] = v
			want[j] += math.Abs(v) / 100
		}
	}

	res := Normalize(Matrix(rows), 5)
	assert.True(t, res.Ok())
	assert.Equal(t, 500, res.Size)
	if diff := cmp.Diff(want, res.Values, approx); diff != "" {
		t.Errorf("column means mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_Shapes(t *testing.T) {
	tests := []struct {
		name   string
		raw    Raw
		n      int
		want   []float64
		reason Reason
	}{
		{
			name: "flat vector of length N",
			raw:  Vector([]float64{-1, 2, -3}),
			n:    3,
			want: []float64{1, 2, 3},
		},
		{
			name: "per-class list selects the second class",
			raw: PerClass(
				[][]float64{{9, 9}, {9, 9}},
				[][]float64{{1, -2}, {-3, 4}},
			),
			n:    2,
			want: []float64{2, 3},
		},
		{
			name: "single-class list",
			raw:  PerClass([][]float64{{1, -1}}),
			n:    2,
			want: []float64{1, 1},
		},
		{
			name: "samples x features x classes is flattened then reshaped",
			raw:  Cube([][][]float64{{{1, -1}, {2, -2}}}),
			n:    2,
			want: []float64{1.5, 1.5},
		},
		{
			name: "features x samples folds by flat order",
			raw:  Matrix([][]float64{{1, 2, 3}, {4, 5, 6}}),
			n:    3,
			want: []float64{2.5, 3.5, 4.5},
		},
		{
			name:   "longer with no integer ratio is truncated",
			raw:    Vector([]float64{1, -2, 3, 4, 5}),
			n:      3,
			want:   []float64{1, 2, 3},
			reason: ReasonTruncated,
		},
		{
			name:   "shorter is zero padded",
			raw:    Vector([]float64{-7}),
			n:      3,
			want:   []float64{7, 0, 0},
			reason: ReasonZeroPadded,
		},
		{
			name:   "empty tensor",
			raw:    Raw{},
			n:      2,
			want:   []float64{0, 0},
			reason: ReasonEmpty,
		},
		{
			name:   "non-finite values count as zero",
			raw:    Vector([]float64{math.NaN(), math.Inf(-1), 2}),
			n:      3,
			want:   []float64{0, 0, 2},
			reason: ReasonNonFinite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(tt.raw, tt.n)
			assert.Equal(t, tt.reason, res.Fallback)
			if diff := cmp.Diff(tt.want, res.Values, approx); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalize_TotalForMultiples(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 1; n <= 8; n++ {
		for m := 1; m <= 6; m++ {
			data := make([]float64, n*m)
			for i := range data {
				data[i] = rng.NormFloat64() * 10
			}
			res := Normalize(Vector(data), n)
			require.Len(t, res.Values, n)
			assert.True(t, res.Ok())
			for _, v := range res.Values {
				assert.GreaterOrEqual(t, v, 0.0)
			}
		}
	}
}

func TestNormalize_NoFeatures(t *testing.T) {
	res := Normalize(Vector([]float64{1}), 0)
	assert.Empty(t, res.Values)
	assert.Equal(t, ReasonEmpty, res.Fallback)
}

func TestTopK(t *testing.T) {
	features := []string{"a", "b", "c", "d", "e", "f"}
	values := []float64{0.1, 0.5, 0.5, 0.9, 0.0, 0.5}

	got := TopK(features, values, 5)
	want := []audit.FeatureImportance{
		{Feature: "d", Importance: 0.9},
		{Feature: "b", Importance: 0.5},
		{Feature: "c", Importance: 0.5},
		{Feature: "f", Importance: 0.5},
		{Feature: "a", Importance: 0.1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopK mismatch (-want +got):\n%s", diff)
	}

	assert.Len(t, TopK(features[:2], values[:2], 5), 2)
	assert.Len(t, TopK(features, values, 0), 6)
}

func TestTopK_TiesAfterRoundingKeepFeatureOrder(t *testing.T) {
	got := TopK([]string{"a", "b"}, []float64{0.12340004, 0.12340006}, 2)
	want := []audit.FeatureImportance{
		{Feature: "a", Importance: 0.1234},
		{Feature: "b", Importance: 0.1234},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopK mismatch (-want +got):\n%s", diff)
	}
}
