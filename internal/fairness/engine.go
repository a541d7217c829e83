// Package fairness computes group fairness metrics from held-out predictions.
package fairness

import (
	"math"
	"sort"

	"biasaudit/domain/audit"
	"biasaudit/domain/dataset"

	"github.com/montanaflynn/stats"
)

// UndefinedDisparity is reported when the reference group is never selected but
// the comparison group is.
const UndefinedDisparity = 999.0

// Decoder maps an encoded value back to its source form
type Decoder func(float64) string

// Input is the held-out evaluation split. All slices share one length.
type Input struct {
	YTrue     []float64
	YPred     []float64
	Protected []float64
	Label     Decoder
	Group     Decoder
}

// Compute derives disparate impact and demographic parity for the two smallest
// protected values present in the split. Groups beyond the first two are listed
// in GroupsIgnored and otherwise not considered.
func Compute(in Input) audit.FairnessMetrics {
	label := orFormat(in.Label)
	group := orFormat(in.Group)

	labels := distinct(in.YTrue)
	groups := distinct(in.Protected)

	var m audit.FairnessMetrics
	var favorable float64
	if len(labels) > 0 {
		favorable = labels[len(labels)-1]
		m.FavorableLabel = label(favorable)
	}

	var rateA, rateB float64
	if len(groups) > 0 {
		m.GroupA = group(groups[0])
		rateA = SelectionRate(in.YPred, in.Protected, favorable, groups[0])
	}
	if len(groups) > 1 {
		m.GroupB = group(groups[1])
		rateB = SelectionRate(in.YPred, in.Protected, favorable, groups[1])
	}
	for _, g := range tail(groups, 2) {
		m.GroupsIgnored = append(m.GroupsIgnored, group(g))
	}

	dpd := audit.Round4(rateB - rateA)
	m.SelectionRateA = audit.Round4(rateA)
	m.SelectionRateB = audit.Round4(rateB)
	m.DisparateImpact = audit.Round4(DisparateImpact(rateA, rateB))
	m.DemographicParityDifference = dpd
	m.FairnessScore = Score(dpd)
	return m
}

// SelectionRate is the share of members of group predicted as favorable; zero
// when the group has no members.
func SelectionRate(yPred, protected []float64, favorable, group float64) float64 {
	var hits stats.Float64Data
	for i, g := range protected {
		if g != group || i >= len(yPred) {
			continue
		}
		if yPred[i] == favorable {
			hits = append(hits, 1)
		} else {
			hits = append(hits, 0)
		}
	}
	rate, err := hits.Mean()
	if err != nil {
		return 0
	}
	return rate
}

// DisparateImpact is rateA/rateB with the zero-denominator cases pinned
func DisparateImpact(rateA, rateB float64) float64 {
	if rateB == 0 {
		if rateA == 0 {
			return 0
		}
		return UndefinedDisparity
	}
	return rateA / rateB
}

// Score maps a parity difference to a 0-100 fairness score
func Score(dpd float64) float64 {
	return audit.Round2(math.Max(0, 100-math.Abs(dpd)*100))
}

func distinct(v []float64) []float64 {
	seen := make(map[float64]bool, len(v))
	var out []float64
	for _, x := range v {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	sort.Float64s(out)
	return out
}

func tail(v []float64, from int) []float64 {
	if len(v) <= from {
		return nil
	}
	return v[from:]
}

func orFormat(d Decoder) Decoder {
	if d != nil {
		return d
	}
	return dataset.FormatNumber
}
