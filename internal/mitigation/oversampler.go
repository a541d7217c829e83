// Package mitigation rebalances a dataset so the two compared protected groups
// have the same number of favorable outcomes.
package mitigation

import (
	"math/rand"
	"sort"

	"biasaudit/domain/core"
	"biasaudit/domain/dataset"
	"biasaudit/internal/logging"
	"biasaudit/internal/prep"

	"go.uber.org/zap"
)

// Plan describes the rows to duplicate
type Plan struct {
	// Group is the decoded protected value that was oversampled
	Group          string
	FavorableLabel string
	// Picks are row positions in the prepared dataset, drawn with replacement
	Picks []int
}

// Added returns the number of rows the plan adds
func (p *Plan) Added() int {
	return len(p.Picks)
}

// Oversampler draws seeded random duplicates of the under-favored group
type Oversampler struct {
	seed   int64
	logger *zap.Logger
}

// NewOversampler creates an oversampler
func NewOversampler(seed int64, logger *zap.Logger) *Oversampler {
	return &Oversampler{seed: seed, logger: logging.OrNop(logger).Named("mitigation")}
}

// Plan picks favorable rows of whichever of the two smallest protected groups has
// fewer of them, enough to close the gap. Groups and the favorable label are taken
// over the whole dataset.
func (o *Oversampler) Plan(p *prep.Prepared) (*Plan, error) {
	protected := p.ProtectedValues()
	groups := sortedDistinct(protected)
	if len(groups) < 2 {
		return nil, core.NewInsufficientDomainError(p.Roles.Protected, len(groups))
	}
	labels := sortedDistinct(p.Y)
	favorable := labels[len(labels)-1]

	var poolA, poolB []int
	for i, g := range protected {
		if p.Y[i] != favorable {
			continue
		}
		switch g {
		case groups[0]:
			poolA = append(poolA, i)
		case groups[1]:
			poolB = append(poolB, i)
		}
	}

	pool, group, n := poolB, groups[1], len(poolA)-len(poolB)
	if len(poolA) < len(poolB) {
		pool, group, n = poolA, groups[0], len(poolB)-len(poolA)
	}

	plan := &Plan{
		Group:          p.GroupName(group),
		FavorableLabel: p.LabelName(favorable),
	}
	if len(pool) == 0 {
		if n > 0 {
			o.logger.Warn("minority group has no favorable rows to oversample",
				zap.String("group", plan.Group))
		}
		return plan, nil
	}

	rng := rand.New(rand.NewSource(o.seed))
	plan.Picks = make([]int, n)
	for i := range plan.Picks {
		plan.Picks[i] = pool[rng.Intn(len(pool))]
	}

	o.logger.Info("oversampling minority group",
		zap.String("group", plan.Group),
		zap.Int("favorable_a", len(poolA)),
		zap.Int("favorable_b", len(poolB)),
		zap.Int("rows_added", n))
	return plan, nil
}

// Apply returns the dataset with the planned duplicates appended
func (p *Plan) Apply(ds *dataset.Dataset) *dataset.Dataset {
	rows := make([][]string, len(p.Picks))
	for i, idx := range p.Picks {
		rows[i] = append([]string(nil), ds.Rows[idx]...)
	}
	return ds.Append(rows)
}

func sortedDistinct(v []float64) []float64 {
	seen := make(map[float64]bool)
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
