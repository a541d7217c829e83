package classifier

import (
	"math/rand"
	"sort"
)

// node is a CART node. Every node keeps the class distribution of the training rows
// that reached it; path attributions are differences of these distributions.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	value     []float64
}

func (n *node) isLeaf() bool {
	return n.left == nil
}

// leaf walks x down to its leaf
func (n *node) leaf(x []float64) *node {
	cur := n
	for !cur.isLeaf() {
		if x[cur.feature] <= cur.threshold {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	return cur
}

// contribute adds the per-class change in distribution along x's decision path to
// out[class][feature].
func (n *node) contribute(x []float64, out [][]float64) {
	cur := n
	for !cur.isLeaf() {
		next := cur.right
		if x[cur.feature] <= cur.threshold {
			next = cur.left
		}
		for c := range next.value {
			out[c][cur.feature] += next.value[c] - cur.value[c]
		}
		cur = next
	}
}

// treeBuilder grows one Gini tree over a bootstrap sample
type treeBuilder struct {
	X           [][]float64
	y           []int
	nClasses    int
	maxDepth    int
	maxFeatures int
	minSplit    int
	rng         *rand.Rand
}

func (b *treeBuilder) build(idx []int, depth int) *node {
	counts := b.counts(idx)
	n := &node{value: proportions(counts, len(idx))}

	if (b.maxDepth > 0 && depth >= b.maxDepth) || len(idx) < b.minSplit || isPure(counts) {
		return n
	}

	feature, threshold, ok := b.bestSplit(idx, counts)
	if !ok {
		return n
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	n.feature = feature
	n.threshold = threshold
	n.left = b.build(left, depth+1)
	n.right = b.build(right, depth+1)
	return n
}

// bestSplit searches a random subset of features for the threshold with the largest
// Gini decrease. Thresholds sit halfway between consecutive distinct values.
func (b *treeBuilder) bestSplit(idx []int, parent []int) (int, float64, bool) {
	p := len(b.X[idx[0]])
	features := b.rng.Perm(p)
	if b.maxFeatures > 0 && b.maxFeatures < p {
		features = features[:b.maxFeatures]
	}

	total := len(idx)
	parentImpurity := gini(parent, total)

	bestGain := 1e-12
	bestFeature, bestThreshold := -1, 0.0
	sorted := make([]int, total)
	left := make([]int, b.nClasses)
	right := make([]int, b.nClasses)

	for _, f := range features {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool {
			return b.X[sorted[a]][f] < b.X[sorted[c]][f]
		})
		for c := range left {
			left[c] = 0
			right[c] = parent[c]
		}

		for k := 0; k < total-1; k++ {
			cls := b.y[sorted[k]]
			left[cls]++
			right[cls]--

			v, next := b.X[sorted[k]][f], b.X[sorted[k+1]][f]
			if v == next {
				continue
			}
			nl := k + 1
			nr := total - nl
			impurity := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / float64(total)
			if gain := parentImpurity - impurity; gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = v + (next-v)/2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func (b *treeBuilder) counts(idx []int) []int {
	counts := make([]int, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	return counts
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}

func proportions(counts []int, n int) []float64 {
	out := make([]float64, len(counts))
	if n == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = float64(c) / float64(n)
	}
	return out
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}
