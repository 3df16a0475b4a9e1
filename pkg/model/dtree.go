package model

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ---------------------------
// Types & options
// ---------------------------

// RegressionTree is a CART-style regression tree fitted on squared error.
// It is the weak learner of GradientBoostingClassifier.
type RegressionTree struct {
	// Hyperparameters / options
	MaxDepth        int // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit int // minimum samples to attempt a split
	MinSamplesLeaf  int // minimum samples required in each leaf

	Root *TreeNode

	// Gains accumulates weighted impurity decrease per feature over all splits.
	Gains []float64
}

// TreeNode is a node of a fitted RegressionTree. Fields are exported so the
// tree survives gob encoding.
type TreeNode struct {
	Leaf      bool
	Feature   int
	Threshold float64 // x <= Threshold => Left
	Left      *TreeNode
	Right     *TreeNode

	N     int
	Value float64
}

// TreeOption is a functional config for RegressionTree.
type TreeOption func(*RegressionTree)

func WithMaxDepth(d int) TreeOption { return func(t *RegressionTree) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) TreeOption {
	return func(t *RegressionTree) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) TreeOption {
	return func(t *RegressionTree) { t.MinSamplesLeaf = n }
}

// NewRegressionTree returns a tree with sensible defaults.
func NewRegressionTree(opts ...TreeOption) *RegressionTree {
	t := &RegressionTree{
		MaxDepth:        3,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// ---------------------------
// Public API
// ---------------------------

// Fit grows the tree on the rows of X selected by idx, using target as the
// regression target. When hess is non-nil each leaf holds the Newton step
// sum(target)/sum(hess) of its samples; otherwise it holds their mean.
// A nil idx selects every row.
func (t *RegressionTree) Fit(X [][]float64, target, hess []float64, idx []int) error {
	p, err := validateXY(X, len(target))
	if err != nil {
		return err
	}
	if hess != nil && len(hess) != len(target) {
		return ErrShape
	}
	if idx == nil {
		idx = make([]int, len(X))
		for i := range idx {
			idx[i] = i
		}
	}
	t.Gains = make([]float64, p)
	t.Root = t.buildNode(X, target, hess, idx, 0, p)
	return nil
}

// Predict returns the leaf value reached by each row.
func (t *RegressionTree) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i := range X {
		out[i] = t.predictSingle(X[i])
	}
	return out
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

// splitResult holds the best split found on a single feature.
type splitResult struct {
	gain      float64
	feature   int
	threshold float64
	leftIdx   []int
	rightIdx  []int
}

// pair is a feature value and its original row index.
type pair struct {
	v float64
	i int
}

func (t *RegressionTree) buildNode(X [][]float64, target, hess []float64, idx []int, depth, p int) *TreeNode {
	node := &TreeNode{N: len(idx), Value: leafValue(target, hess, idx)}

	if len(idx) < 2 || (t.MinSamplesSplit > 0 && len(idx) < t.MinSamplesSplit) {
		node.Leaf = true
		return node
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		node.Leaf = true
		return node
	}

	// One goroutine per feature. Results are stored by feature and reduced
	// in feature order so ties always resolve to the lowest feature index.
	results := make([]splitResult, p)
	g, _ := errgroup.WithContext(context.Background())
	for f := range p {
		g.Go(func() error {
			results[f] = t.findBestSplitForFeature(X, target, idx, f)
			return nil
		})
	}
	_ = g.Wait()

	best := splitResult{feature: -1}
	for _, r := range results {
		if r.feature >= 0 && r.gain > best.gain {
			best = r
		}
	}
	if best.feature == -1 || best.gain <= 1e-12 {
		node.Leaf = true
		return node
	}

	t.Gains[best.feature] += best.gain
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = t.buildNode(X, target, hess, best.leftIdx, depth+1, p)
	node.Right = t.buildNode(X, target, hess, best.rightIdx, depth+1, p)
	return node
}

// findBestSplitForFeature scans sorted values of feature f and returns the
// threshold with the largest reduction in summed squared error.
func (t *RegressionTree) findBestSplitForFeature(X [][]float64, target []float64, idx []int, f int) splitResult {
	result := splitResult{feature: -1}

	valid := make([]pair, 0, len(idx))
	for _, ii := range idx {
		if v := X[ii][f]; !math.IsNaN(v) {
			valid = append(valid, pair{v, ii})
		}
	}
	if len(valid) < 2 {
		return result
	}
	sort.SliceStable(valid, func(a, b int) bool { return valid[a].v < valid[b].v })

	n := len(valid)
	total, totalSq := 0.0, 0.0
	for _, pv := range valid {
		y := target[pv.i]
		total += y
		totalSq += y * y
	}
	parentSSE := totalSq - total*total/float64(n)

	minLeaf := max(t.MinSamplesLeaf, 1)
	leftSum, leftSq := 0.0, 0.0
	bestS := -1
	for s := 1; s < n; s++ {
		y := target[valid[s-1].i]
		leftSum += y
		leftSq += y * y
		if valid[s].v == valid[s-1].v {
			continue
		}
		nl, nr := float64(s), float64(n-s)
		if s < minLeaf || n-s < minLeaf {
			continue
		}
		rightSum, rightSq := total-leftSum, totalSq-leftSq
		sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
		gain := parentSSE - sse
		if gain > result.gain {
			result.gain = gain
			result.feature = f
			result.threshold = (valid[s-1].v + valid[s].v) / 2.0
			bestS = s
		}
	}
	if bestS < 0 {
		return splitResult{feature: -1}
	}

	result.leftIdx = indicesFromPairs(valid[:bestS])
	result.rightIdx = indicesFromPairs(valid[bestS:])
	// missing values follow the larger child
	for _, ii := range idx {
		if math.IsNaN(X[ii][f]) {
			if len(result.leftIdx) >= len(result.rightIdx) {
				result.leftIdx = append(result.leftIdx, ii)
			} else {
				result.rightIdx = append(result.rightIdx, ii)
			}
		}
	}
	return result
}

func leafValue(target, hess []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	num := 0.0
	for _, ii := range idx {
		num += target[ii]
	}
	if hess == nil {
		return num / float64(len(idx))
	}
	den := 0.0
	for _, ii := range idx {
		den += hess[ii]
	}
	if math.Abs(den) < 1e-150 {
		return 0
	}
	return num / den
}

func indicesFromPairs(pairs []pair) []int {
	out := make([]int, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.i)
	}
	return out
}

func (t *RegressionTree) predictSingle(x []float64) float64 {
	node := t.Root
	if node == nil {
		return 0
	}
	for !node.Leaf {
		val := x[node.Feature]
		if math.IsNaN(val) {
			if node.Left.N >= node.Right.N {
				node = node.Left
			} else {
				node = node.Right
			}
			continue
		}
		if val <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}
