package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// TreeNode layout mirrors the persisted artifact: nodes are flattened
// depth-first with the root at index 0 and child links as absolute
// indices into the slice.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

// RegressionTree is a CART regressor: SSE-minimizing splits, mean
// target at the leaves.
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Forest averages bootstrap-trained regression trees.
type Forest struct {
	Trees []RegressionTree `json:"trees"`
}

type ForestConfig struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     int64
}

func (c ForestConfig) withDefaults() ForestConfig {
	if c.Trees <= 0 {
		c.Trees = 100
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 12
	}
	if c.MinLeaf <= 0 {
		c.MinLeaf = 2
	}
	return c
}

// TrainForest fits cfg.Trees regression trees, each on a bootstrap
// resample drawn from a seeded source, so training is reproducible.
func TrainForest(features [][]float64, targets []float64, cfg ForestConfig) (*Forest, error) {
	if len(features) == 0 || len(targets) == 0 {
		return nil, errors.New("features or targets empty")
	}
	if len(features) != len(targets) {
		return nil, errors.New("features and targets size mismatch")
	}
	cfg = cfg.withDefaults()

	rng := rand.New(rand.NewSource(cfg.Seed))
	forest := &Forest{Trees: make([]RegressionTree, 0, cfg.Trees)}
	for i := 0; i < cfg.Trees; i++ {
		sampleX, sampleY := bootstrapSample(features, targets, rng)
		forest.Trees = append(forest.Trees, RegressionTree{
			Nodes: buildNode(sampleX, sampleY, 0, cfg.MaxDepth, cfg.MinLeaf),
		})
	}
	return forest, nil
}

func (f *Forest) Predict(vector []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, errors.New("model not trained")
	}
	sum := 0.0
	for i := range f.Trees {
		value, err := f.Trees[i].Predict(vector)
		if err != nil {
			return 0, err
		}
		sum += value
	}
	return sum / float64(len(f.Trees)), nil
}

func (t *RegressionTree) Predict(vector []float64) (float64, error) {
	if len(t.Nodes) == 0 {
		return 0, errors.New("model not trained")
	}
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(vector) {
			return 0, errors.New("feature index out of range")
		}
		if vector[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

func buildNode(features [][]float64, targets []float64, depth, maxDepth, minLeaf int) []TreeNode {
	leaf := TreeNode{FeatureIdx: -1, LeftChild: -1, RightChild: -1, Value: mean(targets), IsLeaf: true}
	if depth >= maxDepth || len(targets) < 2*minLeaf || isConstant(targets) {
		return []TreeNode{leaf}
	}

	bestFeature, threshold, ok := findBestSplit(features, targets, minLeaf)
	if !ok {
		return []TreeNode{leaf}
	}

	leftX, leftY, rightX, rightY := splitData(features, targets, bestFeature, threshold)
	if len(leftY) < minLeaf || len(rightY) < minLeaf {
		return []TreeNode{leaf}
	}

	leftNodes := buildNode(leftX, leftY, depth+1, maxDepth, minLeaf)
	rightNodes := buildNode(rightX, rightY, depth+1, maxDepth, minLeaf)

	leftBase := 1
	rightBase := 1 + len(leftNodes)
	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, TreeNode{
		FeatureIdx: bestFeature,
		Threshold:  threshold,
		LeftChild:  leftBase,
		RightChild: rightBase,
		Value:      mean(targets),
		IsLeaf:     false,
	})
	// Subtree child links are local to the subtree slice; shift them
	// to absolute positions as the slices are merged.
	for _, n := range leftNodes {
		if !n.IsLeaf {
			n.LeftChild += leftBase
			n.RightChild += leftBase
		}
		nodes = append(nodes, n)
	}
	for _, n := range rightNodes {
		if !n.IsLeaf {
			n.LeftChild += rightBase
			n.RightChild += rightBase
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func findBestSplit(features [][]float64, targets []float64, minLeaf int) (int, float64, bool) {
	featureCount := len(features[0])
	bestFeature := -1
	bestThreshold := 0.0
	bestScore := math.MaxFloat64

	for featureIdx := 0; featureIdx < featureCount; featureIdx++ {
		values := make([]float64, len(features))
		for i := range features {
			values[i] = features[i][featureIdx]
		}
		for _, threshold := range candidateThresholds(values) {
			leftY, rightY := splitTargets(features, targets, featureIdx, threshold)
			if len(leftY) < minLeaf || len(rightY) < minLeaf {
				continue
			}
			score := sse(leftY) + sse(rightY)
			if score < bestScore {
				bestScore = score
				bestFeature = featureIdx
				bestThreshold = threshold
			}
		}
	}
	if bestFeature == -1 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// candidateThresholds picks quartile cut points. Bootstrap resampling
// varies them enough across trees.
func candidateThresholds(values []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	out := make([]float64, 0, 3)
	for _, q := range []float64{0.25, 0.5, 0.75} {
		v := sorted[int(q*float64(len(sorted)-1))]
		if len(out) > 0 && out[len(out)-1] == v {
			continue
		}
		out = append(out, v)
	}
	return out
}

func splitData(features [][]float64, targets []float64, featureIdx int, threshold float64) ([][]float64, []float64, [][]float64, []float64) {
	leftX := make([][]float64, 0)
	leftY := make([]float64, 0)
	rightX := make([][]float64, 0)
	rightY := make([]float64, 0)
	for i, vector := range features {
		if vector[featureIdx] <= threshold {
			leftX = append(leftX, vector)
			leftY = append(leftY, targets[i])
		} else {
			rightX = append(rightX, vector)
			rightY = append(rightY, targets[i])
		}
	}
	return leftX, leftY, rightX, rightY
}

func splitTargets(features [][]float64, targets []float64, featureIdx int, threshold float64) ([]float64, []float64) {
	leftY := make([]float64, 0)
	rightY := make([]float64, 0)
	for i, vector := range features {
		if vector[featureIdx] <= threshold {
			leftY = append(leftY, targets[i])
		} else {
			rightY = append(rightY, targets[i])
		}
	}
	return leftY, rightY
}

func bootstrapSample(features [][]float64, targets []float64, rng *rand.Rand) ([][]float64, []float64) {
	n := len(features)
	sampleX := make([][]float64, n)
	sampleY := make([]float64, n)
	for i := 0; i < n; i++ {
		j := rng.Intn(n)
		sampleX[i] = features[j]
		sampleY[i] = targets[j]
	}
	return sampleX, sampleY
}

func sse(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	total := 0.0
	for _, v := range values {
		d := v - m
		total += d * d
	}
	return total
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func isConstant(values []float64) bool {
	if len(values) == 0 {
		return true
	}
	first := values[0]
	for _, v := range values[1:] {
		if v != first {
			return false
		}
	}
	return true
}
