package ml

import "errors"

// TreeNode is one node of a flattened decision tree. Children are
// indices into the same node slice; leaves carry the training-sample
// class counts that back the tree's probability estimate.
type TreeNode struct {
	FeatureIdx  int       `json:"feature_idx"`
	Threshold   float64   `json:"threshold"`
	LeftChild   int       `json:"left_child"`
	RightChild  int       `json:"right_child"`
	IsLeaf      bool      `json:"is_leaf"`
	ClassCounts []float64 `json:"class_counts,omitempty"`
}

// RandomForest is an ensemble of flattened trees. Class probabilities
// are the mean of the per-tree leaf distributions, the discrete label
// the argmax of that mean (first max wins on ties).
type RandomForest struct {
	Trees [][]TreeNode `json:"trees"`
}

func (rf *RandomForest) Validate(featureCount, classCount int) error {
	if len(rf.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for _, nodes := range rf.Trees {
		if len(nodes) == 0 {
			return errors.New("forest contains an empty tree")
		}
		for _, node := range nodes {
			if node.IsLeaf {
				if len(node.ClassCounts) != classCount {
					return errors.New("leaf class counts do not match class count")
				}
				continue
			}
			if node.FeatureIdx < 0 || node.FeatureIdx >= featureCount {
				return errors.New("tree references feature index out of range")
			}
			if node.LeftChild < 0 || node.LeftChild >= len(nodes) ||
				node.RightChild < 0 || node.RightChild >= len(nodes) {
				return errors.New("tree child index out of range")
			}
		}
	}
	return nil
}

// PredictProba returns the averaged class distribution for one vector.
func (rf *RandomForest) PredictProba(vector []float64, classCount int) ([]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, errors.New("forest has no trees")
	}

	proba := make([]float64, classCount)
	for _, nodes := range rf.Trees {
		dist, err := treeProba(nodes, vector, classCount)
		if err != nil {
			return nil, err
		}
		for i, p := range dist {
			proba[i] += p
		}
	}
	for i := range proba {
		proba[i] /= float64(len(rf.Trees))
	}
	return proba, nil
}

func treeProba(nodes []TreeNode, vector []float64, classCount int) ([]float64, error) {
	idx := 0
	for steps := 0; steps <= len(nodes); steps++ {
		node := nodes[idx]
		if node.IsLeaf {
			return leafDistribution(node, classCount)
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(vector) {
			return nil, errors.New("feature index out of range")
		}
		if vector[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(nodes) {
			return nil, errors.New("invalid tree state")
		}
	}
	return nil, errors.New("tree walk did not reach a leaf")
}

func leafDistribution(node TreeNode, classCount int) ([]float64, error) {
	if len(node.ClassCounts) != classCount {
		return nil, errors.New("leaf class counts do not match class count")
	}
	total := 0.0
	for _, count := range node.ClassCounts {
		total += count
	}
	if total <= 0 {
		return nil, errors.New("leaf has no samples")
	}
	dist := make([]float64, classCount)
	for i, count := range node.ClassCounts {
		dist[i] = count / total
	}
	return dist, nil
}

// ArgMax returns the index of the largest value, first max on ties.
func ArgMax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
