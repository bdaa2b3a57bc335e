package classifier

import (
	"math/rand/v2"
	"sort"

	"github.com/rotisserie/eris"
)

// Node is one split or leaf of a fitted decision tree. Leaves have nil
// children and carry the fraction of positive samples that reached them.
type Node struct {
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      *Node   `json:"left,omitempty"`
	Right     *Node   `json:"right,omitempty"`
	Value     float64 `json:"value"`
}

// Leaf reports whether the node has no children.
func (n *Node) Leaf() bool { return n.Left == nil || n.Right == nil }

// DecisionTree is a CART classifier using Gini impurity. MaxDepth 0 means
// unlimited. MaxFeatures 0 considers every feature at every split.
type DecisionTree struct {
	Root            *Node `json:"root"`
	MaxDepth        int   `json:"max_depth,omitempty"`
	MinSamplesSplit int   `json:"min_samples_split,omitempty"`
	MaxFeatures     int   `json:"-"`

	rng *rand.Rand
}

// NewDecisionTree returns an unfitted tree.
func NewDecisionTree(maxDepth, minSamplesSplit int) *DecisionTree {
	if minSamplesSplit < 2 {
		minSamplesSplit = 2
	}
	return &DecisionTree{MaxDepth: maxDepth, MinSamplesSplit: minSamplesSplit}
}

// Fit grows the tree on X and binary labels y.
func (t *DecisionTree) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return eris.New("classifier: tree: empty training set")
	}
	if len(X) != len(y) {
		return eris.Errorf("classifier: tree: %d rows but %d labels", len(X), len(y))
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.Root = t.grow(X, y, idx, 0)
	return nil
}

func (t *DecisionTree) grow(X [][]float64, y []int, idx []int, depth int) *Node {
	pos := 0
	for _, i := range idx {
		pos += y[i]
	}
	node := &Node{Value: float64(pos) / float64(len(idx))}

	if pos == 0 || pos == len(idx) || len(idx) < t.MinSamplesSplit {
		return node
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return node
	}

	feat, thr, ok := t.bestSplit(X, y, idx, pos)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	node.Feature = feat
	node.Threshold = thr
	node.Left = t.grow(X, y, left, depth+1)
	node.Right = t.grow(X, y, right, depth+1)
	return node
}

// bestSplit scans candidate features for the threshold with the lowest
// weighted Gini impurity.
func (t *DecisionTree) bestSplit(X [][]float64, y []int, idx []int, pos int) (int, float64, bool) {
	n := len(idx)
	best := gini(pos, n)
	bestFeat, bestThr, found := 0, 0.0, false

	sorted := make([]int, n)
	for _, f := range t.candidates(len(X[0])) {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })

		leftPos := 0
		for k := 0; k < n-1; k++ {
			leftPos += y[sorted[k]]
			cur, next := X[sorted[k]][f], X[sorted[k+1]][f]
			if cur == next {
				continue
			}
			nl, nr := k+1, n-k-1
			imp := (float64(nl)*gini(leftPos, nl) + float64(nr)*gini(pos-leftPos, nr)) / float64(n)
			if imp < best-1e-12 {
				best = imp
				bestFeat = f
				bestThr = (cur + next) / 2
				found = true
			}
		}
	}
	return bestFeat, bestThr, found
}

func (t *DecisionTree) candidates(nf int) []int {
	all := make([]int, nf)
	for i := range all {
		all[i] = i
	}
	if t.MaxFeatures <= 0 || t.MaxFeatures >= nf || t.rng == nil {
		return all
	}
	t.rng.Shuffle(nf, func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:t.MaxFeatures]
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}

// Proba walks the tree and returns the leaf's positive fraction.
func (t *DecisionTree) Proba(x []float64) float64 {
	n := t.Root
	for n != nil && !n.Leaf() {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	if n == nil {
		return 0
	}
	return n.Value
}

// maxFeatureIndex returns the largest feature index referenced by a split.
func maxFeatureIndex(n *Node) int {
	if n == nil || n.Leaf() {
		return -1
	}
	m := n.Feature
	if l := maxFeatureIndex(n.Left); l > m {
		m = l
	}
	if r := maxFeatureIndex(n.Right); r > m {
		m = r
	}
	return m
}
