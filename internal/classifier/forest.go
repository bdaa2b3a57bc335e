package classifier

import (
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"
)

// RandomForest averages bootstrap-trained decision trees that each consider
// sqrt(features) candidates per split.
type RandomForest struct {
	Trees           []*DecisionTree `json:"trees"`
	NEstimators     int             `json:"n_estimators"`
	MaxDepth        int             `json:"max_depth,omitempty"`
	MinSamplesSplit int             `json:"min_samples_split,omitempty"`
	Seed            uint64          `json:"-"`
}

// NewRandomForest returns an unfitted forest.
func NewRandomForest(nEstimators, maxDepth, minSamplesSplit int, seed uint64) *RandomForest {
	if nEstimators <= 0 {
		nEstimators = 100
	}
	return &RandomForest{
		NEstimators:     nEstimators,
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		Seed:            seed,
	}
}

// Fit trains NEstimators trees on bootstrap resamples of X.
func (f *RandomForest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return eris.New("classifier: forest: empty training set")
	}
	if len(X) != len(y) {
		return eris.Errorf("classifier: forest: %d rows but %d labels", len(X), len(y))
	}

	rng := rand.New(rand.NewPCG(f.Seed, f.Seed^0x9e3779b97f4a7c15))
	maxFeatures := int(math.Max(1, math.Round(math.Sqrt(float64(len(X[0]))))))

	f.Trees = make([]*DecisionTree, 0, f.NEstimators)
	bx := make([][]float64, len(X))
	by := make([]int, len(y))
	for range f.NEstimators {
		for i := range bx {
			j := rng.IntN(len(X))
			bx[i], by[i] = X[j], y[j]
		}
		tree := NewDecisionTree(f.MaxDepth, f.MinSamplesSplit)
		tree.MaxFeatures = maxFeatures
		tree.rng = rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))
		if err := tree.Fit(bx, by); err != nil {
			return eris.Wrap(err, "classifier: forest: fit tree")
		}
		f.Trees = append(f.Trees, tree)
	}
	return nil
}

// Proba averages the trees' positive-class probabilities.
func (f *RandomForest) Proba(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.Trees {
		sum += t.Proba(x)
	}
	return sum / float64(len(f.Trees))
}
