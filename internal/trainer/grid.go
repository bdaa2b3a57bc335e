package trainer

import (
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/edupulse/edupulse/internal/classifier"
)

// Grid is the model zoo searched for every domain.
type Grid struct {
	Models []Candidate `yaml:"models"`
}

// Candidate is one algorithm and the values to try for each of its
// hyper-parameters. A max_depth of 0 means unlimited.
type Candidate struct {
	Algorithm classifier.Algorithm `yaml:"algorithm"`
	Params    map[string][]float64 `yaml:"params"`
}

// DefaultGrid returns the built-in model zoo.
func DefaultGrid() Grid {
	return Grid{Models: []Candidate{
		{
			Algorithm: classifier.AlgoRandomForest,
			Params: map[string][]float64{
				"n_estimators":      {50, 100},
				"max_depth":         {5, 10, 0},
				"min_samples_split": {2, 5},
			},
		},
		{
			Algorithm: classifier.AlgoDecisionTree,
			Params: map[string][]float64{
				"max_depth":         {3, 5, 7},
				"min_samples_split": {2, 5},
			},
		},
		{
			Algorithm: classifier.AlgoLogistic,
			Params: map[string][]float64{
				"c": {0.1, 1, 10},
			},
		},
	}}
}

// LoadGrid reads a grid from a YAML file with a top-level "grid" key. An
// empty path returns DefaultGrid.
func LoadGrid(path string) (Grid, error) {
	if path == "" {
		return DefaultGrid(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Grid{}, eris.Wrapf(err, "trainer: read grid %s", path)
	}

	var wrapper struct {
		Grid Grid `yaml:"grid"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Grid{}, eris.Wrap(err, "trainer: parse grid")
	}
	if err := wrapper.Grid.Validate(); err != nil {
		return Grid{}, err
	}
	return wrapper.Grid, nil
}

// Validate rejects empty grids and parameters an algorithm does not accept.
func (g Grid) Validate() error {
	if len(g.Models) == 0 {
		return eris.New("trainer: grid has no models")
	}
	for _, c := range g.Models {
		for _, params := range c.Combinations() {
			if _, err := classifier.NewPipeline("", c.Algorithm, []string{"x"}, params, 0); err != nil {
				return eris.Wrap(err, "trainer: invalid grid")
			}
		}
	}
	return nil
}

// Combinations expands the candidate into every parameter assignment, in a
// stable order (parameter names sorted, values in listed order). A candidate
// without parameters yields one empty assignment.
func (c Candidate) Combinations() []map[string]float64 {
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := []map[string]float64{{}}
	for _, k := range keys {
		vals := c.Params[k]
		if len(vals) == 0 {
			continue
		}
		next := make([]map[string]float64, 0, len(out)*len(vals))
		for _, base := range out {
			for _, v := range vals {
				m := make(map[string]float64, len(base)+1)
				for bk, bv := range base {
					m[bk] = bv
				}
				m[k] = v
				next = append(next, m)
			}
		}
		out = next
	}
	return out
}
