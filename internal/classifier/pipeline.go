package classifier

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rotisserie/eris"
)

// Metrics are the held-out evaluation results recorded in an artifact.
type Metrics struct {
	Accuracy   float64 `json:"accuracy"`
	Precision  float64 `json:"precision"`
	Recall     float64 `json:"recall"`
	F1         float64 `json:"f1"`
	CVAccuracy float64 `json:"cv_accuracy"`
	TrainRows  int     `json:"train_rows"`
	TestRows   int     `json:"test_rows"`
}

// Pipeline is a StandardScaler followed by one classifier. It is also the
// on-disk model artifact.
type Pipeline struct {
	Domain       string              `json:"domain"`
	Algorithm    Algorithm           `json:"algorithm"`
	FeatureNames []string            `json:"features"`
	Params       map[string]float64  `json:"params,omitempty"`
	Scaler       *StandardScaler     `json:"scaler"`
	Logistic     *LogisticRegression `json:"logistic,omitempty"`
	Tree         *DecisionTree       `json:"tree,omitempty"`
	Forest       *RandomForest       `json:"forest,omitempty"`
	Metrics      Metrics             `json:"metrics"`
	TrainedAt    time.Time           `json:"trained_at"`
}

// NewPipeline builds an unfitted pipeline for the given algorithm and
// hyper-parameters. Unknown parameter names are rejected.
func NewPipeline(domain string, algo Algorithm, features []string, params map[string]float64, seed uint64) (*Pipeline, error) {
	if len(features) == 0 {
		return nil, eris.New("classifier: pipeline needs at least one feature")
	}
	p := &Pipeline{
		Domain:       domain,
		Algorithm:    algo,
		FeatureNames: slices.Clone(features),
		Params:       params,
		Scaler:       &StandardScaler{},
	}

	var allowed []string
	switch algo {
	case AlgoLogistic:
		allowed = []string{"c"}
		p.Logistic = NewLogisticRegression(params["c"])
	case AlgoDecisionTree:
		allowed = []string{"max_depth", "min_samples_split"}
		p.Tree = NewDecisionTree(int(params["max_depth"]), int(params["min_samples_split"]))
	case AlgoRandomForest:
		allowed = []string{"n_estimators", "max_depth", "min_samples_split"}
		p.Forest = NewRandomForest(int(params["n_estimators"]), int(params["max_depth"]), int(params["min_samples_split"]), seed)
	default:
		return nil, eris.Errorf("classifier: unknown algorithm %q", algo)
	}
	for k := range params {
		if !slices.Contains(allowed, k) {
			return nil, eris.Errorf("classifier: %s does not accept param %q", algo, k)
		}
	}
	return p, nil
}

func (p *Pipeline) estimator() estimator {
	switch p.Algorithm {
	case AlgoLogistic:
		if p.Logistic != nil {
			return p.Logistic
		}
	case AlgoDecisionTree:
		if p.Tree != nil {
			return p.Tree
		}
	case AlgoRandomForest:
		if p.Forest != nil {
			return p.Forest
		}
	}
	return nil
}

// Fit fits the scaler on X and then the classifier on the scaled rows.
func (p *Pipeline) Fit(X [][]float64, y []int) error {
	est := p.estimator()
	if est == nil {
		return eris.Errorf("classifier: no estimator for %q", p.Algorithm)
	}
	for _, row := range X {
		if len(row) != len(p.FeatureNames) {
			return eris.Wrapf(ErrShapeMismatch, "classifier: fit: got %d columns, want %d", len(row), len(p.FeatureNames))
		}
	}
	if err := p.Scaler.Fit(X); err != nil {
		return err
	}
	if err := est.Fit(p.Scaler.Transform(X), y); err != nil {
		return err
	}
	p.TrainedAt = time.Now().UTC()
	return nil
}

// Features returns a copy of the ordered feature names.
func (p *Pipeline) Features() []string {
	return slices.Clone(p.FeatureNames)
}

// PredictProba returns P(at risk) for one raw feature vector.
func (p *Pipeline) PredictProba(x []float64) (float64, error) {
	if len(x) != len(p.FeatureNames) {
		return 0, eris.Wrapf(ErrShapeMismatch, "classifier: got %d values, want %d", len(x), len(p.FeatureNames))
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, eris.Errorf("classifier: feature %s is not finite", p.FeatureNames[i])
		}
	}
	est := p.estimator()
	if est == nil {
		return 0, eris.Errorf("classifier: no estimator for %q", p.Algorithm)
	}
	return est.Proba(p.Scaler.TransformRow(x)), nil
}

// PredictAll scores every row and thresholds at 0.5.
func (p *Pipeline) PredictAll(X [][]float64) ([]int, error) {
	out := make([]int, len(X))
	for i, row := range X {
		prob, err := p.PredictProba(row)
		if err != nil {
			return nil, err
		}
		if prob >= 0.5 {
			out[i] = 1
		}
	}
	return out, nil
}

// Validate checks that a decoded artifact is internally consistent.
func (p *Pipeline) Validate() error {
	n := len(p.FeatureNames)
	if n == 0 {
		return eris.New("classifier: artifact has no features")
	}
	if p.Scaler == nil || len(p.Scaler.Mean) != n || len(p.Scaler.Std) != n {
		return eris.Wrap(ErrShapeMismatch, "classifier: scaler does not match features")
	}
	switch p.Algorithm {
	case AlgoLogistic:
		if p.Logistic == nil || len(p.Logistic.Weights) != n {
			return eris.Wrap(ErrShapeMismatch, "classifier: logistic weights do not match features")
		}
	case AlgoDecisionTree:
		if p.Tree == nil || p.Tree.Root == nil {
			return eris.New("classifier: artifact has no tree")
		}
		if maxFeatureIndex(p.Tree.Root) >= n {
			return eris.Wrap(ErrShapeMismatch, "classifier: tree splits on unknown feature")
		}
	case AlgoRandomForest:
		if p.Forest == nil || len(p.Forest.Trees) == 0 {
			return eris.New("classifier: artifact has no trees")
		}
		for _, t := range p.Forest.Trees {
			if t == nil || t.Root == nil {
				return eris.New("classifier: artifact has an empty tree")
			}
			if maxFeatureIndex(t.Root) >= n {
				return eris.Wrap(ErrShapeMismatch, "classifier: tree splits on unknown feature")
			}
		}
	default:
		return eris.Errorf("classifier: unknown algorithm %q", p.Algorithm)
	}
	return nil
}

// Save writes the artifact as JSON. The file is replaced atomically.
func (p *Pipeline) Save(path string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return eris.Wrap(err, "classifier: encode artifact")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "classifier: create model dir")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "classifier: write artifact")
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrap(err, "classifier: rename artifact")
	}
	return nil
}

// Decode reads and validates an artifact.
func Decode(r io.Reader) (*Pipeline, error) {
	var p Pipeline
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, eris.Wrap(err, "classifier: decode artifact")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load opens and decodes the artifact at path.
func Load(path string) (*Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classifier: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return Decode(f)
}
