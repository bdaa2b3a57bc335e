// Package classifier implements the binary dropout classifiers, their
// preprocessing pipeline, evaluation metrics and the JSON model artifact the
// serving path loads.
package classifier

import "errors"

// Predictor is a trained, domain-scoped model handle.
type Predictor interface {
	// PredictProba returns P(at risk) for a single feature vector ordered as
	// Features().
	PredictProba(x []float64) (float64, error)
	Features() []string
}

// Algorithm names a classifier family.
type Algorithm string

const (
	AlgoLogistic     Algorithm = "logistic_regression"
	AlgoDecisionTree Algorithm = "decision_tree"
	AlgoRandomForest Algorithm = "random_forest"
)

// ErrShapeMismatch is returned when an input vector does not match the
// feature list the model was fit on.
var ErrShapeMismatch = errors.New("classifier: feature vector shape mismatch")

// estimator is the fit/predict contract shared by the model families.
type estimator interface {
	Fit(X [][]float64, y []int) error
	Proba(x []float64) float64
}
