package classifier

import (
	"math"

	"github.com/rotisserie/eris"
)

// LogisticRegression is an L2-regularized binary logistic model trained with
// full-batch gradient descent. C is the inverse regularization strength.
type LogisticRegression struct {
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	C            float64   `json:"c"`
	LearningRate float64   `json:"-"`
	Epochs       int       `json:"-"`
}

// NewLogisticRegression returns a model with training defaults.
func NewLogisticRegression(c float64) *LogisticRegression {
	if c <= 0 {
		c = 1
	}
	return &LogisticRegression{C: c, LearningRate: 0.1, Epochs: 500}
}

// Fit trains on X (already scaled) and binary labels y.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return eris.New("classifier: logistic: empty training set")
	}
	if len(X) != len(y) {
		return eris.Errorf("classifier: logistic: %d rows but %d labels", len(X), len(y))
	}
	nf := len(X[0])
	m.Weights = make([]float64, nf)
	m.Bias = 0

	n := float64(len(X))
	lambda := 1 / m.C
	grad := make([]float64, nf)
	for ep := 0; ep < m.Epochs; ep++ {
		for j := range grad {
			grad[j] = 0
		}
		var gb float64
		for i, row := range X {
			d := m.Proba(row) - float64(y[i])
			for j, v := range row {
				grad[j] += d * v
			}
			gb += d
		}
		for j := range m.Weights {
			m.Weights[j] -= m.LearningRate * (grad[j]/n + lambda*m.Weights[j]/n)
		}
		m.Bias -= m.LearningRate * gb / n
	}
	return nil
}

// Proba returns sigmoid(w·x + b).
func (m *LogisticRegression) Proba(x []float64) float64 {
	z := m.Bias
	for j, v := range x {
		z += m.Weights[j] * v
	}
	return sigmoid(z)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
