package classifier

import (
	"math"

	"github.com/rotisserie/eris"
)

// StandardScaler standardizes each column to zero mean and unit variance.
// Constant columns have Std 0 and transform to 0.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Fit computes per-column mean and population standard deviation.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return eris.New("classifier: scaler: empty input")
	}
	cols := len(X[0])
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)

	for _, row := range X {
		if len(row) != cols {
			return eris.Wrap(ErrShapeMismatch, "classifier: scaler: ragged input")
		}
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	n := float64(len(X))
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range X {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
	}
	return nil
}

// TransformRow scales one vector. The caller guarantees its length.
func (s *StandardScaler) TransformRow(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		if s.Std[j] != 0 {
			out[j] = (v - s.Mean[j]) / s.Std[j]
		}
	}
	return out
}

// Transform scales every row of X.
func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.TransformRow(row)
	}
	return out
}
