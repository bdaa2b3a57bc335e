package scorer

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/edupulse/edupulse/internal/classifier"
	"github.com/edupulse/edupulse/internal/config"
	"github.com/edupulse/edupulse/internal/domain"
	"github.com/edupulse/edupulse/internal/features"
	"github.com/edupulse/edupulse/internal/metrics"
	"github.com/edupulse/edupulse/internal/model"
)

// ModelSource resolves a domain to its classifier.
type ModelSource interface {
	Get(ctx context.Context, d domain.Domain) (classifier.Predictor, bool)
}

// Result is a risk score and the path that produced it.
type Result struct {
	Score  int
	Source model.ScoreSource
}

// Scorer computes risk scores. It is safe for concurrent use.
type Scorer struct {
	models  ModelSource
	cfg     config.ScorerConfig
	metrics *metrics.Metrics
}

// New creates a Scorer. models and m may be nil; without models every row is
// scored by rules.
func New(models ModelSource, cfg config.ScorerConfig, m *metrics.Metrics) *Scorer {
	return &Scorer{models: models, cfg: cfg, metrics: m}
}

// Fallback is the sentinel score used when a loaded model fails on a row.
func (s *Scorer) Fallback() int {
	return clamp(s.cfg.FallbackScore)
}

// Score rates one row. It never fails: model errors degrade to the fallback
// sentinel and a missing model degrades to the rule heuristic.
func (s *Scorer) Score(ctx context.Context, row model.StudentRow, d domain.Domain) Result {
	var res Result
	var m classifier.Predictor
	ok := false
	if s.models != nil {
		m, ok = s.models.Get(ctx, d)
	}

	if ok {
		p, err := predict(m, features.Vector(row, domain.FeaturesFor(d)))
		if err != nil {
			zap.L().Warn("scorer: model prediction failed, using fallback score",
				zap.String("student_id", row.StudentID),
				zap.String("domain", string(d)),
				zap.Error(err),
			)
			res = Result{Score: s.Fallback(), Source: model.SourceFallback}
		} else {
			res = Result{Score: clamp(int(p * 100)), Source: model.SourceModel}
		}
	} else {
		res = Result{Score: clamp(s.RuleScore(row)), Source: model.SourceRules}
	}

	s.metrics.RowScored(string(d), string(res.Source))
	return res
}

// predict calls the model and rejects panics and out-of-range output.
func predict(m classifier.Predictor, x []float64) (p float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("scorer: model panicked: %v", r)
		}
	}()

	p, err = m.PredictProba(x)
	if err != nil {
		return 0, eris.Wrap(err, "scorer: predict")
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, eris.Errorf("scorer: probability %v out of range", p)
	}
	return p, nil
}

func clamp(score int) int {
	return max(0, min(100, score))
}
