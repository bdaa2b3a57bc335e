// Package trainer fits one classifier per domain from its labelled dataset,
// choosing the algorithm and hyper-parameters by cross-validated grid search
// and keeping the candidate with the best held-out accuracy.
package trainer

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edupulse/edupulse/internal/classifier"
	"github.com/edupulse/edupulse/internal/config"
	"github.com/edupulse/edupulse/internal/domain"
	"github.com/edupulse/edupulse/internal/features"
	"github.com/edupulse/edupulse/internal/fetcher"
)

const minRows = 10

// Result summarizes the training run for one domain.
type Result struct {
	Domain    string               `json:"domain"`
	Algorithm classifier.Algorithm `json:"algorithm,omitempty"`
	Params    map[string]float64   `json:"params,omitempty"`
	Metrics   classifier.Metrics   `json:"metrics"`
	Path      string               `json:"path,omitempty"`
	Skipped   int                  `json:"skipped_rows"`
	Duration  time.Duration        `json:"duration"`
	Error     string               `json:"error,omitempty"`
}

// Trainer trains and saves per-domain models.
type Trainer struct {
	cfg       config.TrainConfig
	modelsDir string
	grid      Grid
}

// New creates a Trainer writing artifacts to modelsDir.
func New(cfg config.TrainConfig, modelsDir string, grid Grid) *Trainer {
	if cfg.TestRatio <= 0 || cfg.TestRatio >= 1 {
		cfg.TestRatio = 0.2
	}
	if cfg.Folds < 2 {
		cfg.Folds = 3
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Trainer{cfg: cfg, modelsDir: modelsDir, grid: grid}
}

// Dataset is a domain's feature matrix and labels.
type Dataset struct {
	X       [][]float64
	Y       []int
	Skipped int
}

// LoadDataset reads <dataset_dir>/<domain>.csv and extracts it with the same
// code the scorer uses at inference. Rows without a usable dropout_status
// label are skipped.
func (t *Trainer) LoadDataset(ctx context.Context, d domain.Domain) (*Dataset, error) {
	path := t.datasetPath(d)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "trainer: read dataset %s", path)
	}
	tbl, err := fetcher.ParseTable(ctx, data, fetcher.FormatCSV)
	if err != nil {
		return nil, eris.Wrapf(err, "trainer: parse dataset %s", path)
	}

	names := domain.FeaturesFor(d)
	ds := &Dataset{}
	for i := range tbl.Len() {
		rec := tbl.Record(i)
		y, ok := features.Label(rec[features.ColDropoutStatus])
		if !ok {
			ds.Skipped++
			continue
		}
		row := features.Extract(rec, i, d)
		ds.X = append(ds.X, features.Vector(row, names))
		ds.Y = append(ds.Y, y)
	}

	if len(ds.X) < minRows {
		return nil, eris.Errorf("trainer: %s has %d labelled rows, need at least %d", path, len(ds.X), minRows)
	}
	pos := 0
	for _, y := range ds.Y {
		pos += y
	}
	if pos == 0 || pos == len(ds.Y) {
		return nil, eris.Errorf("trainer: %s has only one class", path)
	}
	return ds, nil
}

func (t *Trainer) datasetPath(d domain.Domain) string {
	return filepath.Join(t.cfg.DatasetDir, d.String()+".csv")
}

// TrainDomain runs the grid search for d and saves the winning pipeline.
func (t *Trainer) TrainDomain(ctx context.Context, d domain.Domain) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("domain", d.String()))

	ds, err := t.LoadDataset(ctx, d)
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx := classifier.TrainTestSplit(len(ds.X), t.cfg.TestRatio, t.cfg.Seed)
	Xtr, ytr := classifier.Subset(ds.X, ds.Y, trainIdx)
	Xte, yte := classifier.Subset(ds.X, ds.Y, testIdx)
	folds := classifier.KFold(len(Xtr), t.cfg.Folds, t.cfg.Seed)

	log.Info("trainer: dataset loaded",
		zap.Int("train_rows", len(Xtr)),
		zap.Int("test_rows", len(Xte)),
		zap.Int("skipped", ds.Skipped),
	)

	var (
		best    *classifier.Pipeline
		bestAcc = -1.0
		bestCV  float64
		names   = domain.FeaturesFor(d)
	)
	for _, cand := range t.grid.Models {
		params, cv, err := t.search(ctx, d, cand, Xtr, ytr, folds)
		if err != nil {
			return nil, err
		}

		p, err := classifier.NewPipeline(d.String(), cand.Algorithm, names, params, t.cfg.Seed)
		if err != nil {
			return nil, eris.Wrap(err, "trainer: build pipeline")
		}
		if err := p.Fit(Xtr, ytr); err != nil {
			return nil, eris.Wrapf(err, "trainer: fit %s", cand.Algorithm)
		}
		pred, err := p.PredictAll(Xte)
		if err != nil {
			return nil, eris.Wrapf(err, "trainer: evaluate %s", cand.Algorithm)
		}
		acc := classifier.Accuracy(yte, pred)

		log.Info("trainer: candidate evaluated",
			zap.String("algorithm", string(cand.Algorithm)),
			zap.Any("params", params),
			zap.Float64("cv_accuracy", cv),
			zap.Float64("test_accuracy", acc),
		)

		if acc > bestAcc {
			best, bestAcc, bestCV = p, acc, cv
		}
	}
	if best == nil {
		return nil, eris.New("trainer: grid has no models")
	}

	pred, err := best.PredictAll(Xte)
	if err != nil {
		return nil, eris.Wrap(err, "trainer: evaluate winner")
	}
	precision, recall, f1 := classifier.PrecisionRecallF1(yte, pred)
	best.Metrics = classifier.Metrics{
		Accuracy:   bestAcc,
		Precision:  precision,
		Recall:     recall,
		F1:         f1,
		CVAccuracy: bestCV,
		TrainRows:  len(Xtr),
		TestRows:   len(Xte),
	}

	path := t.modelPath(d)
	if err := best.Save(path); err != nil {
		return nil, eris.Wrapf(err, "trainer: save %s", path)
	}

	res := &Result{
		Domain:    d.String(),
		Algorithm: best.Algorithm,
		Params:    best.Params,
		Metrics:   best.Metrics,
		Path:      path,
		Skipped:   ds.Skipped,
		Duration:  time.Since(start),
	}
	log.Info("trainer: model saved",
		zap.String("algorithm", string(res.Algorithm)),
		zap.Float64("accuracy", res.Metrics.Accuracy),
		zap.Float64("f1", res.Metrics.F1),
		zap.String("path", path),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// search returns the parameter combination with the best mean k-fold
// validation accuracy. Ties keep the earlier combination.
func (t *Trainer) search(ctx context.Context, d domain.Domain, cand Candidate, X [][]float64, y []int, folds []classifier.Fold) (map[string]float64, float64, error) {
	var (
		bestParams map[string]float64
		bestScore  = -1.0
	)
	names := domain.FeaturesFor(d)
	for _, params := range cand.Combinations() {
		if err := ctx.Err(); err != nil {
			return nil, 0, eris.Wrap(err, "trainer: search cancelled")
		}
		var sum float64
		for _, f := range folds {
			p, err := classifier.NewPipeline(d.String(), cand.Algorithm, names, params, t.cfg.Seed)
			if err != nil {
				return nil, 0, eris.Wrap(err, "trainer: build pipeline")
			}
			fx, fy := classifier.Subset(X, y, f.Train)
			if err := p.Fit(fx, fy); err != nil {
				return nil, 0, eris.Wrapf(err, "trainer: fit %s", cand.Algorithm)
			}
			vx, vy := classifier.Subset(X, y, f.Valid)
			pred, err := p.PredictAll(vx)
			if err != nil {
				return nil, 0, eris.Wrapf(err, "trainer: validate %s", cand.Algorithm)
			}
			sum += classifier.Accuracy(vy, pred)
		}
		score := sum / float64(max(1, len(folds)))
		if score > bestScore {
			bestParams, bestScore = params, score
		}
	}
	return bestParams, bestScore, nil
}

func (t *Trainer) modelPath(d domain.Domain) string {
	return filepath.Join(t.modelsDir, domain.ModelFilename(d))
}

// TrainAll trains the given domains concurrently, bounded by
// train.concurrency. A failing domain is logged and reported in its Result;
// it does not stop the others. Results follow the order of domains.
func (t *Trainer) TrainAll(ctx context.Context, domains []domain.Domain) []Result {
	results := make([]Result, len(domains))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Concurrency)
	for i, d := range domains {
		g.Go(func() error {
			res, err := t.TrainDomain(gctx, d)
			if err != nil {
				zap.L().Error("trainer: domain failed",
					zap.String("domain", d.String()),
					zap.Error(err),
				)
				results[i] = Result{Domain: d.String(), Error: err.Error()}
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()
	return results
}
