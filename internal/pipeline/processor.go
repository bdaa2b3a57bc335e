// Package pipeline turns an uploaded student table into a batch risk report.
// A failing row degrades to the fallback profile instead of failing the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/edupulse/edupulse/internal/domain"
	"github.com/edupulse/edupulse/internal/features"
	"github.com/edupulse/edupulse/internal/fetcher"
	"github.com/edupulse/edupulse/internal/metrics"
	"github.com/edupulse/edupulse/internal/model"
	"github.com/edupulse/edupulse/internal/profile"
	"github.com/edupulse/edupulse/internal/scorer"
)

// ErrInvalidUpload is returned when an upload cannot be parsed as a table.
var ErrInvalidUpload = errors.New("pipeline: invalid upload")

// StatusSuccess is the report status of a processed batch.
const StatusSuccess = "success"

// ProfileSink persists the profiles of a finished batch.
type ProfileSink interface {
	SaveProfiles(ctx context.Context, batchID, domain string, profiles []model.RiskProfile) error
}

// Upload is a raw tabular file as received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Processor turns uploaded tables into batch risk reports.
type Processor struct {
	scorer   *scorer.Scorer
	profiles *profile.Classifier
	sink     ProfileSink
	metrics  *metrics.Metrics
}

// New creates a Processor. sink and m may be nil.
func New(sc *scorer.Scorer, cl *profile.Classifier, sink ProfileSink, m *metrics.Metrics) *Processor {
	return &Processor{scorer: sc, profiles: cl, sink: sink, metrics: m}
}

// ProcessUpload parses up and processes it. A parse failure returns
// ErrInvalidUpload before anything is scored or stored.
func (p *Processor) ProcessUpload(ctx context.Context, up Upload, d domain.Domain) (*model.BatchReport, error) {
	table, err := fetcher.ParseTable(ctx, up.Data, fetcher.DetectFormat(up.Filename, up.ContentType))
	if err != nil {
		zap.L().Info("pipeline: rejected upload",
			zap.String("domain", string(d)),
			zap.String("filename", up.Filename),
			zap.Error(err),
		)
		return nil, eris.Wrapf(ErrInvalidUpload, "pipeline: parse upload: %v", err)
	}
	return p.Process(ctx, table, d), nil
}

// Process scores every row of t in order. It never fails: a row that errors
// or panics is reported with the fallback score.
func (p *Processor) Process(ctx context.Context, t *fetcher.Table, d domain.Domain) *model.BatchReport {
	start := time.Now()
	report := &model.BatchReport{
		BatchID: uuid.NewString(),
		Domain:  string(d),
		Status:  StatusSuccess,
		Data:    make([]model.RiskProfile, 0, t.Len()),
	}
	log := zap.L().With(zap.String("batch_id", report.BatchID), zap.String("domain", string(d)))

	for i := range t.Len() {
		prof := p.processRow(ctx, t, i, d, log)
		if prof.RiskLabel == model.LabelHighRisk {
			report.AtRiskCount++
		}
		report.Data = append(report.Data, prof)
	}
	report.TotalStudents = len(report.Data)

	outcome := "ok"
	if report.TotalStudents == 0 {
		outcome = "empty"
	}
	p.metrics.Batch(string(d), outcome)
	log.Info("pipeline: batch scored",
		zap.Int("total_students", report.TotalStudents),
		zap.Int("at_risk_count", report.AtRiskCount),
		zap.Duration("elapsed", time.Since(start)),
	)

	if p.sink != nil && len(report.Data) > 0 {
		if err := p.sink.SaveProfiles(ctx, report.BatchID, string(d), report.Data); err != nil {
			log.Error("pipeline: failed to persist profiles", zap.Error(err))
		}
	}
	return report
}

func (p *Processor) processRow(ctx context.Context, t *fetcher.Table, i int, d domain.Domain, log *zap.Logger) (prof model.RiskProfile) {
	id, name := model.DefaultStudentID(i), model.DefaultStudentName(i)
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: row failed, using fallback score",
				zap.Int("row", i),
				zap.String("student_id", id),
				zap.String("panic", fmt.Sprint(r)),
			)
			prof = p.fallbackProfile(id, name)
		}
	}()

	row := features.Extract(t.Record(i), i, d)
	id, name = row.StudentID, row.Name
	if len(row.FieldErrors) > 0 {
		log.Debug("pipeline: row has unusable fields",
			zap.Int("row", i),
			zap.String("student_id", row.StudentID),
			zap.Errors("fields", fieldErrors(row.FieldErrors)),
		)
	}

	res := p.scorer.Score(ctx, row, d)
	cls := p.profiles.Classify(res.Score, row)
	return model.RiskProfile{
		StudentID:     row.StudentID,
		Name:          row.Name,
		RiskScore:     res.Score,
		RiskLabel:     cls.Label,
		CGPA:          row.CGPA,
		Attendance:    row.AttendanceRate,
		FinancialFlag: cls.FinancialFlag,
		StudyHours:    row.StudyHours,
		TopRiskFactor: cls.RiskFactor,
		ScoreSource:   res.Source,
	}
}

func (p *Processor) fallbackProfile(id, name string) model.RiskProfile {
	score := p.scorer.Fallback()
	return model.RiskProfile{
		StudentID:     id,
		Name:          name,
		RiskScore:     score,
		RiskLabel:     p.profiles.Label(score),
		TopRiskFactor: profile.FactorGeneral,
		ScoreSource:   model.SourceFallback,
	}
}

func fieldErrors(fes []model.FieldError) []error {
	out := make([]error, len(fes))
	for i, fe := range fes {
		out[i] = fe
	}
	return out
}
