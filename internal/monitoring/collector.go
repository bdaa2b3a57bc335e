// Package monitoring summarizes stored risk profiles and call logs for the
// stats endpoint.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/edupulse/edupulse/internal/model"
	"github.com/edupulse/edupulse/internal/store"
)

// scanLimit caps how many rows one snapshot reads per table.
const scanLimit = 100_000

// Snapshot is a point-in-time view of the stored risk population.
type Snapshot struct {
	// Students.
	StudentsTotal    int            `json:"students_total"`
	HighRisk         int            `json:"high_risk"`
	Moderate         int            `json:"moderate"`
	Safe             int            `json:"safe"`
	FinancialFlags   int            `json:"financial_flags"`
	AvgRiskScore     float64        `json:"avg_risk_score"`
	StudentsByDomain map[string]int `json:"students_by_domain"`

	// Calls.
	CallsTotal       int            `json:"calls_total"`
	CallsBySentiment map[string]int `json:"calls_by_sentiment"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours,omitempty"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Source is the subset of the store the collector reads.
type Source interface {
	ListStudents(ctx context.Context, filter store.StudentFilter) ([]model.StoredStudent, error)
	ListCallLogs(ctx context.Context, filter store.CallFilter) ([]model.CallLog, error)
}

// Collector gathers snapshots from the store.
type Collector struct {
	src Source
}

// NewCollector creates a new collector.
func NewCollector(src Source) *Collector {
	return &Collector{src: src}
}

// Collect builds a snapshot. A positive lookbackHours restricts it to
// students scored and calls logged within that window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := time.Now().UTC()
	snap := &Snapshot{
		StudentsByDomain: make(map[string]int),
		CallsBySentiment: make(map[string]int),
		CollectedAt:      now,
	}
	var cutoff time.Time
	if lookbackHours > 0 {
		snap.LookbackHours = lookbackHours
		cutoff = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}

	students, err := c.src.ListStudents(ctx, store.StudentFilter{UpdatedAfter: cutoff, Limit: scanLimit})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list students")
	}

	var totalScore int
	for _, s := range students {
		snap.StudentsTotal++
		totalScore += s.RiskScore
		snap.StudentsByDomain[s.Domain]++
		switch s.RiskLabel {
		case model.LabelHighRisk:
			snap.HighRisk++
		case model.LabelModerate:
			snap.Moderate++
		case model.LabelSafe:
			snap.Safe++
		}
		if s.FinancialFlag {
			snap.FinancialFlags++
		}
	}
	if snap.StudentsTotal > 0 {
		snap.AvgRiskScore = float64(totalScore) / float64(snap.StudentsTotal)
	}

	calls, err := c.src.ListCallLogs(ctx, store.CallFilter{CreatedAfter: cutoff, Limit: scanLimit})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list call logs")
	}
	for _, cl := range calls {
		snap.CallsTotal++
		snap.CallsBySentiment[string(cl.Sentiment)]++
	}

	return snap, nil
}
