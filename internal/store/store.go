package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/edupulse/edupulse/internal/model"
)

// StudentFilter specifies criteria for listing stored students.
type StudentFilter struct {
	Domain        string          `json:"domain,omitempty"`
	Label         model.RiskLabel `json:"label,omitempty"`
	FinancialOnly bool            `json:"financial_only,omitempty"`
	UpdatedAfter  time.Time       `json:"updated_after,omitempty"`
	Limit         int             `json:"limit,omitempty"`
	Offset        int             `json:"offset,omitempty"`
}

// CallFilter specifies criteria for listing call logs.
type CallFilter struct {
	StudentID    string    `json:"student_id,omitempty"`
	CreatedAfter time.Time `json:"created_after,omitempty"`
	Limit        int       `json:"limit,omitempty"`
}

// Store defines the persistence interface for scored students and counselor
// call logs.
type Store interface {
	// Students
	SaveProfiles(ctx context.Context, batchID, domain string, profiles []model.RiskProfile) error
	GetStudent(ctx context.Context, studentID string) (*model.StoredStudent, error)
	ListStudents(ctx context.Context, filter StudentFilter) ([]model.StoredStudent, error)

	// Calls
	SaveCallLog(ctx context.Context, summary model.CallSummary) (*model.CallLog, error)
	ListCallLogs(ctx context.Context, filter CallFilter) ([]model.CallLog, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// Open returns the store for driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := NewPostgres(ctx, dsn, nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// latestByStudent drops all but the last profile for each student id,
// preserving first-seen order.
func latestByStudent(profiles []model.RiskProfile) []model.RiskProfile {
	pos := make(map[string]int, len(profiles))
	out := make([]model.RiskProfile, 0, len(profiles))
	for _, p := range profiles {
		if i, ok := pos[p.StudentID]; ok {
			out[i] = p
			continue
		}
		pos[p.StudentID] = len(out)
		out = append(out, p)
	}
	return out
}

func validateSummary(s model.CallSummary) error {
	if s.StudentID == "" {
		return eris.New("store: call summary has no student_id")
	}
	if !s.Sentiment.Valid() {
		return eris.Errorf("store: invalid sentiment %q", s.Sentiment)
	}
	return nil
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
