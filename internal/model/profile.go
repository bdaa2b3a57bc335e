package model

import "time"

// RiskLabel is the ordinal bucket derived from a risk score.
type RiskLabel string

const (
	LabelSafe     RiskLabel = "Safe"
	LabelModerate RiskLabel = "Moderate"
	LabelHighRisk RiskLabel = "High Risk"
)

// Valid reports whether l is one of the three labels.
func (l RiskLabel) Valid() bool {
	switch l {
	case LabelSafe, LabelModerate, LabelHighRisk:
		return true
	}
	return false
}

// ScoreSource records which path produced a risk score.
type ScoreSource string

const (
	SourceModel    ScoreSource = "model"
	SourceRules    ScoreSource = "rules"
	SourceFallback ScoreSource = "fallback"
)

// RiskProfile is the per-student output of a batch.
type RiskProfile struct {
	StudentID     string      `json:"student_id"`
	Name          string      `json:"name"`
	RiskScore     int         `json:"risk_score"`
	RiskLabel     RiskLabel   `json:"risk_label"`
	CGPA          float64     `json:"cgpa"`
	Attendance    float64     `json:"attendance"`
	FinancialFlag bool        `json:"financial_flag"`
	StudyHours    float64     `json:"study_hours"`
	TopRiskFactor string      `json:"top_risk_factor"`
	ScoreSource   ScoreSource `json:"score_source,omitempty"`
}

// BatchReport aggregates the profiles of one upload, in input order.
type BatchReport struct {
	BatchID       string        `json:"batch_id"`
	Domain        string        `json:"domain"`
	Status        string        `json:"status"`
	TotalStudents int           `json:"total_students"`
	AtRiskCount   int           `json:"at_risk_count"`
	Data          []RiskProfile `json:"data"`
}

// StoredStudent is a persisted risk profile.
type StoredStudent struct {
	RiskProfile
	Domain    string    `json:"domain"`
	BatchID   string    `json:"batch_id"`
	UpdatedAt time.Time `json:"updated_at"`
}
