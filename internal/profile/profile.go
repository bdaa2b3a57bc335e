// Package profile derives the label, dominant risk factor and financial flag
// reported for a scored student.
package profile

import (
	"strings"

	"github.com/edupulse/edupulse/internal/config"
	"github.com/edupulse/edupulse/internal/model"
)

// Risk factor descriptions, highest precedence first.
const (
	FactorAttendance = "Critical Attendance"
	FactorAcademic   = "Academic Decline"
	FactorFailures   = "Past Failures"
	FactorGeneral    = "General Performance"
)

var (
	lowIncomeStems     = []string{"low", "poor", "bpl"}
	noScholarshipStems = []string{"no", "nil", "n/a", "absent"}
)

// Profile is the classification of one scored row.
type Profile struct {
	Label         model.RiskLabel
	RiskFactor    string
	FinancialFlag bool
}

// Classifier applies label thresholds and factor cut-offs.
type Classifier struct {
	cfg config.ScorerConfig
}

// New creates a Classifier from the scorer thresholds.
func New(cfg config.ScorerConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify derives the profile fields for a row scored at score.
func (c *Classifier) Classify(score int, row model.StudentRow) Profile {
	return Profile{
		Label:         c.Label(score),
		RiskFactor:    c.RiskFactor(row),
		FinancialFlag: FinancialFlag(row.FamilyIncome, row.Scholarship),
	}
}

// Label maps a score onto Safe, Moderate or High Risk.
func (c *Classifier) Label(score int) model.RiskLabel {
	switch {
	case score >= c.cfg.HighThreshold:
		return model.LabelHighRisk
	case score >= c.cfg.ModerateThreshold:
		return model.LabelModerate
	default:
		return model.LabelSafe
	}
}

// RiskFactor names the single most pressing risk for the row.
func (c *Classifier) RiskFactor(row model.StudentRow) string {
	switch {
	case row.AttendanceRate < c.cfg.AttendanceCritical:
		return FactorAttendance
	case row.CGPA < c.cfg.CGPACritical:
		return FactorAcademic
	case row.PastFailures > 0:
		return FactorFailures
	default:
		return FactorGeneral
	}
}

// FinancialFlag reports a low-income student without a scholarship. Both
// fields match when they contain one of the stems, case-insensitively
// ("LowIncome", "Not Awarded"); an empty scholarship never flags.
func FinancialFlag(income, scholarship string) bool {
	return containsAny(income, lowIncomeStems) && containsAny(scholarship, noScholarshipStems)
}

func containsAny(s string, stems []string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, stem := range stems {
		if strings.Contains(lower, stem) {
			return true
		}
	}
	return false
}
