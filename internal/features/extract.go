// Package features maps raw tabular records onto typed student rows and
// builds classifier input vectors. Training and inference share this code so a
// domain's feature vector is derived the same way in both.
package features

import (
	"math"
	"strconv"
	"strings"

	"github.com/edupulse/edupulse/internal/domain"
	"github.com/edupulse/edupulse/internal/model"
)

// Column names looked up in normalized records.
const (
	ColStudentID     = "student_id"
	ColName          = "name"
	ColAttendance    = "attendance_rate"
	ColCGPA          = "cgpa"
	ColStudyHours    = "study_hours_per_day"
	ColPastFailures  = "past_failures"
	ColFamilyIncome  = "family_income"
	ColScholarship   = "scholarship"
	ColDropoutStatus = "dropout_status"
)

// maxPastFailures caps past_failures so oversized cells keep their meaning
// after the int conversion.
const maxPastFailures = math.MaxInt32

// percentGradeColumns hold a 0-100 grade average used when no cgpa column is
// present; they are rescaled onto the 10-point cgpa scale.
var percentGradeColumns = []string{"grade_avg", "grade_average", "internal_assessment_score"}

// Extract builds a StudentRow from a normalized record. It never fails:
// absent or malformed values become 0 and are listed in FieldErrors.
func Extract(rec map[string]string, index int, d domain.Domain) model.StudentRow {
	row := model.StudentRow{
		Index:        index,
		StudentID:    rec[ColStudentID],
		Name:         rec[ColName],
		FamilyIncome: rec[ColFamilyIncome],
		Scholarship:  rec[ColScholarship],
		Features:     make(map[string]float64),
	}
	if row.StudentID == "" {
		row.StudentID = model.DefaultStudentID(index)
	}
	if row.Name == "" {
		row.Name = model.DefaultStudentName(index)
	}

	num := func(col string) float64 {
		v, fe := parseField(col, rec[col])
		if fe != nil {
			row.FieldErrors = append(row.FieldErrors, *fe)
		}
		return v
	}

	row.AttendanceRate = num(ColAttendance)
	row.CGPA = extractGrade(rec, &row)
	row.StudyHours = num(ColStudyHours)
	failures := num(ColPastFailures)
	if failures < 0 {
		row.FieldErrors = append(row.FieldErrors, model.FieldError{Field: ColPastFailures, Value: rec[ColPastFailures], Reason: "negative"})
		failures = 0
	}
	if failures > maxPastFailures {
		row.FieldErrors = append(row.FieldErrors, model.FieldError{Field: ColPastFailures, Value: rec[ColPastFailures], Reason: "out of range"})
		failures = maxPastFailures
	}
	row.PastFailures = int(math.Trunc(failures))

	row.Features[ColAttendance] = row.AttendanceRate
	row.Features[ColCGPA] = row.CGPA
	row.Features[ColStudyHours] = row.StudyHours
	row.Features[ColPastFailures] = float64(row.PastFailures)

	for _, f := range domain.FeaturesFor(d) {
		if _, done := row.Features[f]; done {
			continue
		}
		row.Features[f] = num(f)
	}
	return row
}

func extractGrade(rec map[string]string, row *model.StudentRow) float64 {
	if raw, ok := rec[ColCGPA]; ok && raw != "" {
		v, fe := parseField(ColCGPA, raw)
		if fe != nil {
			row.FieldErrors = append(row.FieldErrors, *fe)
		}
		return v
	}
	for _, col := range percentGradeColumns {
		raw, ok := rec[col]
		if !ok || raw == "" {
			continue
		}
		v, fe := parseField(col, raw)
		if fe != nil {
			row.FieldErrors = append(row.FieldErrors, *fe)
			return 0
		}
		return v / 10
	}
	row.FieldErrors = append(row.FieldErrors, model.FieldError{Field: ColCGPA, Reason: "missing"})
	return 0
}

// Vector returns row's features in the given order; absent names are 0.
func Vector(row model.StudentRow, names []string) []float64 {
	out := make([]float64, len(names))
	for i, n := range names {
		out[i] = row.Features[n]
	}
	return out
}

// parseField coerces a cell to a finite float. Percent signs are tolerated and
// yes/no style flags map to 1/0.
func parseField(col, raw string) (float64, *model.FieldError) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &model.FieldError{Field: col, Reason: "missing"}
	}
	switch strings.ToLower(s) {
	case "yes", "true", "y":
		return 1, nil
	case "no", "false", "n":
		return 0, nil
	}
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &model.FieldError{Field: col, Value: raw, Reason: "not numeric"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &model.FieldError{Field: col, Value: raw, Reason: "not finite"}
	}
	return v, nil
}

// Label parses a dataset target cell ("1", "0", "yes", "dropout", ...).
func Label(raw string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "1.0", "yes", "true", "dropout", "risk":
		return 1, true
	case "0", "0.0", "no", "false", "stay", "safe":
		return 0, true
	}
	return 0, false
}
