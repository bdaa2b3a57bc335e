package model

import "fmt"

// StudentRow is one uploaded record after column lookup and numeric coercion.
// Features holds every schema feature for the row's domain; values that were
// missing or malformed are present as 0 and noted in FieldErrors.
type StudentRow struct {
	Index          int                `json:"index"`
	StudentID      string             `json:"student_id"`
	Name           string             `json:"name"`
	AttendanceRate float64            `json:"attendance_rate"`
	CGPA           float64            `json:"cgpa"`
	StudyHours     float64            `json:"study_hours_per_day"`
	PastFailures   int                `json:"past_failures"`
	FamilyIncome   string             `json:"family_income"`
	Scholarship    string             `json:"scholarship"`
	Features       map[string]float64 `json:"features"`
	FieldErrors    []FieldError       `json:"field_errors,omitempty"`
}

// FieldError records a column that could not be coerced.
type FieldError struct {
	Field  string `json:"field"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s (%q)", e.Field, e.Reason, e.Value)
}

// DefaultStudentID is the placeholder id for a row without one.
func DefaultStudentID(index int) string {
	return fmt.Sprintf("STU_%d", index)
}

// DefaultStudentName is the placeholder name for a row without one.
func DefaultStudentName(index int) string {
	return fmt.Sprintf("Student %d", index)
}
