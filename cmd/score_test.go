package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/edupulse/internal/model"
)

func sampleReport() *model.BatchReport {
	return &model.BatchReport{
		BatchID:       "b-1",
		Domain:        "engineering",
		Status:        "success",
		TotalStudents: 2,
		AtRiskCount:   1,
		Data: []model.RiskProfile{
			{StudentID: "S1", Name: "Asha", RiskScore: 88, RiskLabel: model.LabelHighRisk, CGPA: 3, Attendance: 45, FinancialFlag: true, StudyHours: 1, TopRiskFactor: "Critical Attendance", ScoreSource: model.SourceRules},
			{StudentID: "S2", Name: "A Very Long Student Name Indeed", RiskScore: 9, RiskLabel: model.LabelSafe, CGPA: 8.5, Attendance: 90, StudyHours: 6, TopRiskFactor: "General Performance", ScoreSource: model.SourceRules},
		},
	}
}

func TestWriteReportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReportCSV(&buf, sampleReport()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "student_id", rows[0][0])
	assert.Equal(t, []string{"S1", "Asha", "88", "High Risk", "3", "45", "true", "1", "Critical Attendance", "rules"}, rows[1])
	assert.Equal(t, "8.5", rows[2][4])
}

func TestWriteReportTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReportTable(&buf, sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "Student")
	assert.Contains(t, out, "High Risk")
	assert.Contains(t, out, "A Very Long Student N...")
	assert.Contains(t, out, "Total: 2  At risk: 1  Domain: engineering")
}

func TestWriteReport_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, writeReport(sampleReport(), "json", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got model.BatchReport
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, *sampleReport(), got)
}

func TestWriteReport_UnsupportedFormat(t *testing.T) {
	err := writeReport(sampleReport(), "xml", filepath.Join(t.TempDir(), "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}
