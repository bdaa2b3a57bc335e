package datagen

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/edupulse/internal/domain"
	"github.com/edupulse/edupulse/internal/features"
	"github.com/edupulse/edupulse/internal/fetcher"
)

func TestDataset_ColumnsFollowSchema(t *testing.T) {
	for _, d := range domain.All() {
		rows := New(1).Dataset(d, 20)
		require.Len(t, rows, 21)

		want := append([]string{"student_id"}, domain.FeaturesFor(d)...)
		want = append(want, "dropout_status")
		assert.Equal(t, want, rows[0], d)
		for _, r := range rows[1:] {
			assert.Len(t, r, len(want))
			_, ok := features.Label(r[len(r)-1])
			assert.True(t, ok, "label %q", r[len(r)-1])
		}
	}
}

func TestDataset_Deterministic(t *testing.T) {
	a := New(42).Dataset(domain.Engineering, 50)
	b := New(42).Dataset(domain.Engineering, 50)
	c := New(43).Dataset(domain.Engineering, 50)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestDataset_ValuesExtractCleanly(t *testing.T) {
	rows := New(7).Dataset(domain.Medical, 200)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	tbl, err := fetcher.ParseTable(context.Background(), buf.Bytes(), fetcher.FormatCSV)
	require.NoError(t, err)
	require.Equal(t, 200, tbl.Len())

	positives := 0
	for i := range tbl.Len() {
		row := features.Extract(tbl.Record(i), i, domain.Medical)
		assert.Empty(t, row.FieldErrors, "row %d", i)
		assert.GreaterOrEqual(t, row.AttendanceRate, 0.0)
		assert.LessOrEqual(t, row.AttendanceRate, 100.0)
		assert.GreaterOrEqual(t, row.CGPA, 0.0)
		assert.LessOrEqual(t, row.CGPA, 10.0)
		y, _ := features.Label(tbl.Record(i)["dropout_status"])
		positives += y
	}
	// Both classes must be present for training to make sense.
	assert.Greater(t, positives, 0)
	assert.Less(t, positives, 200)
}

func TestDropoutRule(t *testing.T) {
	g := New(3)
	highs, lows := 0, 0
	for range 500 {
		highs += g.dropout(50, 3, 2)
		lows += g.dropout(95, 9, 0)
	}
	assert.Equal(t, 500, highs)
	assert.LessOrEqual(t, lows, 2)
}

func TestBatch_Balanced(t *testing.T) {
	rows := New(5).Batch(domain.School, 50)
	require.Len(t, rows, 51)

	want := []string{"student_id", "name", "attendance_rate", "cgpa", "study_hours_per_day", "past_failures", "homework_rate", "parent_meetings", "family_income", "scholarship"}
	assert.Equal(t, want, rows[0])

	var high, safe int
	for _, r := range rows[1:] {
		require.Len(t, r, len(want))
		assert.NotEmpty(t, r[1])
		assert.Contains(t, []string{"High", "Medium", "Low"}, r[8])
		assert.Contains(t, []string{"Yes", "No"}, r[9])
		failures, err := strconv.Atoi(r[5])
		require.NoError(t, err)
		att, err := strconv.ParseFloat(r[2], 64)
		require.NoError(t, err)
		switch {
		case failures >= 2:
			high++
		case failures == 0 && att >= 85:
			safe++
		}
	}
	assert.Equal(t, 16, high)
	assert.Equal(t, 18, safe)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := DatasetPath(filepath.Join(dir, "dataset"), domain.MBA)
	assert.Equal(t, filepath.Join(dir, "dataset", "mba.csv"), path)

	require.NoError(t, WriteFile(path, New(1).Dataset(domain.MBA, 3)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "student_id,attendance_rate,cgpa,study_hours_per_day,past_failures,internship_score,case_studies,dropout_status\n")

	assert.Equal(t, filepath.Join("out", "batch_ca.csv"), BatchPath("out", domain.Commerce))
}
