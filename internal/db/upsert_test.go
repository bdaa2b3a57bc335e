package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "students",
		Columns:      []string{"student_id", "name"},
		ConflictKeys: []string{"student_id"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "students",
		ConflictKeys: []string{"student_id"},
	}, [][]any{{"S1", "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "students",
		Columns: []string{"student_id", "name"},
	}, [][]any{{"S1", "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_TempTableCopyAndMerge(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{{"S1", "Asha", 88}, {"S2", "Ravi", 9}}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_students" \(LIKE "students" INCLUDING DEFAULTS\) ON COMMIT DROP`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_students"}, []string{"student_id", "name", "risk_score"}).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "students" \("student_id", "name", "risk_score"\) SELECT .* ON CONFLICT \("student_id"\) DO UPDATE SET "name" = EXCLUDED."name", "risk_score" = EXCLUDED."risk_score"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "students",
		Columns:      []string{"student_id", "name", "risk_score"},
		ConflictKeys: []string{"student_id"},
	}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyFailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_students"}, []string{"student_id"}).
		WillReturnError(errors.New("copy broke"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "students",
		Columns:      []string{"student_id"},
		ConflictKeys: []string{"student_id"},
		UpdateCols:   []string{},
	}, [][]any{{"S1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table for students")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeSQL(t *testing.T) {
	tests := []struct {
		name string
		cfg  UpsertConfig
		want string
	}{
		{
			name: "refresh non-key columns",
			cfg:  UpsertConfig{Table: "students", Columns: []string{"student_id", "risk_score"}, ConflictKeys: []string{"student_id"}},
			want: `INSERT INTO "students" ("student_id", "risk_score") SELECT "student_id", "risk_score" FROM "_tmp_upsert_students" ON CONFLICT ("student_id") DO UPDATE SET "risk_score" = EXCLUDED."risk_score"`,
		},
		{
			name: "keep existing rows",
			cfg:  UpsertConfig{Table: "public.students", Columns: []string{"student_id", "name"}, ConflictKeys: []string{"student_id"}, UpdateCols: []string{}},
			want: `INSERT INTO "public"."students" ("student_id", "name") SELECT "student_id", "name" FROM "_tmp_upsert_public_students" ON CONFLICT ("student_id") DO NOTHING`,
		},
		{
			name: "key-only table",
			cfg:  UpsertConfig{Table: "students", Columns: []string{"student_id"}, ConflictKeys: []string{"student_id"}},
			want: `INSERT INTO "students" ("student_id") SELECT "student_id" FROM "_tmp_upsert_students" ON CONFLICT ("student_id") DO NOTHING`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.mergeSQL())
		})
	}
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"students", `"students"`},
		{"public.call_logs", `"public"."call_logs"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"student_id", "name", "risk_score"`, quoteAndJoin([]string{"student_id", "name", "risk_score"}))
}
