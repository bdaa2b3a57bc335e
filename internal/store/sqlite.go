package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/edupulse/edupulse/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS students (
	student_id      TEXT PRIMARY KEY,
	batch_id        TEXT NOT NULL,
	domain          TEXT NOT NULL,
	name            TEXT NOT NULL,
	risk_score      INTEGER NOT NULL,
	risk_label      TEXT NOT NULL,
	cgpa            REAL NOT NULL DEFAULT 0,
	attendance      REAL NOT NULL DEFAULT 0,
	financial_flag  INTEGER NOT NULL DEFAULT 0,
	study_hours     REAL NOT NULL DEFAULT 0,
	top_risk_factor TEXT NOT NULL DEFAULT '',
	score_source    TEXT NOT NULL DEFAULT '',
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS call_logs (
	id          TEXT PRIMARY KEY,
	student_id  TEXT NOT NULL,
	call_id     TEXT NOT NULL DEFAULT '',
	transcript  TEXT NOT NULL DEFAULT '',
	sentiment   TEXT NOT NULL,
	action_item TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_students_domain ON students(domain);
CREATE INDEX IF NOT EXISTS idx_students_risk_label ON students(risk_label);
CREATE INDEX IF NOT EXISTS idx_call_logs_student_id ON call_logs(student_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsertStudent = `
INSERT INTO students (student_id, batch_id, domain, name, risk_score, risk_label, cgpa, attendance,
	financial_flag, study_hours, top_risk_factor, score_source, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (student_id) DO UPDATE SET
	batch_id = excluded.batch_id,
	domain = excluded.domain,
	name = excluded.name,
	risk_score = excluded.risk_score,
	risk_label = excluded.risk_label,
	cgpa = excluded.cgpa,
	attendance = excluded.attendance,
	financial_flag = excluded.financial_flag,
	study_hours = excluded.study_hours,
	top_risk_factor = excluded.top_risk_factor,
	score_source = excluded.score_source,
	updated_at = excluded.updated_at`

func (s *SQLiteStore) SaveProfiles(ctx context.Context, batchID, domain string, profiles []model.RiskProfile) error {
	if len(profiles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save profiles")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertStudent)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare upsert student")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, p := range latestByStudent(profiles) {
		if _, err := stmt.ExecContext(ctx,
			p.StudentID, batchID, domain, p.Name, p.RiskScore, string(p.RiskLabel), p.CGPA, p.Attendance,
			p.FinancialFlag, p.StudyHours, p.TopRiskFactor, string(p.ScoreSource), now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert student %s", p.StudentID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save profiles")
}

const studentColumns = `student_id, batch_id, domain, name, risk_score, risk_label, cgpa, attendance,
	financial_flag, study_hours, top_risk_factor, score_source, updated_at`

func (s *SQLiteStore) GetStudent(ctx context.Context, studentID string) (*model.StoredStudent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE student_id = ?`, studentID)
	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get student %s", studentID)
	}
	return st, nil
}

func (s *SQLiteStore) ListStudents(ctx context.Context, filter StudentFilter) ([]model.StoredStudent, error) {
	var where []string
	var args []any
	if filter.Domain != "" {
		where = append(where, "domain = ?")
		args = append(args, filter.Domain)
	}
	if filter.Label != "" {
		where = append(where, "risk_label = ?")
		args = append(args, string(filter.Label))
	}
	if filter.FinancialOnly {
		where = append(where, "financial_flag = 1")
	}
	if !filter.UpdatedAfter.IsZero() {
		where = append(where, "updated_at > ?")
		args = append(args, filter.UpdatedAfter.UTC())
	}

	query := `SELECT ` + studentColumns + ` FROM students`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY risk_score DESC, student_id LIMIT ? OFFSET ?"
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list students")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.StoredStudent
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan student")
		}
		out = append(out, *st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate students")
}

func (s *SQLiteStore) SaveCallLog(ctx context.Context, summary model.CallSummary) (*model.CallLog, error) {
	if err := validateSummary(summary); err != nil {
		return nil, err
	}
	log := &model.CallLog{
		ID:         uuid.New().String(),
		StudentID:  summary.StudentID,
		CallID:     summary.CallID,
		Transcript: summary.Transcript,
		Sentiment:  summary.Sentiment,
		ActionItem: summary.ActionItem,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO call_logs (id, student_id, call_id, transcript, sentiment, action_item, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.StudentID, log.CallID, log.Transcript, string(log.Sentiment), log.ActionItem, log.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert call log")
	}
	return log, nil
}

func (s *SQLiteStore) ListCallLogs(ctx context.Context, filter CallFilter) ([]model.CallLog, error) {
	var where []string
	var args []any
	if filter.StudentID != "" {
		where = append(where, "student_id = ?")
		args = append(args, filter.StudentID)
	}
	if !filter.CreatedAfter.IsZero() {
		where = append(where, "created_at > ?")
		args = append(args, filter.CreatedAfter.UTC())
	}

	query := `SELECT id, student_id, call_id, transcript, sentiment, action_item, created_at FROM call_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limitOrDefault(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list call logs")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.CallLog
	for rows.Next() {
		var c model.CallLog
		if err := rows.Scan(&c.ID, &c.StudentID, &c.CallID, &c.Transcript, &c.Sentiment, &c.ActionItem, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan call log")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate call logs")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanStudent(row scannable) (*model.StoredStudent, error) {
	var st model.StoredStudent
	err := row.Scan(
		&st.StudentID, &st.BatchID, &st.Domain, &st.Name, &st.RiskScore, &st.RiskLabel,
		&st.CGPA, &st.Attendance, &st.FinancialFlag, &st.StudyHours, &st.TopRiskFactor,
		&st.ScoreSource, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
