package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/edupulse/edupulse/internal/db"
	"github.com/edupulse/edupulse/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS students (
	student_id      TEXT PRIMARY KEY,
	batch_id        TEXT NOT NULL,
	domain          TEXT NOT NULL,
	name            TEXT NOT NULL,
	risk_score      INTEGER NOT NULL,
	risk_label      TEXT NOT NULL,
	cgpa            DOUBLE PRECISION NOT NULL DEFAULT 0,
	attendance      DOUBLE PRECISION NOT NULL DEFAULT 0,
	financial_flag  BOOLEAN NOT NULL DEFAULT false,
	study_hours     DOUBLE PRECISION NOT NULL DEFAULT 0,
	top_risk_factor TEXT NOT NULL DEFAULT '',
	score_source    TEXT NOT NULL DEFAULT '',
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS call_logs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	student_id  TEXT NOT NULL,
	call_id     TEXT NOT NULL DEFAULT '',
	transcript  TEXT NOT NULL DEFAULT '',
	sentiment   TEXT NOT NULL,
	action_item TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_students_domain ON students(domain);
CREATE INDEX IF NOT EXISTS idx_students_risk_label ON students(risk_label);
CREATE INDEX IF NOT EXISTS idx_call_logs_student_id ON call_logs(student_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var studentUpsertColumns = []string{
	"student_id", "batch_id", "domain", "name", "risk_score", "risk_label", "cgpa", "attendance",
	"financial_flag", "study_hours", "top_risk_factor", "score_source", "updated_at",
}

func (s *PostgresStore) SaveProfiles(ctx context.Context, batchID, domain string, profiles []model.RiskProfile) error {
	now := time.Now().UTC()
	latest := latestByStudent(profiles)
	rows := make([][]any, 0, len(latest))
	for _, p := range latest {
		rows = append(rows, []any{
			p.StudentID, batchID, domain, p.Name, p.RiskScore, string(p.RiskLabel), p.CGPA, p.Attendance,
			p.FinancialFlag, p.StudyHours, p.TopRiskFactor, string(p.ScoreSource), now,
		})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "students",
		Columns:      studentUpsertColumns,
		ConflictKeys: []string{"student_id"},
	}, rows)
	return eris.Wrap(err, "postgres: save profiles")
}

const pgStudentColumns = `student_id, batch_id, domain, name, risk_score, risk_label, cgpa, attendance, financial_flag, study_hours, top_risk_factor, score_source, updated_at`

func (s *PostgresStore) GetStudent(ctx context.Context, studentID string) (*model.StoredStudent, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgStudentColumns+` FROM students WHERE student_id = $1`, studentID)
	st, err := scanStudent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get student %s", studentID)
	}
	return st, nil
}

func (s *PostgresStore) ListStudents(ctx context.Context, filter StudentFilter) ([]model.StoredStudent, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Domain != "" {
		where = append(where, "domain = "+arg(filter.Domain))
	}
	if filter.Label != "" {
		where = append(where, "risk_label = "+arg(string(filter.Label)))
	}
	if filter.FinancialOnly {
		where = append(where, "financial_flag")
	}
	if !filter.UpdatedAfter.IsZero() {
		where = append(where, "updated_at > "+arg(filter.UpdatedAfter))
	}

	query := `SELECT ` + pgStudentColumns + ` FROM students`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY risk_score DESC, student_id LIMIT " + arg(limitOrDefault(filter.Limit)) + " OFFSET " + arg(filter.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list students")
	}
	defer rows.Close()

	var out []model.StoredStudent
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan student")
		}
		out = append(out, *st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate students")
}

func (s *PostgresStore) SaveCallLog(ctx context.Context, summary model.CallSummary) (*model.CallLog, error) {
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
	_, err := s.pool.Exec(ctx,
		`INSERT INTO call_logs (id, student_id, call_id, transcript, sentiment, action_item, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		log.ID, log.StudentID, log.CallID, log.Transcript, string(log.Sentiment), log.ActionItem, log.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert call log")
	}
	return log, nil
}

func (s *PostgresStore) ListCallLogs(ctx context.Context, filter CallFilter) ([]model.CallLog, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.StudentID != "" {
		where = append(where, "student_id = "+arg(filter.StudentID))
	}
	if !filter.CreatedAfter.IsZero() {
		where = append(where, "created_at > "+arg(filter.CreatedAfter))
	}

	query := `SELECT id, student_id, call_id, transcript, sentiment, action_item, created_at FROM call_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT " + arg(limitOrDefault(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list call logs")
	}
	defer rows.Close()

	var out []model.CallLog
	for rows.Next() {
		var c model.CallLog
		if err := rows.Scan(&c.ID, &c.StudentID, &c.CallID, &c.Transcript, &c.Sentiment, &c.ActionItem, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan call log")
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate call logs")
}
