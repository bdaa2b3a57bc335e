package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/edupulse/internal/model"
)

func TestLatestByStudent(t *testing.T) {
	in := []model.RiskProfile{
		{StudentID: "A", RiskScore: 1},
		{StudentID: "B", RiskScore: 2},
		{StudentID: "A", RiskScore: 3},
	}
	out := latestByStudent(in)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].StudentID)
	assert.Equal(t, 3, out[0].RiskScore)
	assert.Equal(t, "B", out[1].StudentID)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	assert.ErrorContains(t, err, `unknown driver "mysql"`)
}

func TestOpen_SQLite(t *testing.T) {
	s, err := Open(context.Background(), "sqlite", t.TempDir()+"/open.db")
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &SQLiteStore{}, s)
}
