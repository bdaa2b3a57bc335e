package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("validation failed"), false},
		{"explicit", NewTransientError(errors.New("x"), 503), true},
		{"wrapped explicit", fmt.Errorf("post: %w", NewTransientError(errors.New("x"), 429)), true},
		{"reset", fmt.Errorf("dial: %w", syscall.ECONNRESET), true},
		{"refused", syscall.ECONNREFUSED, true},
		{"net timeout", timeoutErr{}, true},
		{"pattern", errors.New("read tcp: i/o timeout"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestCheckStatus(t *testing.T) {
	assert.NoError(t, CheckStatus(200))
	assert.NoError(t, CheckStatus(204))

	err := CheckStatus(503)
	var te *TransientError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, 503, te.StatusCode)

	err = CheckStatus(422)
	assert.Error(t, err)
	assert.False(t, IsTransient(err))
	assert.Contains(t, err.Error(), "422")
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	assert.ErrorIs(t, NewTransientError(inner, 0), inner)
}
