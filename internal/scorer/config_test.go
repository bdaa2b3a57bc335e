package scorer

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/edupulse/internal/config"
)

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
func itoa(i int) string     { return strconv.Itoa(i) }

func TestDefaultScorerConfig_Valid(t *testing.T) {
	assert.NoError(t, ValidateConfig(DefaultScorerConfig()))
}

func TestValidateConfig_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.ScorerConfig)
		want   string
	}{
		{"inverted thresholds", func(c *config.ScorerConfig) { c.ModerateThreshold = 80 }, "moderate_threshold (80) must be < high_threshold (75)"},
		{"fallback out of range", func(c *config.ScorerConfig) { c.FallbackScore = 101 }, "fallback_score"},
		{"attendance cut-offs", func(c *config.ScorerConfig) { c.AttendanceCritical = 90 }, "attendance_critical"},
		{"band length", func(c *config.ScorerConfig) { c.LowBand = []int{5} }, "low_band must have exactly 2 values"},
		{"band order", func(c *config.ScorerConfig) { c.HighBand = []int{95, 75} }, "high_band must be an ordered range"},
		{"low band overlaps moderate", func(c *config.ScorerConfig) { c.LowBand = []int{5, 45} }, "low_band must stay below"},
		{"high band below threshold", func(c *config.ScorerConfig) { c.HighBand = []int{70, 95} }, "high_band must start"},
		{"negative failures", func(c *config.ScorerConfig) { c.MaxFailures = -1 }, "max_failures"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultScorerConfig()
			tt.mutate(&c)
			err := ValidateConfig(c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "scorer: config validation failed")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
