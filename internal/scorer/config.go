// Package scorer turns a student row into a 0-100 dropout risk score, using
// the domain's trained classifier when one is available and a deterministic
// rule heuristic otherwise.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/edupulse/edupulse/internal/config"
)

// DefaultScorerConfig returns a config.ScorerConfig with the canonical
// thresholds and bands.
func DefaultScorerConfig() config.ScorerConfig {
	return config.ScorerConfig{
		// Label thresholds.
		HighThreshold:     75,
		ModerateThreshold: 40,
		FallbackScore:     50,

		// Rule heuristic cut-offs.
		AttendanceCritical: 60,
		AttendanceModerate: 75,
		CGPACritical:       5.0,
		MaxFailures:        1,

		// Inclusive score bands for the rule heuristic.
		LowBand:      []int{5, 39},
		ModerateBand: []int{40, 74},
		HighBand:     []int{75, 95},
	}
}

// ValidateConfig checks that a ScorerConfig is internally consistent.
func ValidateConfig(c config.ScorerConfig) error {
	var errs []string

	// Thresholds.
	if c.ModerateThreshold < 0 || c.HighThreshold > 100 {
		errs = append(errs, "thresholds must be between 0 and 100")
	}
	if c.ModerateThreshold >= c.HighThreshold {
		errs = append(errs, fmt.Sprintf("moderate_threshold (%d) must be < high_threshold (%d)", c.ModerateThreshold, c.HighThreshold))
	}
	if c.FallbackScore < 0 || c.FallbackScore > 100 {
		errs = append(errs, "fallback_score must be between 0 and 100")
	}

	// Heuristic cut-offs.
	if c.AttendanceCritical > c.AttendanceModerate {
		errs = append(errs, "attendance_critical must be <= attendance_moderate")
	}
	if c.CGPACritical < 0 || c.CGPACritical > 10 {
		errs = append(errs, "cgpa_critical must be between 0 and 10")
	}
	if c.MaxFailures < 0 {
		errs = append(errs, "max_failures must be >= 0")
	}

	// Bands.
	bands := []struct {
		name string
		b    []int
	}{
		{"low_band", c.LowBand},
		{"moderate_band", c.ModerateBand},
		{"high_band", c.HighBand},
	}
	for _, band := range bands {
		if len(band.b) != 2 {
			errs = append(errs, fmt.Sprintf("%s must have exactly 2 values", band.name))
			continue
		}
		if band.b[0] < 0 || band.b[1] > 100 || band.b[0] > band.b[1] {
			errs = append(errs, fmt.Sprintf("%s must be an ordered range within 0-100", band.name))
		}
	}
	if len(errs) == 0 {
		if c.LowBand[1] >= c.ModerateThreshold {
			errs = append(errs, "low_band must stay below moderate_threshold")
		}
		if c.ModerateBand[0] < c.ModerateThreshold || c.ModerateBand[1] >= c.HighThreshold {
			errs = append(errs, "moderate_band must fall within the moderate label range")
		}
		if c.HighBand[0] < c.HighThreshold {
			errs = append(errs, "high_band must start at or above high_threshold")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
