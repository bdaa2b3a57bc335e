package scorer

import (
	"math"

	"github.com/edupulse/edupulse/internal/model"
)

// RuleScore is the model-free heuristic. The band comes from attendance,
// cgpa and failures; the position inside the band grows with the combined
// attendance and grade deficit, so equal inputs always score equally.
func (s *Scorer) RuleScore(row model.StudentRow) int {
	c := s.cfg
	band := c.LowBand
	switch {
	case row.AttendanceRate < c.AttendanceCritical,
		row.CGPA < c.CGPACritical,
		row.PastFailures > c.MaxFailures:
		band = c.HighBand
	case row.AttendanceRate < c.AttendanceModerate:
		band = c.ModerateBand
	}

	deficit := 0.5*(1-row.AttendanceRate/100) + 0.5*(1-row.CGPA/10)
	deficit = math.Max(0, math.Min(1, deficit))
	lo, hi := band[0], band[1]
	return lo + int(math.Round(deficit*float64(hi-lo)))
}
