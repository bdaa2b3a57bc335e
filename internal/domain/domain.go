// Package domain defines the academic tracks served by the risk pipeline and
// the ordered feature schema each track's classifier is trained on.
package domain

import "strings"

// Domain is a canonical academic track identifier.
type Domain string

// Canonical domains. The identifiers double as model artifact suffixes.
const (
	Engineering Domain = "engineering"
	Medical     Domain = "med"
	Commerce    Domain = "ca"
	MBA         Domain = "mba"
	School      Domain = "school"
)

var all = []Domain{Engineering, Medical, Commerce, MBA, School}

var aliases = map[string]Domain{
	"engineering": Engineering,
	"eng":         Engineering,
	"med":         Medical,
	"medical":     Medical,
	"ca":          Commerce,
	"commerce":    Commerce,
	"mba":         MBA,
	"school":      School,
}

// baseFeatures are shared by every domain, in this order.
var baseFeatures = []string{"attendance_rate", "cgpa", "study_hours_per_day", "past_failures"}

var extraFeatures = map[Domain][]string{
	Engineering: {"project_score", "coding_skills"},
	Medical:     {"clinical_score", "hospital_hours"},
	Commerce:    {"audit_hours", "law_score"},
	MBA:         {"internship_score", "case_studies"},
	School:      {"homework_rate", "parent_meetings"},
}

// All returns the canonical domains in a fixed order.
func All() []Domain {
	out := make([]Domain, len(all))
	copy(out, all)
	return out
}

// Parse normalizes s (case, surrounding whitespace, aliases) and reports
// whether it names a known domain. Unknown input is returned lowercased.
func Parse(s string) (Domain, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	if d, ok := aliases[key]; ok {
		return d, true
	}
	return Domain(key), false
}

// Known reports whether d is one of the canonical domains.
func (d Domain) Known() bool {
	_, ok := extraFeatures[d]
	return ok
}

func (d Domain) String() string { return string(d) }

// BaseFeatures returns the features common to every domain.
func BaseFeatures() []string {
	out := make([]string, len(baseFeatures))
	copy(out, baseFeatures)
	return out
}

// FeaturesFor returns the ordered feature names the domain's classifier
// expects. Training and inference both derive feature vectors from this list;
// unknown domains get the base features only.
func FeaturesFor(d Domain) []string {
	extra := extraFeatures[d]
	out := make([]string, 0, len(baseFeatures)+len(extra))
	out = append(out, baseFeatures...)
	return append(out, extra...)
}

// ModelFilename is the artifact file name for the domain's classifier.
func ModelFilename(d Domain) string {
	return "model_" + string(d) + ".json"
}
