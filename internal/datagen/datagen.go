// Package datagen produces seeded synthetic data: labelled training datasets
// for the trainer and balanced sample uploads for the batch endpoint. Columns
// always come from domain.FeaturesFor so generated files match the schema the
// scorer reads.
package datagen

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/edupulse/edupulse/internal/domain"
	"github.com/edupulse/edupulse/internal/features"
)

// RiskType is the profile a sample upload row is drawn from.
type RiskType string

const (
	RiskHigh     RiskType = "high"
	RiskModerate RiskType = "moderate"
	RiskSafe     RiskType = "safe"
)

// span is an inclusive integer range.
type span struct{ lo, hi int }

// extraRanges are the dataset ranges for each domain-specific feature.
var extraRanges = map[string]span{
	"project_score":    {20, 100},
	"coding_skills":    {1, 10},
	"clinical_score":   {40, 100},
	"hospital_hours":   {0, 40},
	"audit_hours":      {0, 500},
	"law_score":        {20, 100},
	"internship_score": {1, 10},
	"case_studies":     {0, 50},
	"homework_rate":    {0, 100},
	"parent_meetings":  {0, 5},
}

// profileRanges bound the domain-specific features of sample upload rows.
var profileRanges = map[RiskType]map[string]span{
	RiskHigh: {
		"project_score": {20, 50}, "coding_skills": {1, 3},
		"clinical_score": {40, 60}, "hospital_hours": {0, 5},
		"audit_hours": {0, 50}, "law_score": {20, 45},
		"internship_score": {1, 3}, "case_studies": {0, 5},
		"homework_rate": {20, 50}, "parent_meetings": {0, 1},
	},
	RiskModerate: {
		"project_score": {51, 75}, "coding_skills": {4, 6},
		"clinical_score": {61, 79}, "hospital_hours": {10, 20},
		"audit_hours": {100, 250}, "law_score": {50, 70},
		"internship_score": {4, 7}, "case_studies": {10, 25},
		"homework_rate": {55, 80}, "parent_meetings": {2, 3},
	},
	RiskSafe: {
		"project_score": {80, 100}, "coding_skills": {7, 10},
		"clinical_score": {85, 100}, "hospital_hours": {25, 40},
		"audit_hours": {300, 500}, "law_score": {75, 100},
		"internship_score": {8, 10}, "case_studies": {30, 50},
		"homework_rate": {85, 100}, "parent_meetings": {4, 5},
	},
}

var (
	firstNames = []string{"Aarav", "Diya", "Ishaan", "Ananya", "Kabir", "Meera", "Rohan", "Saanvi", "Vikram", "Priya", "Arjun", "Nisha", "Karan", "Tara", "Dev", "Lakshmi"}
	lastNames  = []string{"Sharma", "Iyer", "Patel", "Reddy", "Nair", "Gupta", "Singh", "Menon", "Das", "Kulkarni", "Bose", "Rao"}
	incomes    = []string{"High", "Medium", "Low"}
	yesNo      = []string{"Yes", "No"}
)

// Generator produces deterministic synthetic data for a seed.
type Generator struct {
	rng *rand.Rand
}

// New returns a Generator seeded with seed.
func New(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Dataset returns a labelled training table for d: a header row of
// student_id, the domain's features and dropout_status, followed by n rows.
func (g *Generator) Dataset(d domain.Domain, n int) [][]string {
	names := domain.FeaturesFor(d)
	header := append([]string{features.ColStudentID}, names...)
	header = append(header, features.ColDropoutStatus)

	rows := make([][]string, 0, n+1)
	rows = append(rows, header)
	for i := range n {
		att := clip(g.rng.NormFloat64()*15+75, 0, 100)
		cgpa := clip(g.rng.NormFloat64()*1.5+6.5, 0, 10)
		failures := g.failures()

		row := make([]string, 0, len(header))
		row = append(row, fmt.Sprintf("STU_%06d", i))
		for _, f := range names {
			switch f {
			case features.ColAttendance:
				row = append(row, ftoa(att, 1))
			case features.ColCGPA:
				row = append(row, ftoa(cgpa, 2))
			case features.ColStudyHours:
				row = append(row, strconv.Itoa(g.between(span{1, 9})))
			case features.ColPastFailures:
				row = append(row, strconv.Itoa(failures))
			default:
				row = append(row, strconv.Itoa(g.between(rangeFor(f, extraRanges))))
			}
		}
		row = append(row, strconv.Itoa(g.dropout(att, cgpa, failures)))
		rows = append(rows, row)
	}
	return rows
}

// failures draws past failures with weights 0.7/0.2/0.08/0.02 for 0..3.
func (g *Generator) failures() int {
	p := g.rng.Float64()
	switch {
	case p < 0.70:
		return 0
	case p < 0.90:
		return 1
	case p < 0.98:
		return 2
	default:
		return 3
	}
}

// dropout applies the noisy labelling rule: low attendance and a low grade
// each add 1, any past failure adds 0.5, and the noisy sum must exceed 0.8.
func (g *Generator) dropout(att, cgpa float64, failures int) int {
	risk := 0.0
	if att < 65 {
		risk++
	}
	if cgpa*10 < 45 {
		risk++
	}
	if failures > 0 {
		risk += 0.5
	}
	if risk+g.rng.NormFloat64()*0.2 > 0.8 {
		return 1
	}
	return 0
}

// Batch returns a sample upload for d with n rows split evenly across the
// high, moderate and safe profiles in shuffled order.
func (g *Generator) Batch(d domain.Domain, n int) [][]string {
	names := domain.FeaturesFor(d)
	header := []string{features.ColStudentID, features.ColName}
	header = append(header, names...)
	header = append(header, features.ColFamilyIncome, features.ColScholarship)

	targets := make([]RiskType, 0, n)
	for i := range n {
		switch {
		case i < n/3:
			targets = append(targets, RiskHigh)
		case i < 2*(n/3):
			targets = append(targets, RiskModerate)
		default:
			targets = append(targets, RiskSafe)
		}
	}
	g.rng.Shuffle(len(targets), func(i, j int) { targets[i], targets[j] = targets[j], targets[i] })

	rows := make([][]string, 0, n+1)
	rows = append(rows, header)
	for _, rt := range targets {
		rows = append(rows, g.profileRow(rt, names))
	}
	return rows
}

func (g *Generator) profileRow(rt RiskType, names []string) []string {
	var att, cgpa float64
	var hours, failures int
	switch rt {
	case RiskHigh:
		att, cgpa = g.uniform(40, 65), g.uniform(3.0, 5.5)
		hours, failures = g.between(span{0, 2}), g.between(span{2, 4})
	case RiskModerate:
		att, cgpa = g.uniform(66, 84), g.uniform(5.6, 7.5)
		hours, failures = g.between(span{3, 5}), g.between(span{0, 1})
	default:
		att, cgpa = g.uniform(85, 100), g.uniform(7.6, 10.0)
		hours, failures = g.between(span{6, 10}), 0
	}

	row := []string{
		fmt.Sprintf("STU_%06d", 100000+g.rng.IntN(900000)),
		g.name(),
	}
	for _, f := range names {
		switch f {
		case features.ColAttendance:
			row = append(row, ftoa(att, 1))
		case features.ColCGPA:
			row = append(row, ftoa(cgpa, 2))
		case features.ColStudyHours:
			row = append(row, strconv.Itoa(hours))
		case features.ColPastFailures:
			row = append(row, strconv.Itoa(failures))
		default:
			row = append(row, strconv.Itoa(g.between(rangeFor(f, profileRanges[rt]))))
		}
	}
	return append(row, pick(g.rng, incomes), pick(g.rng, yesNo))
}

func (g *Generator) name() string {
	return pick(g.rng, firstNames) + " " + pick(g.rng, lastNames)
}

func (g *Generator) between(s span) int {
	return s.lo + g.rng.IntN(s.hi-s.lo+1)
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// rangeFor returns the range for an extra feature; unlisted features get a
// 0-100 score range.
func rangeFor(f string, ranges map[string]span) span {
	if s, ok := ranges[f]; ok {
		return s
	}
	return span{0, 100}
}

func pick(rng *rand.Rand, from []string) string {
	return from[rng.IntN(len(from))]
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func ftoa(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// WriteCSV writes rows to w.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return eris.Wrap(err, "datagen: write CSV")
	}
	return nil
}

// WriteFile writes rows as CSV to path, creating parent directories.
func WriteFile(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "datagen: create dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "datagen: create %s", path)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "datagen: close %s", path)
}

// DatasetPath is where the trainer looks for d's dataset under dir.
func DatasetPath(dir string, d domain.Domain) string {
	return filepath.Join(dir, d.String()+".csv")
}

// BatchPath is the sample upload file name for d under dir.
func BatchPath(dir string, d domain.Domain) string {
	return filepath.Join(dir, "batch_"+d.String()+".csv")
}
