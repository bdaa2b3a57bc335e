package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edupulse/edupulse/internal/domain"
	"github.com/edupulse/edupulse/internal/model"
	"github.com/edupulse/edupulse/internal/pipeline"
)

var scoreCmd = &cobra.Command{
	Use:   "score <file>",
	Short: "Score a student table (CSV or XLSX) offline",
	Long: `Score every row of a student upload with the domain's trained model, or the
rule heuristic when no model is available, and print the risk profiles.

Examples:
  # Score an engineering batch and print a table
  score --domain engineering batch_engineering.csv

  # Write JSON and persist the profiles to the configured store
  score --domain med --format json --output report.json --save batch_med.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("domain", "", "academic domain (engineering, med, ca, mba, school)")
	f.String("format", "table", "output format: table, json or csv")
	f.String("output", "", "output file path (default: stdout)")
	f.Bool("save", false, "persist profiles to the configured store")
	_ = scoreCmd.MarkFlagRequired("domain")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rawDomain, _ := cmd.Flags().GetString("domain")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	save, _ := cmd.Flags().GetBool("save")

	if format != "table" && format != "json" && format != "csv" {
		return eris.Errorf("score: --format must be table, json or csv (got %q)", format)
	}
	d, known := domain.Parse(rawDomain)
	if !known {
		zap.L().Warn("score: unknown domain, using base features and rules", zap.String("domain", d.String()))
	}
	if err := cfg.Validate("score"); err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return eris.Wrapf(err, "score: read %s", args[0])
	}

	env, err := initApp(ctx, save)
	if err != nil {
		return err
	}
	defer env.Close()

	report, err := env.Processor.ProcessUpload(ctx, pipeline.Upload{
		Filename: filepath.Base(args[0]),
		Data:     data,
	}, d)
	if err != nil {
		return eris.Wrapf(err, "score: %s", args[0])
	}

	return writeReport(report, format, outputPath)
}

func writeReport(report *model.BatchReport, format, outputPath string) error {
	var w io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "score: create output file %s", outputPath)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(report), "score: write JSON")
	case "csv":
		return writeReportCSV(w, report)
	case "table":
		return writeReportTable(w, report)
	default:
		return eris.Errorf("score: unsupported format %q", format)
	}
}

func writeReportCSV(w io.Writer, report *model.BatchReport) error {
	cw := csv.NewWriter(w)

	header := []string{"student_id", "name", "risk_score", "risk_label", "cgpa", "attendance", "financial_flag", "study_hours", "top_risk_factor", "score_source"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "score: write CSV header")
	}
	for _, p := range report.Data {
		row := []string{
			p.StudentID,
			p.Name,
			strconv.Itoa(p.RiskScore),
			string(p.RiskLabel),
			strconv.FormatFloat(p.CGPA, 'f', -1, 64),
			strconv.FormatFloat(p.Attendance, 'f', -1, 64),
			strconv.FormatBool(p.FinancialFlag),
			strconv.FormatFloat(p.StudyHours, 'f', -1, 64),
			p.TopRiskFactor,
			string(p.ScoreSource),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "score: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "score: flush CSV")
}

func writeReportTable(w io.Writer, report *model.BatchReport) error {
	header := fmt.Sprintf("%-12s %-24s %5s %-9s %6s %6s %-5s %-20s\n",
		"Student", "Name", "Score", "Label", "CGPA", "Att%", "Fin", "Top Factor")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "score: write table header")
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", 96)); err != nil {
		return eris.Wrap(err, "score: write table separator")
	}

	for _, p := range report.Data {
		name := p.Name
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		fin := ""
		if p.FinancialFlag {
			fin = "yes"
		}
		line := fmt.Sprintf("%-12s %-24s %5d %-9s %6.2f %6.1f %-5s %-20s\n",
			p.StudentID, name, p.RiskScore, p.RiskLabel, p.CGPA, p.Attendance, fin, p.TopRiskFactor)
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "score: write table row")
		}
	}

	_, err := fmt.Fprintf(w, "\nTotal: %d  At risk: %d  Domain: %s\n", report.TotalStudents, report.AtRiskCount, report.Domain)
	return eris.Wrap(err, "score: write summary")
}
