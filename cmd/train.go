package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edupulse/edupulse/internal/domain"
	"github.com/edupulse/edupulse/internal/trainer"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train one dropout classifier per domain",
	Long: `Reads <train.dataset_dir>/<domain>.csv for each domain, grid-searches the
model zoo with k-fold cross validation and saves the most accurate pipeline to
<models.dir>/model_<domain>.json.`,
	RunE: runTrain,
}

func init() {
	f := trainCmd.Flags()
	f.StringSlice("domains", nil, "domains to train (default: all)")
	f.String("grid", "", "grid YAML file (overrides train.grid_file)")

	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("train"); err != nil {
		return err
	}

	names, _ := cmd.Flags().GetStringSlice("domains")
	domains, err := parseDomains(names)
	if err != nil {
		return err
	}

	gridPath, _ := cmd.Flags().GetString("grid")
	if gridPath == "" {
		gridPath = cfg.Train.GridFile
	}
	grid, err := trainer.LoadGrid(gridPath)
	if err != nil {
		return err
	}

	zap.L().Info("training started",
		zap.Int("domains", len(domains)),
		zap.String("dataset_dir", cfg.Train.DatasetDir),
		zap.String("models_dir", cfg.Models.Dir),
	)

	results := trainer.New(cfg.Train, cfg.Models.Dir, grid).TrainAll(ctx, domains)

	failed := 0
	fmt.Printf("%-12s %-20s %8s %8s %8s\n", "Domain", "Algorithm", "Acc", "F1", "CV")
	for _, r := range results {
		if r.Error != "" {
			failed++
			fmt.Printf("%-12s FAILED: %s\n", r.Domain, r.Error)
			continue
		}
		fmt.Printf("%-12s %-20s %8.3f %8.3f %8.3f\n", r.Domain, r.Algorithm, r.Metrics.Accuracy, r.Metrics.F1, r.Metrics.CVAccuracy)
	}
	if failed == len(results) && failed > 0 {
		return eris.Errorf("train: all %d domains failed", failed)
	}
	return nil
}

// parseDomains resolves domain names; empty means every known domain.
func parseDomains(names []string) ([]domain.Domain, error) {
	if len(names) == 0 {
		return domain.All(), nil
	}
	out := make([]domain.Domain, 0, len(names))
	for _, n := range names {
		d, ok := domain.Parse(n)
		if !ok {
			return nil, eris.Errorf("unknown domain %q", n)
		}
		out = append(out, d)
	}
	return out, nil
}
