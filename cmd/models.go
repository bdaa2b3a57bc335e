package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show the load state of every domain model",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Models.Preload(ctx); err != nil {
			return err
		}
		fmt.Printf("%-12s %-8s %-20s %8s  %s\n", "Domain", "State", "Algorithm", "Acc", "Path")
		for _, s := range env.Models.Status() {
			fmt.Printf("%-12s %-8s %-20s %8.3f  %s\n", s.Domain, s.State, s.Algorithm, s.Accuracy, s.Path)
			if s.Error != "" {
				fmt.Printf("%12s %s\n", "", s.Error)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
