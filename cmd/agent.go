package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edupulse/edupulse/internal/agent"
	"github.com/edupulse/edupulse/internal/resilience"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Counselor call agent tools",
}

var agentSimulateCmd = &cobra.Command{
	Use:   "simulate <student_id>...",
	Short: "Place simulated calls and post their summaries to the webhook",
	Long: `Places one simulated counselor call per student id and posts each summary to
the summary webhook (agent.webhook_url, e.g.
http://localhost:8000/api/v1/agent/webhook/summary). Delivery is retried on
transient failures.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAgentSimulate,
}

func init() {
	agentSimulateCmd.Flags().String("webhook", "", "summary webhook URL (overrides agent.webhook_url)")
	agentCmd.AddCommand(agentSimulateCmd)
	rootCmd.AddCommand(agentCmd)
}

func runAgentSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	url, _ := cmd.Flags().GetString("webhook")
	if url == "" {
		url = cfg.Agent.WebhookURL
	}
	if url == "" {
		return eris.New("agent: webhook URL is required (--webhook or EDUPULSE_AGENT_WEBHOOK_URL)")
	}

	policy := resilience.NewPolicy(cfg.Agent.RetryAttempts, cfg.Agent.RetryBackoffMS)
	sim := agent.NewSimulator(cfg.Agent, agent.NewWebhookNotifier(url, nil, policy))
	defer sim.Close()

	failed := 0
	for _, id := range args {
		summary, err := sim.Call(ctx, id, uuid.NewString())
		if err != nil {
			failed++
			zap.L().Error("agent: call failed", zap.String("student_id", id), zap.Error(err))
			continue
		}
		fmt.Printf("%-12s %-9s %s\n", id, summary.Sentiment, summary.ActionItem)
	}
	if failed > 0 {
		return eris.Errorf("agent: %d of %d calls failed", failed, len(args))
	}
	return nil
}
