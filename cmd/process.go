package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lambethcyclists/mailroom/internal/config"
	"github.com/lambethcyclists/mailroom/internal/instrumentation"
	"github.com/lambethcyclists/mailroom/internal/logging"
)

func newProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run one email processing cycle and exit",
		Long: `Poll the watched Gmail label once, process every new message into
Notion, and exit. Useful for cron-style deployments and manual runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(func(ctx context.Context, svc *service) error {
				return svc.pipeline.Run(ctx)
			})
		},
	}
}

// runOnce wires the service and executes a single cycle.
func runOnce(cycle func(ctx context.Context, svc *service) error) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel, cfg.LogText)

	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
	if err != nil {
		return err
	}
	defer func() {
		_ = provider.Shutdown(ctx)
	}()

	svc, err := buildService(ctx, cfg, provider.Metrics())
	if err != nil {
		return err
	}
	return cycle(ctx, svc)
}
