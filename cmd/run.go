package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lambethcyclists/mailroom/internal/config"
	"github.com/lambethcyclists/mailroom/internal/instrumentation"
	"github.com/lambethcyclists/mailroom/internal/logging"
	"github.com/lambethcyclists/mailroom/internal/pipeline"
	"github.com/lambethcyclists/mailroom/internal/runner"
	"github.com/lambethcyclists/mailroom/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the email and meeting loops until interrupted",
		Long: `Start the long-running service: polls the watched Gmail label on one
timer and checks upcoming meetings on another, serving health and
metrics endpoints on the ops port.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService()
		},
	}
}

func runService() error {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogText)
	logger.Info("starting mailroom", slog.String("version", version))

	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	// The clients outlive the signal context: an in-flight cycle keeps
	// draining after SIGTERM and may still need a token refresh.
	health := server.NewHealthChecker()
	svc, err := buildService(context.WithoutCancel(ctx), cfg, provider.Metrics(), pipeline.WithHealth(health))
	if err != nil {
		return err
	}

	ops := server.NewOpsServer(cfg.OpsAddr, health)
	go func() {
		if err := ops.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", logging.Err(err))
		}
	}()
	logger.Info("ops server listening", slog.String("addr", ops.Addr()))

	r := runner.New([]runner.Loop{
		{Name: "email", Interval: cfg.Poll.EmailInterval, Run: svc.pipeline.Run},
		{Name: "meetings", Interval: cfg.Poll.MeetingInterval, Run: svc.runMeetings},
	})
	r.Start(ctx)

	// Signal received and both loops drained.
	health.SetShuttingDown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ops server shutdown failed", logging.Err(err))
	}
	logger.Info("mailroom stopped")
	return nil
}
