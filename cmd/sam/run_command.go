package main

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sam/internal/daemon"
	"sam/internal/logging"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to the chat bridge and process messages until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Bridge.URL) == "" {
				return errors.New("bridge.url is not configured (set it in the config file or SAM_BRIDGE_URL)")
			}

			runID := time.Now().UTC().Format("20060102T150405") + "-" + uuid.NewString()[:8]
			logger, logPath, err := logging.NewFromConfig(cfg, runID)
			if err != nil {
				return err
			}
			// Removal failures are logged by PruneRunLogs.
			pruned, _ := logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath, time.Now())

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			d, err := daemon.New(cfg, daemon.Options{Logger: logger})
			if err != nil {
				return err
			}
			defer d.Close()

			logger.Info("sam starting",
				logging.String("config", ctx.configPath),
				logging.String("log_file", logPath),
				logging.String("run_id", runID),
				logging.Int("logs_pruned", pruned),
			)
			if err := d.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
