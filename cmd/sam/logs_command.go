package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sam/internal/dispatch"
	"sam/internal/logging"
	"sam/internal/logs"
	"sam/internal/textutil"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines     int
		follow    bool
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the newest run log, or a session's chat log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var path string
			if name := strings.TrimSpace(sessionID); name != "" {
				path = filepath.Join(cfg.Paths.WorkDir, textutil.SanitizeID(name), dispatch.ChatLogFileName)
			} else {
				path, err = logs.Latest(cfg.Paths.LogDir, logging.RunLogPattern)
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("no run logs in %s", cfg.Paths.LogDir)
				}
				if err != nil {
					return err
				}
			}

			tail, offset, err := logs.Last(path, lines)
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%s does not exist", path)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}

			followCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return logs.Follow(followCtx, path, offset, 250*time.Millisecond, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing appended lines until interrupted")
	cmd.Flags().StringVar(&sessionID, "session", "", "Show this session's chat log instead of the run log")
	return cmd
}
