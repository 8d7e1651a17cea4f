package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"sam/internal/config"
	"sam/internal/journal"
	"sam/internal/preflight"
	"sam/internal/session"
)

type statusReport struct {
	ConfigPath  string             `json:"config_path"`
	Running     bool               `json:"running"`
	LockPath    string             `json:"lock_path"`
	LastSession *session.Pointer   `json:"last_session,omitempty"`
	JobCounts   map[string]int     `json:"job_counts,omitempty"`
	Checks      []preflight.Result `json:"checks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, session, journal, and readiness status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report, err := collectStatus(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			report.ConfigPath = ctx.configPath
			if asJSON {
				return writeJSON(cmd, report)
			}
			renderStatus(cmd.OutOrStdout(), statusSections(report, cfg), shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	return cmd
}

func collectStatus(ctx context.Context, cfg *config.Config) (statusReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	report := statusReport{LockPath: cfg.LockPath()}

	running, err := daemonRunning(cfg.LockPath())
	if err != nil {
		return report, err
	}
	report.Running = running

	store := session.NewStore(cfg.Paths.WorkDir, cfg.Paths.PointerFile, nil, nil)
	if ptr, err := store.ReadPointer(); err == nil && ptr.SessionID != "" {
		report.LastSession = &ptr
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return report, err
	}

	if cfg.Journal.Enabled {
		if _, err := os.Stat(cfg.Journal.Path); err == nil {
			counts, err := journalCounts(ctx, cfg.Journal.Path)
			if err != nil {
				return report, err
			}
			report.JobCounts = counts
		}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	report.Checks = preflight.RunAll(checkCtx, cfg)
	return report, nil
}

// daemonRunning probes the work directory lock without holding it.
func daemonRunning(lockPath string) (bool, error) {
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe lock: %w", err)
	}
	if ok {
		_ = lock.Unlock()
		return false, nil
	}
	return true, nil
}

func journalCounts(ctx context.Context, path string) (map[string]int, error) {
	store, err := journal.Open(path, nil)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(stats))
	for status, n := range stats {
		counts[string(status)] = n
	}
	return counts, nil
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "no jobs recorded"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d %s", counts[k], k))
	}
	return strings.Join(parts, ", ")
}
