package logging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// RunLogPattern matches the per-run log files written by NewFromConfig.
const RunLogPattern = "sam-*.log"

// RunLogName returns the file name NewFromConfig uses for runID.
func RunLogName(runID string) string {
	if runID == "" {
		return "sam.log"
	}
	return "sam-" + runID + ".log"
}

// PruneRunLogs deletes run logs in dir last modified more than retentionDays
// ago and returns how many were removed. current is the log of the running
// process and is never touched. retentionDays <= 0 keeps everything.
// Removal failures are logged and counted in the returned error; pruning
// continues past them.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, current string, now time.Time) (int, error) {
	if retentionDays <= 0 || dir == "" {
		return 0, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, RunLogPattern))
	if err != nil {
		return 0, err
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	var (
		removed int
		failed  []error
	)
	for _, path := range matches {
		if current != "" && filepath.Clean(path) == filepath.Clean(current) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "run log not pruned", "log_prune_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of log_dir"),
			)
			failed = append(failed, err)
			continue
		}
		removed++
	}
	if len(failed) > 0 {
		return removed, fmt.Errorf("prune run logs: %w", errors.Join(failed...))
	}
	return removed, nil
}
