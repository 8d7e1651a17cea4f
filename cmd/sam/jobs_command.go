package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sam/internal/journal"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var (
		sessionID string
		status    string
		limit     int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Show recent jobs from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return errors.New("journal is disabled (journal.enabled = false)")
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.Journal.Path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}

			store, err := journal.Open(cfg.Journal.Path, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.List(cmd.Context(), journal.Filter{
				SessionID: strings.TrimSpace(sessionID),
				Status:    journal.Status(strings.ToLower(strings.TrimSpace(status))),
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, jobs)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.SessionID,
					strconv.FormatUint(job.Seq, 10),
					job.Kind,
					string(job.Status),
					formatTime(job.QueuedAt),
					formatDuration(job.Duration),
					job.Error,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Session", "Seq", "Kind", "Status", "Queued", "Took", "Error"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Only show jobs for this session")
	cmd.Flags().StringVar(&status, "status", "", "Only show jobs with this status (queued, running, succeeded, failed, interrupted)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
