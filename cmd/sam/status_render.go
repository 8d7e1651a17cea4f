package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"sam/internal/config"
	"sam/internal/journal"
)

// health grades a status row; it picks the tag and the color.
type health int

const (
	healthInfo health = iota
	healthGood
	healthDegraded
	healthBad
)

func (h health) tag() string {
	switch h {
	case healthGood:
		return "[OK]"
	case healthDegraded:
		return "[WARN]"
	case healthBad:
		return "[FAIL]"
	default:
		return "[--]"
	}
}

func (h health) color() text.Colors {
	switch h {
	case healthGood:
		return text.Colors{text.FgGreen}
	case healthDegraded:
		return text.Colors{text.FgYellow}
	case healthBad:
		return text.Colors{text.FgRed, text.Bold}
	default:
		return nil
	}
}

type statusRow struct {
	label  string
	value  string
	health health
}

type statusSection struct {
	title string
	rows  []statusRow
}

// statusSections lays out a report as the daemon, session, journal, and
// readiness blocks printed by `sam status`.
func statusSections(report statusReport, cfg *config.Config) []statusSection {
	daemon := statusSection{title: "Daemon"}
	if report.Running {
		daemon.rows = append(daemon.rows, statusRow{"Daemon", "running", healthGood})
	} else {
		daemon.rows = append(daemon.rows, statusRow{"Daemon", "not running", healthDegraded})
	}
	daemon.rows = append(daemon.rows, statusRow{"Work directory", cfg.Paths.WorkDir, healthInfo})
	if report.ConfigPath != "" {
		daemon.rows = append(daemon.rows, statusRow{"Config", report.ConfigPath, healthInfo})
	}

	last := statusRow{label: "Last session", value: "none"}
	if report.LastSession != nil {
		last.value = fmt.Sprintf("%s (%s)", report.LastSession.SessionID, report.LastSession.SessionPath)
	}
	sections := []statusSection{daemon, {title: "Session", rows: []statusRow{last}}}

	if report.JobCounts != nil {
		jobs := statusSection{title: "Jobs", rows: []statusRow{{"Journal", formatCounts(report.JobCounts), healthInfo}}}
		if failed := report.JobCounts[string(journal.StatusFailed)]; failed > 0 {
			jobs.rows = append(jobs.rows, statusRow{"Failures",
				fmt.Sprintf("%d failed (see `sam jobs --status failed`)", failed), healthDegraded})
		}
		sections = append(sections, jobs)
	}

	checks := statusSection{title: "Checks"}
	for _, check := range report.Checks {
		h := healthGood
		if !check.Passed {
			h = healthBad
		}
		checks.rows = append(checks.rows, statusRow{check.Name, check.Detail, h})
	}
	return append(sections, checks)
}

func renderStatus(w io.Writer, sections []statusSection, colorize bool) {
	width := 0
	for _, section := range sections {
		for _, row := range section.rows {
			width = max(width, len(row.label)+1)
		}
	}

	var b strings.Builder
	for i, section := range sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		title := "== " + section.title + " =="
		if colorize {
			title = text.Colors{text.FgHiBlue, text.Bold}.Sprint(title)
		}
		b.WriteString(title + "\n")
		for _, row := range section.rows {
			line := fmt.Sprintf("  %-*s %s", width, row.label+":", row.health.tag())
			if row.value != "" {
				line += " " + row.value
			}
			if colors := row.health.color(); colorize && colors != nil {
				line = colors.Sprint(line)
			}
			b.WriteString(line + "\n")
		}
	}
	fmt.Fprint(w, b.String())
}

func shouldColorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
