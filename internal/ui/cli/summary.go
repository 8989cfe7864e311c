package cli

import (
	"edgeport/internal/core/app"
	"edgeport/internal/data/history"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	failureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// renderSummary formats a run report for the terminal.
func renderSummary(r *app.Report) string {
	var b strings.Builder

	title := "edgeport conversion"
	if r.DryRun {
		title += " (dry run)"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf("run %s in %s", r.RunID, time.Duration(r.DurationMS)*time.Millisecond)))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Functions:   %d\n", r.Totals.Functions)
	fmt.Fprintf(&b, "Files:       %d\n", r.Totals.Files)
	fmt.Fprintf(&b, "Transformed: %s\n", successStyle.Render(fmt.Sprint(r.Totals.Transformed)))
	fmt.Fprintf(&b, "Unchanged:   %d\n", r.Totals.Unchanged)
	fmt.Fprintf(&b, "Copied:      %d\n", r.Totals.Copied)
	failed := fmt.Sprint(r.Totals.Failed)
	if r.Totals.Failed > 0 {
		failed = failureStyle.Render(failed)
	}
	fmt.Fprintf(&b, "Failed:      %s\n", failed)

	if len(r.Dependencies) > 0 {
		fmt.Fprintf(&b, "\nDependencies (%d): %s\n", len(r.Dependencies), strings.Join(r.Dependencies, ", "))
	}
	if len(r.EnvVars) > 0 {
		fmt.Fprintf(&b, "Env vars (%d): %s\n", len(r.EnvVars), strings.Join(r.EnvVars, ", "))
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "\n%s\n", warningStyle.Render(fmt.Sprintf("Warnings (%d)", len(r.Warnings))))
		for _, w := range r.Warnings {
			location := w.Path
			if location == "" {
				location = w.Function
			}
			fmt.Fprintf(&b, "- [%s] %s: %s\n", w.Code, location, w.Message)
		}
	}

	if !r.DryRun {
		fmt.Fprintf(&b, "\nOutput written to %s\n", r.OutputDir)
	}
	return b.String()
}

// renderHistory formats recorded runs, newest first.
func renderHistory(runs []history.Run) string {
	if len(runs) == 0 {
		return statusStyle.Render("No conversion runs recorded yet.") + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Recent runs (%d)", len(runs))))
	b.WriteString("\n")
	for _, run := range runs {
		mode := ""
		if run.DryRun {
			mode = " dry-run"
		}
		status := successStyle.Render("ok")
		if run.Failed > 0 {
			status = failureStyle.Render(fmt.Sprintf("%d failed", run.Failed))
		}
		fmt.Fprintf(&b, "%s  %s%s  functions=%d transformed=%d unchanged=%d copied=%d warnings=%d  %s\n",
			run.StartedAt.Local().Format(time.DateTime),
			run.ID,
			mode,
			run.Functions,
			run.Transformed,
			run.Unchanged,
			run.Copied,
			run.Warnings,
			status,
		)
	}
	return b.String()
}
