package app

import (
	"edgeport/internal/data/history"
	"edgeport/internal/shared/util"
	"log/slog"
	"time"
)

// recordHistory persists the run when a history store is configured.
// Failures are logged; they never fail the run.
func (a *App) recordHistory(report *Report, results []fileResult) {
	if a.history == nil {
		return
	}

	run := history.Run{
		ID:          report.RunID,
		StartedAt:   report.StartedAt,
		Duration:    time.Duration(report.DurationMS) * time.Millisecond,
		SourceRoot:  report.SourceRoot,
		OutputDir:   report.OutputDir,
		DryRun:      report.DryRun,
		Functions:   report.Totals.Functions,
		Transformed: report.Totals.Transformed,
		Unchanged:   report.Totals.Unchanged,
		Failed:      report.Totals.Failed,
		Copied:      report.Totals.Copied,
		Warnings:    len(report.Warnings),
	}

	root := a.Config.FunctionsRoot()
	files := make([]history.FileResult, 0, len(results))
	for _, r := range results {
		fr := history.FileResult{
			SourcePath: util.RelSlash(root, r.job.source),
			Function:   r.job.function,
			Outcome:    string(r.outcome),
		}
		if r.err != nil {
			fr.Error = r.err.Error()
		}
		files = append(files, fr)
	}

	if err := a.history.RecordRun(run, files); err != nil {
		slog.Warn("failed to record run history", "run_id", run.ID, "error", err)
	}
}

// RecentRuns lists up to limit recorded runs, newest first.
func (a *App) RecentRuns(limit int) ([]history.Run, error) {
	if a.history == nil {
		return nil, nil
	}
	return a.history.ListRuns(limit)
}
