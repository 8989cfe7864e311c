package app

import (
	"context"
	"edgeport/internal/core/config"
	"edgeport/internal/core/watcher"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// StartWatcher watches the functions root and reconverts on every debounced
// batch of changes. onRun, when set, receives each rerun's report.
func (a *App) StartWatcher(ctx context.Context, onRun func(*Report, error)) error {
	cfg := a.Settings()
	w, err := watcher.NewWatcher(
		cfg.Watch.Debounce,
		cfg.Exclude.Dirs,
		cfg.Exclude.Files,
		func(paths []string) {
			report, err := a.HandleChanges(ctx, paths)
			if onRun != nil {
				onRun(report, err)
			}
		},
	)
	if err != nil {
		return err
	}
	a.runMu.Lock()
	a.activeWatcher = w
	a.runMu.Unlock()
	return w.Watch([]string{cfg.FunctionsRoot()})
}

// HandleChanges removes outputs of deleted sources and reruns the
// conversion. Unchanged files are served from the content cache.
func (a *App) HandleChanges(ctx context.Context, paths []string) (*Report, error) {
	slog.Info("changes detected", "count", len(paths))
	cfg := a.Settings()
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil || !os.IsNotExist(err) {
			continue
		}
		out, ok := outputForSource(&cfg, path)
		if !ok {
			continue
		}
		if cfg.Convert.DryRun {
			slog.Info("dry run: would remove stale output", "path", out)
			continue
		}
		if err := os.RemoveAll(out); err != nil {
			slog.Warn("failed to remove stale output", "path", out, "error", err)
		} else {
			slog.Debug("removed stale output", "path", out)
		}
	}

	report, err := a.Run(ctx)
	if err != nil {
		slog.Error("reconversion failed", "error", err)
		return nil, err
	}
	return report, nil
}

// outputForSource maps a path under the functions root to its output path
// without requiring the source to exist. A function or shared directory maps
// to its whole output directory.
func outputForSource(cfg *config.Config, path string) (string, bool) {
	rel, err := filepath.Rel(cfg.FunctionsRoot(), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	dir, rest, _ := strings.Cut(filepath.ToSlash(rel), "/")
	if dir == cfg.Convert.SharedDir {
		return filepath.Join(cfg.Paths.OutputDir, "src", "shared", filepath.FromSlash(rest)), true
	}
	if strings.HasPrefix(dir, "_") || strings.HasPrefix(dir, ".") {
		return "", false
	}
	if rest == "" && filepath.Ext(dir) != "" {
		// top-level files are not functions
		return "", false
	}
	return filepath.Join(cfg.Paths.OutputDir, "src", "functions", dir, filepath.FromSlash(rest)), true
}
