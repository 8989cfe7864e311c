package app

import (
	"edgeport/internal/core/config"
	"edgeport/internal/core/ports"
	"edgeport/internal/core/watcher"
	"edgeport/internal/data/history"
	"edgeport/internal/engine/parser"
	"edgeport/internal/engine/transform"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gobwas/glob"
)

// App converts a tree of edge functions into the target layout.
type App struct {
	Config *config.Config

	engine  ports.Transformer
	cache   *resultCache
	history ports.HistoryStore

	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob

	runMu         sync.Mutex
	activeWatcher *watcher.Watcher
}

// New builds an App from cfg. The sqlite history store is opened only when
// history is enabled.
func New(cfg *config.Config) (*App, error) {
	engine := transform.NewEngine(parser.NewGrammarLoader())
	a, err := NewWithTransformer(cfg, engine)
	if err != nil {
		return nil, err
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, err
		}
		a.history = store
	}
	return a, nil
}

// NewWithTransformer builds an App around a caller-supplied transformer and
// without a history store.
func NewWithTransformer(cfg *config.Config, engine ports.Transformer) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	excludeDirs, err := compileGlobs(cfg.Exclude.Dirs, "exclude dir")
	if err != nil {
		return nil, err
	}
	excludeFiles, err := compileGlobs(cfg.Exclude.Files, "exclude file")
	if err != nil {
		return nil, err
	}
	cache, err := newResultCache(cfg.Convert.CacheSize)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:       cfg,
		engine:       engine,
		cache:        cache,
		excludeDirs:  excludeDirs,
		excludeFiles: excludeFiles,
	}, nil
}

// SetHistory replaces the history store. A nil store disables recording.
func (a *App) SetHistory(store ports.HistoryStore) {
	a.history = store
}

// History returns the configured history store, or nil.
func (a *App) History() ports.HistoryStore {
	return a.history
}

func (a *App) Close() error {
	var firstErr error
	a.runMu.Lock()
	w := a.activeWatcher
	a.activeWatcher = nil
	a.runMu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			firstErr = err
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		slog.Warn("app shutdown incomplete", "error", firstErr)
	}
	return firstErr
}

func compileGlobs(patterns []string, label string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", label, p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Settings returns a copy of the current configuration. Callers outside a
// run read settings through it so a concurrent Reload is never observed
// half applied.
func (a *App) Settings() config.Config {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return *a.Config
}

// Reload applies a freshly loaded configuration between runs. Conversion,
// exclusion, watch and output settings take effect on the next run. Paths,
// dry-run mode, history and observability are fixed for the process.
func (a *App) Reload(next *config.Config) error {
	excludeDirs, err := compileGlobs(next.Exclude.Dirs, "exclude dir")
	if err != nil {
		return err
	}
	excludeFiles, err := compileGlobs(next.Exclude.Files, "exclude file")
	if err != nil {
		return err
	}

	a.runMu.Lock()
	defer a.runMu.Unlock()

	if next.Paths != a.Config.Paths {
		slog.Warn("path changes require a restart; keeping current paths")
	}
	dryRun := a.Config.Convert.DryRun
	a.Config.Convert = next.Convert
	a.Config.Convert.DryRun = dryRun
	a.Config.Exclude = next.Exclude
	a.Config.Watch = next.Watch
	a.Config.Output = next.Output
	a.excludeDirs = excludeDirs
	a.excludeFiles = excludeFiles
	if a.activeWatcher != nil {
		a.activeWatcher.SetDebounce(next.Watch.Debounce)
	}
	return nil
}
