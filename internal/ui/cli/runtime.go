package cli

import (
	"context"
	coreapp "edgeport/internal/core/app"
	"edgeport/internal/core/config"
	"edgeport/internal/shared/observability"
	"edgeport/internal/ui/report"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

// Run is the edgeport entry point. It returns the process exit code.
func Run(args []string) int {
	return run(args, os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "edgeport v%s\n", versionString)
		return 0
	}

	configureLogging(stderr, opts.verbose)

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		slog.Error("failed to load config", "path", opts.configPath, "error", err)
		return 1
	}

	if err := applyModeOptions(&opts, cfg); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker := newRunTracker()
	shutdownObservability := startObservability(ctx, cfg, tracker)
	defer shutdownObservability()

	application, err := coreapp.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer application.Close()

	if opts.history {
		runs, err := application.RecentRuns(cfg.History.Limit)
		if err != nil {
			slog.Error("failed to list run history", "error", err)
			return 1
		}
		fmt.Fprint(stdout, renderHistory(runs))
		return 0
	}

	runReport, err := application.Run(ctx)
	tracker.observe(runReport, err)
	if err != nil {
		slog.Error("conversion failed", "error", err)
		return 1
	}
	fmt.Fprint(stdout, renderSummary(runReport))
	writeMarkdownReport(application, runReport)

	if !opts.watch {
		return 0
	}

	if err := application.StartWatcher(ctx, func(r *coreapp.Report, err error) {
		tracker.observe(r, err)
		if err == nil {
			fmt.Fprint(stdout, renderSummary(r))
			writeMarkdownReport(application, r)
		}
	}); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}
	tracker.setWatching(true)
	slog.Info("watching for changes", "root", cfg.FunctionsRoot())

	if _, err := os.Stat(opts.configPath); err == nil {
		configWatcher := config.NewWatcher(opts.configPath, func(next *config.Config) {
			if err := application.Reload(next); err != nil {
				slog.Warn("failed to apply reloaded config", "error", err)
			}
		})
		if err := configWatcher.Start(ctx); err != nil {
			slog.Warn("failed to watch config file", "path", opts.configPath, "error", err)
		} else {
			defer configWatcher.Stop()
		}
	}

	<-ctx.Done()
	slog.Info("shutting down")
	return 0
}

// writeMarkdownReport refreshes the optional markdown report. Failures are
// logged; the JSON report stays authoritative.
func writeMarkdownReport(application *coreapp.App, r *coreapp.Report) {
	settings := application.Settings()
	path := settings.MarkdownPath()
	if path == "" || r.DryRun {
		return
	}
	if err := report.WriteMarkdown(path, r); err != nil {
		slog.Warn("failed to write markdown report", "path", path, "error", err)
	}
}

// startObservability starts the metrics/health server and the OTLP exporter
// when enabled, and returns a function that stops both.
func startObservability(ctx context.Context, cfg *config.Config, tracker *runTracker) func() {
	if !cfg.Observability.Enabled {
		return func() {}
	}

	server := NewObservabilityServer(fmt.Sprintf(":%d", cfg.Observability.Port), tracker)
	if err := server.Start(ctx); err != nil {
		slog.Warn("failed to start observability server", "error", err)
	}

	var shutdownTracing func(context.Context) error
	if cfg.Observability.EnableTracing {
		shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
		if err != nil {
			slog.Warn("failed to set up tracing", "endpoint", cfg.Observability.OTLPEndpoint, "error", err)
		} else {
			shutdownTracing = shutdown
		}
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Stop(stopCtx); err != nil {
			slog.Warn("observability server shutdown failed", "error", err)
		}
		if shutdownTracing != nil {
			if err := shutdownTracing(stopCtx); err != nil {
				slog.Warn("tracer shutdown failed", "error", err)
			}
		}
	}
}

func configureLogging(output io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
