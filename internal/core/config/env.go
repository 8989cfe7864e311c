package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: EDGEPORT_[SECTION]_[KEY] (e.g., EDGEPORT_CONVERT_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.SourceRoot, "EDGEPORT_PATHS_SOURCE_ROOT")
	setEnvString(&cfg.Paths.FunctionsDir, "EDGEPORT_PATHS_FUNCTIONS_DIR")
	setEnvString(&cfg.Paths.OutputDir, "EDGEPORT_PATHS_OUTPUT_DIR")
	setEnvString(&cfg.Paths.StateDir, "EDGEPORT_PATHS_STATE_DIR")

	// Convert
	setEnvInt(&cfg.Convert.Workers, "EDGEPORT_CONVERT_WORKERS")
	setEnvString(&cfg.Convert.SharedDir, "EDGEPORT_CONVERT_SHARED_DIR")
	setEnvString(&cfg.Convert.SharedImportPath, "EDGEPORT_CONVERT_SHARED_IMPORT_PATH")
	setEnvInt(&cfg.Convert.CacheSize, "EDGEPORT_CONVERT_CACHE_SIZE")
	setEnvBool(&cfg.Convert.DryRun, "EDGEPORT_CONVERT_DRY_RUN")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "EDGEPORT_WATCH_DEBOUNCE")

	// History
	setEnvBool(&cfg.History.Enabled, "EDGEPORT_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "EDGEPORT_HISTORY_PATH")
	setEnvInt(&cfg.History.Limit, "EDGEPORT_HISTORY_LIMIT")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "EDGEPORT_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "EDGEPORT_OBSERVABILITY_PORT")
	setEnvBool(&cfg.Observability.EnableTracing, "EDGEPORT_OBSERVABILITY_ENABLE_TRACING")
	setEnvString(&cfg.Observability.OTLPEndpoint, "EDGEPORT_OBSERVABILITY_OTLP_ENDPOINT")

	// Output
	setEnvString(&cfg.Output.Report, "EDGEPORT_OUTPUT_REPORT")
	setEnvString(&cfg.Output.Markdown, "EDGEPORT_OUTPUT_MARKDOWN")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
