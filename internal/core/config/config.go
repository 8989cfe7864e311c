package config

import (
	"runtime"
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Convert       Convert       `toml:"convert"`
	Exclude       Exclude       `toml:"exclude"`
	Watch         Watch         `toml:"watch"`
	History       History       `toml:"history"`
	Observability Observability `toml:"observability"`
	Output        Output        `toml:"output"`
}

type Paths struct {
	SourceRoot   string `toml:"source_root"`
	FunctionsDir string `toml:"functions_dir"` // relative to source_root
	OutputDir    string `toml:"output_dir"`
	StateDir     string `toml:"state_dir"`
}

type Convert struct {
	Workers int `toml:"workers"`
	// SharedDir is the directory name holding code shared by functions.
	SharedDir string `toml:"shared_dir"`
	// SharedImportPath replaces "../<shared_dir>/" in converted sources.
	SharedImportPath string   `toml:"shared_import_path"`
	EntryFiles       []string `toml:"entry_files"`
	CacheSize        int      `toml:"cache_size"`
	DryRun           bool     `toml:"dry_run"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // relative to state_dir unless absolute
	Limit   int    `toml:"limit"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	EnableTracing bool   `toml:"enable_tracing"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	ServiceName   string `toml:"service_name"`
}

type Output struct {
	Report   string `toml:"report"`   // relative to output_dir unless absolute
	Markdown string `toml:"markdown"` // optional; empty disables the markdown report
}

// DefaultConfig returns a fully defaulted configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Paths.SourceRoot == "" {
		cfg.Paths.SourceRoot = "."
	}
	if cfg.Paths.FunctionsDir == "" {
		cfg.Paths.FunctionsDir = "supabase/functions"
	}
	if cfg.Paths.OutputDir == "" {
		cfg.Paths.OutputDir = "converted"
	}
	if cfg.Paths.StateDir == "" {
		cfg.Paths.StateDir = ".edgeport"
	}

	if cfg.Convert.Workers <= 0 {
		cfg.Convert.Workers = runtime.NumCPU()
	}
	if cfg.Convert.SharedDir == "" {
		cfg.Convert.SharedDir = "_shared"
	}
	if cfg.Convert.SharedImportPath == "" {
		cfg.Convert.SharedImportPath = "../../shared/"
	}
	if len(cfg.Convert.EntryFiles) == 0 {
		cfg.Convert.EntryFiles = []string{"index.ts", "index.tsx", "index.js", "main.ts"}
	}
	if cfg.Convert.CacheSize <= 0 {
		cfg.Convert.CacheSize = 512
	}

	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", "node_modules", ".*"}
	}
	if len(cfg.Exclude.Files) == 0 {
		cfg.Exclude.Files = []string{"*.test.ts", "*_test.ts", "*.d.ts"}
	}

	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if cfg.History.Path == "" {
		cfg.History.Path = "history.db"
	}
	if cfg.History.Limit <= 0 {
		cfg.History.Limit = 10
	}

	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9464
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "edgeport"
	}

	if cfg.Output.Report == "" {
		cfg.Output.Report = "migration-report.json"
	}
}
