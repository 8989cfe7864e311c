package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "edgeport.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version = 1

[paths]
source_root = "./repo"
functions_dir = "supabase/functions"
output_dir = "./out"

[convert]
workers = 3
shared_dir = "_common"
shared_import_path = "../../common/"

[exclude]
dirs = [".git"]
files = ["*.spec.ts"]

[watch]
debounce = "2s"

[history]
enabled = true
path = "runs.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./repo", cfg.Paths.SourceRoot)
	assert.Equal(t, filepath.Join("repo", "supabase", "functions"), cfg.FunctionsRoot())
	assert.Equal(t, 3, cfg.Convert.Workers)
	assert.Equal(t, "_common", cfg.Convert.SharedDir)
	assert.Equal(t, "../../common/", cfg.Convert.SharedImportPath)
	assert.Equal(t, []string{".git"}, cfg.Exclude.Dirs)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Join(".edgeport", "runs.db"), cfg.HistoryPath())
	assert.Equal(t, filepath.Join("out", "migration-report.json"), cfg.ReportPath())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, runtime.NumCPU(), cfg.Convert.Workers)
	assert.Equal(t, "_shared", cfg.Convert.SharedDir)
	assert.Equal(t, []string{"index.ts", "index.tsx", "index.js", "main.ts"}, cfg.Convert.EntryFiles)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.Empty(t, cfg.MarkdownPath())
	assert.Empty(t, Validate(cfg))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("EDGEPORT_CONVERT_WORKERS", "7")
	t.Setenv("EDGEPORT_PATHS_OUTPUT_DIR", "elsewhere")
	t.Setenv("EDGEPORT_WATCH_DEBOUNCE", "not-a-duration")
	t.Setenv("EDGEPORT_OUTPUT_MARKDOWN", "MIGRATION.md")

	cfg, err := Load(writeConfig(t, "version = 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Convert.Workers)
	assert.Equal(t, "elsewhere", cfg.Paths.OutputDir)
	assert.Equal(t, filepath.Join("elsewhere", "MIGRATION.md"), cfg.MarkdownPath())
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "converted", cfg.Paths.OutputDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"version", func(c *Config) { c.Version = 2 }, "unsupported config version"},
		{"shared dir", func(c *Config) { c.Convert.SharedDir = "a/b" }, "convert.shared_dir"},
		{"shared import path", func(c *Config) { c.Convert.SharedImportPath = "../shared" }, "shared_import_path"},
		{"entry files", func(c *Config) { c.Convert.EntryFiles = []string{"src/index.ts"} }, "entry_files[0]"},
		{"exclude glob", func(c *Config) { c.Exclude.Files = []string{"[unclosed"} }, "exclude.files[0]"},
		{"tracing endpoint", func(c *Config) {
			c.Observability.Enabled = true
			c.Observability.EnableTracing = true
		}, "otlp_endpoint"},
		{"output inside functions", func(c *Config) { c.Paths.OutputDir = "supabase/functions/out" }, "must not be inside"},
		{"output contains functions", func(c *Config) { c.Paths.OutputDir = "supabase" }, "must not contain"},
		{"wildcard entry file", func(c *Config) { c.Convert.EntryFiles = []string{"index.*"} }, "entry_files[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			errs := Validate(cfg)
			require.NotEmpty(t, errs)
			found := false
			for _, err := range errs {
				if strings.Contains(err.Error(), tt.want) {
					found = true
				}
			}
			assert.True(t, found, "expected error containing %q, got %v", tt.want, errs)
		})
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "version = \n"))
	require.Error(t, err)
}

func TestWatcher_ReloadsOnSave(t *testing.T) {
	path := writeConfig(t, "version = 1\n[convert]\nworkers = 2\n")

	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("version = 1\n[convert]\nworkers = 5\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 5, cfg.Convert.Workers)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
