package config

import (
	"edgeport/internal/core/config/helpers"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d (expected 1)", cfg.Version)
	}
	return nil
}

func validateConvert(cfg *Config) error {
	if cfg.Convert.Workers < 1 {
		return fmt.Errorf("convert.workers must be >= 1")
	}
	if strings.ContainsAny(cfg.Convert.SharedDir, `/\`) {
		return fmt.Errorf("convert.shared_dir must be a single directory name, got %q", cfg.Convert.SharedDir)
	}
	if !strings.HasSuffix(cfg.Convert.SharedImportPath, "/") {
		return fmt.Errorf("convert.shared_import_path must end with '/', got %q", cfg.Convert.SharedImportPath)
	}
	for i, name := range cfg.Convert.EntryFiles {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) || helpers.HasWildcard(name) {
			return fmt.Errorf("convert.entry_files[%d] must be a bare file name, got %q", i, name)
		}
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for i, pattern := range cfg.Exclude.Dirs {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.dirs[%d] %q: %w", i, pattern, err)
		}
	}
	for i, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.files[%d] %q: %w", i, pattern, err)
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if !cfg.Observability.Enabled {
		return nil
	}
	if cfg.Observability.Port < 1 || cfg.Observability.Port > 65535 {
		return fmt.Errorf("observability.port must be between 1 and 65535, got %d", cfg.Observability.Port)
	}
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint is required when enable_tracing is true")
	}
	return nil
}

func validatePaths(cfg *Config) error {
	functions := filepath.Clean(cfg.FunctionsRoot())
	output := filepath.Clean(cfg.Paths.OutputDir)
	if functions == output {
		return fmt.Errorf("paths.output_dir must differ from the functions directory %q", functions)
	}
	if helpers.IsWithin(functions, output) {
		return fmt.Errorf("paths.output_dir %q must not be inside the functions directory %q", output, functions)
	}
	if helpers.IsWithin(output, functions) {
		return fmt.Errorf("paths.output_dir %q must not contain the functions directory %q", output, functions)
	}
	return nil
}

// Validate returns every configuration problem found.
func Validate(cfg *Config) []error {
	var errs []error
	checks := []func(*Config) error{
		validateVersion,
		validateConvert,
		validateExclude,
		validateObservability,
		validatePaths,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
