package cli

import (
	"edgeport/internal/core/config"
	"flag"
	"fmt"
	"strings"
)

const versionString = "0.1.0"
const defaultConfigPath = "./edgeport.toml"

type cliOptions struct {
	configPath string
	outDir     string
	once       bool
	watch      bool
	history    bool
	dryRun     bool
	verbose    bool
	version    bool
	args       []string
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("edgeport", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.StringVar(&opts.outDir, "out", "", "Output directory (overrides paths.output_dir)")
	fs.BoolVar(&opts.once, "once", false, "Run a single conversion and exit (default)")
	fs.BoolVar(&opts.watch, "watch", false, "Keep running and reconvert on changes")
	fs.BoolVar(&opts.history, "history", false, "List recent conversion runs and exit")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Convert and report without writing any files")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}

// applyModeOptions folds command-line overrides into cfg and rejects
// contradictory flag combinations.
func applyModeOptions(opts *cliOptions, cfg *config.Config) error {
	if opts.once && opts.watch {
		return fmt.Errorf("--once and --watch cannot be combined")
	}
	if opts.history && (opts.watch || opts.dryRun) {
		return fmt.Errorf("--history only lists recorded runs and cannot be combined with --watch or --dry-run")
	}
	if len(opts.args) > 1 {
		return fmt.Errorf("expected at most one source root argument, got %d", len(opts.args))
	}

	if len(opts.args) == 1 {
		cfg.Paths.SourceRoot = opts.args[0]
	}
	if strings.TrimSpace(opts.outDir) != "" {
		cfg.Paths.OutputDir = opts.outDir
	}
	if opts.dryRun {
		cfg.Convert.DryRun = true
	}
	if opts.history {
		cfg.History.Enabled = true
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		return errs[0]
	}
	return nil
}
