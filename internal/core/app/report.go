package app

import (
	"edgeport/internal/shared/util"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// Outcome classifies what happened to one source file.
type Outcome string

const (
	OutcomeTransformed Outcome = "transformed"
	OutcomeUnchanged   Outcome = "unchanged"
	OutcomeFailed      Outcome = "failed"
	// OutcomeCopied marks files outside the rewrite pipeline, such as JSON
	// or declaration files, which are copied with only the shared-path fix-up.
	OutcomeCopied Outcome = "copied"
)

// Warning codes carried in the report.
const (
	WarnMissingEntry     = "missing_entry"
	WarnNoDefaultExport  = "no_default_export"
	WarnTransformFailed  = "transform_failed"
	WarnUnreadableSource = "unreadable_source"
)

type FileReport struct {
	Source  string         `json:"source"`
	Output  string         `json:"output"`
	Outcome Outcome        `json:"outcome"`
	Edits   map[string]int `json:"edits,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type FunctionReport struct {
	Name         string       `json:"name"`
	EntryFile    string       `json:"entry_file"`
	UsesShared   bool         `json:"uses_shared"`
	Dependencies []string     `json:"dependencies"`
	EnvVars      []string     `json:"env_vars"`
	Files        []FileReport `json:"files"`
}

type Warning struct {
	Code     string `json:"code"`
	Function string `json:"function,omitempty"`
	Path     string `json:"path,omitempty"`
	Message  string `json:"message"`
}

type Totals struct {
	Functions   int `json:"functions"`
	Files       int `json:"files"`
	Transformed int `json:"transformed"`
	Unchanged   int `json:"unchanged"`
	Failed      int `json:"failed"`
	Copied      int `json:"copied"`
}

// Report is the migration report for one run.
type Report struct {
	RunID           string           `json:"run_id"`
	StartedAt       time.Time        `json:"started_at"`
	DurationMS      int64            `json:"duration_ms"`
	SourceRoot      string           `json:"source_root"`
	OutputDir       string           `json:"output_dir"`
	DryRun          bool             `json:"dry_run"`
	Functions       []FunctionReport `json:"functions"`
	Shared          []FileReport     `json:"shared"`
	Dependencies    []string         `json:"dependencies"`
	EnvVars         []string         `json:"env_vars"`
	PlatformEnvVars []string         `json:"platform_env_vars"`
	Warnings        []Warning        `json:"warnings"`
	Totals          Totals           `json:"totals"`
}

func (r *Report) count(outcome Outcome) {
	r.Totals.Files++
	switch outcome {
	case OutcomeTransformed:
		r.Totals.Transformed++
	case OutcomeUnchanged:
		r.Totals.Unchanged++
	case OutcomeFailed:
		r.Totals.Failed++
	case OutcomeCopied:
		r.Totals.Copied++
	}
}

func (r *Report) warn(code, function, path, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{
		Code:     code,
		Function: function,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
	})
}

// MarshalReport renders r as indented JSON.
func MarshalReport(r *Report) ([]byte, error) {
	data, err := sonic.ConfigStd.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal migration report: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteReport writes r to path, creating parent directories.
func WriteReport(path string, r *Report) error {
	data, err := MarshalReport(r)
	if err != nil {
		return err
	}
	return util.WriteFileWithDirs(path, data, 0o644)
}
