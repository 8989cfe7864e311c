package app

import (
	"bytes"
	"context"
	"edgeport/internal/core/errors"
	"edgeport/internal/engine/extract"
	"edgeport/internal/engine/parser"
	"edgeport/internal/engine/transform"
	"edgeport/internal/shared/observability"
	"edgeport/internal/shared/util"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type fileJob struct {
	// function is empty for shared files.
	function string
	source   string
	output   string
}

type fileResult struct {
	job     fileJob
	outcome Outcome
	source  []byte
	output  []byte
	result  transform.Result
	err     error
}

// Run performs one full conversion: discovery, analysis, parallel rewriting,
// output and report writing, and history recording. Per-file failures never
// abort the run; they are reported as failed outcomes with warnings.
func (a *App) Run(ctx context.Context) (*Report, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	started := time.Now()
	report := &Report{
		RunID:      uuid.NewString(),
		StartedAt:  started.UTC(),
		SourceRoot: a.Config.Paths.SourceRoot,
		OutputDir:  a.Config.Paths.OutputDir,
		DryRun:     a.Config.Convert.DryRun,
	}

	ctx, span := observability.Tracer.Start(ctx, "app.Run", trace.WithAttributes(
		attribute.String("run.id", report.RunID),
		attribute.Bool("run.dry_run", report.DryRun),
	))
	defer span.End()

	layout, err := a.Discover()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	observability.FunctionsDiscovered.Set(float64(len(layout.Functions)))
	slog.Info("discovered functions", "count", len(layout.Functions), "shared_files", len(layout.SharedFiles), "root", layout.Root)

	jobs, err := a.planJobs(layout)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	results := a.convertAll(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !a.Config.Convert.DryRun {
		a.writeOutputs(results)
	}
	a.fillReport(report, layout, results)

	report.DurationMS = time.Since(started).Milliseconds()
	observability.RunDuration.Observe(time.Since(started).Seconds())

	if !a.Config.Convert.DryRun {
		if err := WriteReport(a.Config.ReportPath(), report); err != nil {
			span.RecordError(err)
			return report, errors.Wrap(err, errors.CodeInternal, "write migration report")
		}
	}
	a.recordHistory(report, results)

	span.SetAttributes(
		attribute.Int("run.files", report.Totals.Files),
		attribute.Int("run.failed", report.Totals.Failed),
	)
	return report, nil
}

func (a *App) planJobs(layout *Layout) ([]fileJob, error) {
	jobs := make([]fileJob, 0, layout.FileCount())
	for _, fn := range layout.Functions {
		for _, src := range fn.Files {
			out, err := a.outputPath(layout, fn.Name, src)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, fileJob{function: fn.Name, source: src, output: out})
		}
	}
	for _, src := range layout.SharedFiles {
		out, err := a.outputPath(layout, "", src)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, fileJob{source: src, output: out})
	}
	return jobs, nil
}

func (a *App) convertAll(ctx context.Context, jobs []fileJob) []fileResult {
	results := make([]fileResult, len(jobs))
	if len(jobs) == 0 {
		return results
	}
	workers := a.Config.Convert.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = a.convertFile(gctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *App) convertFile(ctx context.Context, job fileJob) fileResult {
	res := fileResult{job: job}

	src, err := os.ReadFile(job.source)
	if err != nil {
		res.outcome = OutcomeFailed
		res.err = errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read source"), errors.CtxPath, job.source)
		observability.FilesTotal.WithLabelValues(string(OutcomeFailed)).Inc()
		return res
	}
	res.source = src

	if !parser.IsSupportedPath(job.source) {
		res.output = a.fixSharedImports(job, src)
		res.outcome = OutcomeCopied
		observability.FilesTotal.WithLabelValues(string(OutcomeCopied)).Inc()
		return res
	}

	_, span := observability.Tracer.Start(ctx, "app.convertFile", trace.WithAttributes(
		attribute.String("path", job.source),
		attribute.String("function", job.function),
	))
	defer span.End()

	tr, err := a.transform(job.source, src)
	res.result = tr
	res.output = a.fixSharedImports(job, tr.Output)
	switch {
	case err != nil:
		res.outcome = OutcomeFailed
		res.err = errors.AddContext(err, errors.CtxFunction, job.function)
		span.RecordError(err)
		slog.Warn("transform failed, keeping original source", "path", job.source, "function", job.function, "error", err)
	case bytes.Equal(res.output, src):
		res.outcome = OutcomeUnchanged
	default:
		res.outcome = OutcomeTransformed
	}
	observability.FilesTotal.WithLabelValues(string(res.outcome)).Inc()
	return res
}

// transform consults the content cache before running the pipeline. Only
// successful results are cached.
func (a *App) transform(path string, src []byte) (transform.Result, error) {
	if res, ok := a.cache.get(path, src); ok {
		observability.CacheHitsTotal.Inc()
		return res, nil
	}

	started := time.Now()
	res, err := a.engine.Transform(transform.SourceUnit{Path: path, Source: src})
	observability.TransformDuration.WithLabelValues(parser.DetectLanguage(path)).Observe(time.Since(started).Seconds())
	if err != nil {
		return res, err
	}
	for rule, n := range res.Edits {
		observability.RuleEditsTotal.WithLabelValues(rule).Add(float64(n))
	}
	a.cache.put(path, src, res)
	return res, nil
}

// fixSharedImports points function-relative imports of the shared directory
// at its new location. Deeper files keep their extra "../" prefix, which
// stays correct because the output tree adds one level.
func (a *App) fixSharedImports(job fileJob, data []byte) []byte {
	if job.function == "" {
		return data
	}
	from := []byte("../" + a.Config.Convert.SharedDir + "/")
	return bytes.ReplaceAll(data, from, []byte(a.Config.Convert.SharedImportPath))
}

func (a *App) writeOutputs(results []fileResult) {
	for i := range results {
		r := &results[i]
		if r.source == nil && r.err != nil {
			continue
		}
		if err := util.WriteFileWithDirs(r.job.output, r.output, 0o644); err != nil {
			slog.Error("failed to write converted file", "path", r.job.output, "error", err)
			r.outcome = OutcomeFailed
			r.err = errors.AddContext(errors.Wrap(err, errors.CodeInternal, "write output"), errors.CtxPath, r.job.output)
		}
	}
}

func (a *App) fillReport(report *Report, layout *Layout, results []fileResult) {
	byFunction := make(map[string][]fileResult, len(layout.Functions))
	for _, r := range results {
		if r.job.function == "" {
			report.Shared = append(report.Shared, a.fileReport(layout, r))
			a.reportFailure(report, layout, r)
			report.count(r.outcome)
			continue
		}
		byFunction[r.job.function] = append(byFunction[r.job.function], r)
	}

	infos := make([]extract.FunctionInfo, 0, len(layout.Functions)+1)
	for _, fn := range layout.Functions {
		fnResults := byFunction[fn.Name]
		info := extract.AnalyzeFunction(fn.Name, fn.EntryFile, sourceFiles(layout.Root, fnResults))
		infos = append(infos, info)

		fr := FunctionReport{
			Name:         fn.Name,
			EntryFile:    fn.EntryFile,
			UsesShared:   info.UsesShared,
			Dependencies: info.Dependencies.Sorted(),
			EnvVars:      info.EnvVars.Sorted(),
		}
		if fn.EntryFile == "" {
			report.warn(WarnMissingEntry, fn.Name, util.RelSlash(layout.Root, fn.Dir), "function %q has no entry file", fn.Name)
		}
		entryPath := filepath.Join(fn.Dir, fn.EntryFile)
		for _, r := range fnResults {
			fr.Files = append(fr.Files, a.fileReport(layout, r))
			a.reportFailure(report, layout, r)
			report.count(r.outcome)
			if fn.EntryFile != "" && r.job.source == entryPath && r.outcome != OutcomeFailed &&
				parser.IsSupportedPath(r.job.source) && !r.result.DefaultExport {
				report.warn(WarnNoDefaultExport, fn.Name, util.RelSlash(layout.Root, r.job.source),
					"entry file of %q has no default export; no serve registration was found", fn.Name)
			}
		}
		report.Functions = append(report.Functions, fr)
	}
	report.Totals.Functions = len(layout.Functions)

	var shared []fileResult
	for _, r := range results {
		if r.job.function == "" {
			shared = append(shared, r)
		}
	}
	if len(shared) > 0 {
		infos = append(infos, extract.AnalyzeFunction(a.Config.Convert.SharedDir, "", sourceFiles(layout.Root, shared)))
	}

	deps, vars := extract.Aggregate(infos)
	report.Dependencies = deps.Sorted()
	report.EnvVars = vars.Sorted()
	for _, name := range extract.PlatformEnvVars {
		if vars.Has(name) {
			report.PlatformEnvVars = append(report.PlatformEnvVars, name)
		}
	}
}

func (a *App) reportFailure(report *Report, layout *Layout, r fileResult) {
	if r.err == nil {
		return
	}
	code := WarnTransformFailed
	if r.source == nil {
		code = WarnUnreadableSource
	}
	report.warn(code, r.job.function, util.RelSlash(layout.Root, r.job.source), "%s: %v", errors.CodeOf(r.err), r.err)
}

func (a *App) fileReport(layout *Layout, r fileResult) FileReport {
	fr := FileReport{
		Source:  util.RelSlash(layout.Root, r.job.source),
		Output:  util.RelSlash(a.Config.Paths.OutputDir, r.job.output),
		Outcome: r.outcome,
	}
	if len(r.result.Edits) > 0 {
		fr.Edits = make(map[string]int, len(r.result.Edits))
		for rule, n := range r.result.Edits {
			if n > 0 {
				fr.Edits[rule] = n
			}
		}
	}
	if r.err != nil {
		fr.Error = r.err.Error()
	}
	return fr
}

func sourceFiles(root string, results []fileResult) []extract.SourceFile {
	files := make([]extract.SourceFile, 0, len(results))
	for _, r := range results {
		if r.source == nil || !parser.IsSupportedPath(r.job.source) {
			continue
		}
		files = append(files, extract.SourceFile{Path: util.RelSlash(root, r.job.source), Text: string(r.source)})
	}
	return files
}
