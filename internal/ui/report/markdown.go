// Package report renders the migration report as Markdown for humans. The
// generated block is wrapped in markers so it can live inside a hand-written
// document and be refreshed in place.
package report

import (
	"edgeport/internal/core/app"
	"edgeport/internal/engine/extract"
	"edgeport/internal/shared/util"
	"fmt"
	"os"
	"strings"
)

// Marker is the section name used for the generated block.
const Marker = "migration"

// RenderMarkdown formats r as a Markdown section without markers.
func RenderMarkdown(r *app.Report) string {
	var b strings.Builder

	b.WriteString("## Migration report\n\n")
	fmt.Fprintf(&b, "Run `%s`: %d functions, %d files (%d transformed, %d unchanged, %d copied, %d failed).\n",
		r.RunID, r.Totals.Functions, r.Totals.Files,
		r.Totals.Transformed, r.Totals.Unchanged, r.Totals.Copied, r.Totals.Failed)
	if r.DryRun {
		b.WriteString("\nDry run: no files were written.\n")
	}

	b.WriteString("\n### Dependencies\n\n")
	if len(r.Dependencies) == 0 {
		b.WriteString("No third-party packages detected.\n")
	} else {
		b.WriteString("Add these packages to `package.json`:\n\n")
		for _, dep := range r.Dependencies {
			fmt.Fprintf(&b, "- `%s`\n", dep)
		}
	}

	b.WriteString("\n### Environment variables\n\n")
	if len(r.EnvVars) == 0 {
		b.WriteString("No environment variables referenced.\n")
	} else {
		platform := extract.NewSet(r.PlatformEnvVars...)
		b.WriteString("| Name | Provided by platform |\n|---|---|\n")
		for _, name := range r.EnvVars {
			provided := "no"
			if platform.Has(name) {
				provided = "yes"
			}
			fmt.Fprintf(&b, "| `%s` | %s |\n", name, provided)
		}
	}

	b.WriteString("\n### Functions\n\n")
	if len(r.Functions) == 0 {
		b.WriteString("No functions found.\n")
	} else {
		b.WriteString("| Function | Entry | Files | Uses shared | Edits |\n|---|---|---|---|---|\n")
		for _, fn := range r.Functions {
			entry := fn.EntryFile
			if entry == "" {
				entry = "_missing_"
			} else {
				entry = "`" + entry + "`"
			}
			shared := "no"
			if fn.UsesShared {
				shared = "yes"
			}
			fmt.Fprintf(&b, "| %s | %s | %d | %s | %s |\n", fn.Name, entry, len(fn.Files), shared, editSummary(fn.Files))
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n### Warnings\n\n")
		for _, w := range r.Warnings {
			location := w.Path
			if location == "" {
				location = w.Function
			}
			fmt.Fprintf(&b, "- **%s** `%s`: %s\n", w.Code, location, w.Message)
		}
	}

	return b.String()
}

func editSummary(files []app.FileReport) string {
	totals := make(map[string]int)
	for _, f := range files {
		for rule, n := range f.Edits {
			totals[rule] += n
		}
	}
	if len(totals) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(totals))
	for _, rule := range util.SortedStringKeys(totals) {
		parts = append(parts, fmt.Sprintf("%s=%d", rule, totals[rule]))
	}
	return strings.Join(parts, ", ")
}

// WriteMarkdown refreshes the generated block in path. A missing file, or
// one without markers, is replaced by a document holding only the block.
func WriteMarkdown(path string, r *app.Report) error {
	section := RenderMarkdown(r)

	content, err := os.ReadFile(path)
	if err == nil {
		if next, replaceErr := ReplaceBetweenMarkers(string(content), Marker, section); replaceErr == nil {
			return util.WriteFileWithDirs(path, []byte(next), 0o644)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read markdown file %q: %w", path, err)
	}

	start, end := markers(Marker)
	doc := "# edgeport\n\n" + start + "\n" + strings.TrimRight(section, "\r\n") + "\n" + end + "\n"
	return util.WriteFileWithDirs(path, []byte(doc), 0o644)
}

func markers(name string) (string, string) {
	return fmt.Sprintf("<!-- edgeport:%s:start -->", name), fmt.Sprintf("<!-- edgeport:%s:end -->", name)
}

// ReplaceBetweenMarkers swaps the text between the start and end markers of
// name, keeping the markers and the document's newline style.
func ReplaceBetweenMarkers(content, name, replacement string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("markdown marker must not be empty")
	}

	newline := "\n"
	if strings.Contains(content, "\r\n") {
		newline = "\r\n"
	}

	start, end := markers(name)
	if strings.Count(content, start) != 1 || strings.Count(content, end) != 1 {
		return "", fmt.Errorf("markdown marker %q must appear exactly once for start and end", name)
	}

	startIdx := strings.Index(content, start)
	endIdx := strings.Index(content, end)
	if endIdx < startIdx {
		return "", fmt.Errorf("invalid marker order for %q", name)
	}

	prefix := content[:startIdx+len(start)]
	suffix := content[endIdx:]
	cleanReplacement := strings.TrimRight(replacement, "\r\n")
	if newline != "\n" {
		cleanReplacement = strings.ReplaceAll(cleanReplacement, "\n", newline)
	}

	return prefix + newline + cleanReplacement + newline + suffix, nil
}
