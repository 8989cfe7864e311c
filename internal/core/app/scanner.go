package app

import (
	"edgeport/internal/core/errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Function is one deployable function directory.
type Function struct {
	Name string
	Dir  string
	// EntryFile is relative to Dir; empty when none of the configured entry
	// file names exists.
	EntryFile string
	Files     []string
}

// Layout is the discovered shape of the functions directory.
type Layout struct {
	Root        string
	Functions   []Function
	SharedDir   string
	SharedFiles []string
}

// FileCount returns the number of files across functions and shared code.
func (l *Layout) FileCount() int {
	n := len(l.SharedFiles)
	for _, fn := range l.Functions {
		n += len(fn.Files)
	}
	return n
}

// Discover lists functions and shared code under the configured functions
// root. Directories starting with "_" or "." are not functions; the one named
// like the shared dir holds shared code.
func (a *App) Discover() (*Layout, error) {
	root := a.Config.FunctionsRoot()
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(
				errors.New(errors.CodeNotFound, "functions directory does not exist"),
				errors.CtxPath, root,
			)
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "stat functions directory")
	}
	if !info.IsDir() {
		return nil, errors.AddContext(
			errors.New(errors.CodeValidationError, "functions path is not a directory"),
			errors.CtxPath, root,
		)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "read functions directory")
	}

	layout := &Layout{Root: root}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		dir := filepath.Join(root, name)

		if name == a.Config.Convert.SharedDir {
			files, err := a.ScanDirectories([]string{dir})
			if err != nil {
				return nil, err
			}
			layout.SharedDir = dir
			layout.SharedFiles = files
			continue
		}
		if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || a.isExcludedDir(name) {
			continue
		}

		files, err := a.ScanDirectories([]string{dir})
		if err != nil {
			return nil, err
		}
		layout.Functions = append(layout.Functions, Function{
			Name:      name,
			Dir:       dir,
			EntryFile: a.findEntryFile(dir),
			Files:     files,
		})
	}
	return layout, nil
}

func (a *App) findEntryFile(dir string) string {
	for _, name := range a.Config.Convert.EntryFiles {
		info, err := os.Stat(filepath.Join(dir, name))
		if err == nil && !info.IsDir() {
			return name
		}
	}
	return ""
}

// ScanDirectories walks paths and returns every file not excluded by the
// configured globs, in lexical order. The roots themselves are never
// excluded.
func (a *App) ScanDirectories(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			if d.IsDir() {
				if path != root && a.isExcludedDir(base) {
					return filepath.SkipDir
				}
				return nil
			}

			for _, g := range a.excludeFiles {
				if g.Match(base) {
					return nil
				}
			}

			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (a *App) isExcludedDir(name string) bool {
	for _, g := range a.excludeDirs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// outputPath maps a source file to its location under the output tree.
func (a *App) outputPath(layout *Layout, function, source string) (string, error) {
	base := filepath.Join(a.Config.Paths.OutputDir, "src", "shared")
	from := layout.SharedDir
	if function != "" {
		base = filepath.Join(a.Config.Paths.OutputDir, "src", "functions", function)
		from = filepath.Join(layout.Root, function)
	}
	rel, err := filepath.Rel(from, source)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "compute output path")
	}
	return filepath.Join(base, rel), nil
}
