package extract

import "strings"

// SharedDirName is the conventional directory holding code shared between
// functions.
const SharedDirName = "_shared"

// SourceFile is one file of a function, as read from disk.
type SourceFile struct {
	Path string
	Text string
}

// FunctionInfo summarises one function. It is built once by AnalyzeFunction
// and treated as read-only afterwards.
type FunctionInfo struct {
	Name         string
	EntryFile    string
	Files        []string
	Dependencies Set
	EnvVars      Set
	UsesShared   bool
}

// AnalyzeFunction scans every file before building the FunctionInfo, so a
// returned value is always complete.
func AnalyzeFunction(name, entryFile string, files []SourceFile) FunctionInfo {
	deps := NewSet()
	vars := NewSet()
	paths := make([]string, 0, len(files))
	usesShared := false
	for _, f := range files {
		paths = append(paths, f.Path)
		deps.Union(ExtractDependencies(f.Text))
		vars.Union(ExtractEnvVariables(f.Text))
		if strings.Contains(f.Text, SharedDirName+"/") {
			usesShared = true
		}
	}
	return FunctionInfo{
		Name:         name,
		EntryFile:    entryFile,
		Files:        paths,
		Dependencies: deps,
		EnvVars:      vars,
		UsesShared:   usesShared,
	}
}

// Aggregate unions dependencies and env vars across functions.
func Aggregate(infos []FunctionInfo) (deps Set, vars Set) {
	deps = NewSet()
	vars = NewSet()
	for _, info := range infos {
		deps.Union(info.Dependencies)
		vars.Union(info.EnvVars)
	}
	return deps, vars
}
