package transform

import (
	"edgeport/internal/core/errors"
	"edgeport/internal/engine/parser"
	"fmt"
	"sync"
)

// maxRounds bounds how often one rule is re-run to resolve nested matches.
const maxRounds = 8

// SourceUnit is one function source file.
type SourceUnit struct {
	Path   string
	Source []byte
}

// Result describes the outcome of transforming one SourceUnit.
type Result struct {
	Path    string
	Output  []byte
	Changed bool
	// Entry is the final state of the entry-point machine.
	Entry EntryState
	// DefaultExport is true when the output has an export default statement,
	// whether emitted here or already present in the input.
	DefaultExport bool
	// Edits counts applied edits per rule name.
	Edits map[string]int
}

// Engine runs an ordered rule pipeline. It holds no per-file state and is
// safe for concurrent use.
type Engine struct {
	loader *parser.GrammarLoader
	rules  []Rule
}

// NewEngine builds an engine. With no rules the DefaultRules pipeline is used.
func NewEngine(loader *parser.GrammarLoader, rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Engine{loader: loader, rules: rules}
}

// Rules returns the names of the pipeline steps in order.
func (e *Engine) Rules() []string {
	names := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		names = append(names, r.Name())
	}
	return names
}

// Transform runs the pipeline over unit. On any failure the returned Result
// carries the untouched source together with the error.
func (e *Engine) Transform(unit SourceUnit) (res Result, err error) {
	res = Result{Path: unit.Path, Output: unit.Source, Edits: map[string]int{}}

	pool, err := e.loader.Pool(unit.Path)
	if err != nil {
		return res, err
	}
	doc, err := parseDocument(pool, unit.Path, unit.Source)
	if err != nil {
		return res, err
	}
	defer doc.Close()

	current := ""
	defer func() {
		if r := recover(); r != nil {
			res = Result{Path: unit.Path, Output: unit.Source, Edits: map[string]int{}}
			err = errors.AddContext(
				errors.New(errors.CodeRuleFailed, fmt.Sprintf("rule panicked: %v", r)),
				errors.CtxRule, current,
			)
		}
	}()

	state := &FileState{}
	for _, rule := range e.rules {
		current = rule.Name()
		for round := 0; round < maxRounds; round++ {
			edits := rule.Rewrite(doc, state)
			if len(edits) == 0 {
				break
			}
			deferred, applyErr := doc.Apply(edits)
			if applyErr != nil {
				res = Result{Path: unit.Path, Output: unit.Source, Edits: map[string]int{}}
				return res, errors.AddContext(errors.AddContext(applyErr, errors.CtxRule, current), errors.CtxPath, unit.Path)
			}
			res.Edits[current] += len(edits) - deferred
			if deferred == 0 {
				break
			}
		}
	}

	out := make([]byte, len(doc.Source()))
	copy(out, doc.Source())
	res.Output = out
	res.Changed = string(out) != string(unit.Source)
	res.Entry = state.Entry.State()
	res.DefaultExport = hasDefaultExport(doc)
	return res, nil
}

func hasDefaultExport(doc *Document) bool {
	for _, stmt := range parser.NamedChildren(doc.Root()) {
		if stmt.Kind() == "export_statement" && parser.ChildOfKind(stmt, "default") != nil {
			return true
		}
	}
	return false
}

var (
	defaultEngineOnce sync.Once
	defaultEngine     *Engine
)

// TransformSource converts one file with the default pipeline. It never
// fails: on any internal error the original source is returned.
func TransformSource(path, source string) string {
	defaultEngineOnce.Do(func() {
		defaultEngine = NewEngine(parser.NewGrammarLoader())
	})
	res, _ := defaultEngine.Transform(SourceUnit{Path: path, Source: []byte(source)})
	return string(res.Output)
}
