package parser

import (
	"edgeport/internal/core/errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

const (
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
	LangJavaScript = "javascript"
)

// languageExtensions selects the grammar variant per file extension. Type
// annotated files get the richer typescript/tsx grammars.
var languageExtensions = map[string]string{
	".ts":  LangTypeScript,
	".mts": LangTypeScript,
	".cts": LangTypeScript,
	".tsx": LangTSX,
	".js":  LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".jsx": LangJavaScript,
}

// GrammarLoader owns the compiled grammars and one ParserPool per grammar.
type GrammarLoader struct {
	languages map[string]*sitter.Language
	pools     map[string]*ParserPool
}

func NewGrammarLoader() *GrammarLoader {
	gl := &GrammarLoader{
		languages: map[string]*sitter.Language{
			LangTypeScript: sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			LangTSX:        sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
			LangJavaScript: sitter.NewLanguage(tree_sitter_javascript.Language()),
		},
		pools: make(map[string]*ParserPool, 3),
	}
	for id, lang := range gl.languages {
		gl.pools[id] = NewParserPool(lang)
	}
	return gl
}

// DetectLanguage returns the grammar id for path, or "" when unsupported.
func DetectLanguage(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".d.ts") {
		return ""
	}
	return languageExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsSupportedPath reports whether path has a grammar.
func IsSupportedPath(path string) bool {
	return DetectLanguage(path) != ""
}

// Pool returns the parser pool for the grammar selected by path.
func (gl *GrammarLoader) Pool(path string) (*ParserPool, error) {
	lang := DetectLanguage(path)
	if lang == "" {
		return nil, errors.AddContext(
			errors.New(errors.CodeNotSupported, "unsupported source extension"),
			errors.CtxPath, path,
		)
	}
	pool, ok := gl.pools[lang]
	if !ok {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("grammar not loaded: %s", lang))
	}
	return pool, nil
}

// Language returns the compiled grammar by id.
func (gl *GrammarLoader) Language(id string) *sitter.Language {
	return gl.languages[id]
}

func SupportedExtensions() []string {
	out := make([]string, 0, len(languageExtensions))
	for ext := range languageExtensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
