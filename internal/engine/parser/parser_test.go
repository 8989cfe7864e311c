package parser

import (
	"edgeport/internal/core/errors"
	"sync"
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

func TestParserPool_GetPut(t *testing.T) {
	gl := NewGrammarLoader()
	pool := NewParserPool(gl.Language(LangTypeScript))

	sp := pool.Get()
	if sp == nil {
		t.Fatal("expected non-nil parser from pool")
	}
	if pool.Leased() != 1 {
		t.Fatalf("expected 1 leased parser, got %d", pool.Leased())
	}
	pool.Put(sp)
	pool.Put(nil)
	if pool.Leased() != 0 {
		t.Fatalf("expected 0 leased parsers, got %d", pool.Leased())
	}
}

func TestParserPool_ConcurrentParse(t *testing.T) {
	gl := NewGrammarLoader()
	pool, err := gl.Pool("index.ts")
	if err != nil {
		t.Fatal(err)
	}

	src := []byte("const x: number = 1;\nexport default x;\n")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tree := pool.Parse(src)
			defer tree.Close()
			if tree.RootNode().HasError() {
				t.Error("unexpected parse error")
			}
		}()
	}
	wg.Wait()
	if pool.Leased() != 0 {
		t.Fatalf("parsers leaked: %d", pool.Leased())
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := map[string]string{
		"index.ts":     LangTypeScript,
		"lib/util.MTS": LangTypeScript,
		"App.tsx":      LangTSX,
		"legacy.js":    LangJavaScript,
		"view.jsx":     LangJavaScript,
		"types.d.ts":   "",
		"deno.json":    "",
		"README":       "",
	}
	for path, want := range cases {
		if got := DetectLanguage(path); got != want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", path, got, want)
		}
	}
	if !IsSupportedPath("a.cjs") || IsSupportedPath("a.css") {
		t.Fatal("IsSupportedPath mismatch")
	}
	if len(SupportedExtensions()) != len(languageExtensions) {
		t.Fatal("SupportedExtensions should list every mapped extension")
	}
}

func TestGrammarLoader_PoolUnsupported(t *testing.T) {
	_, err := NewGrammarLoader().Pool("styles.css")
	if !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED, got %v", err)
	}
}

func TestWalkerAndHelpers(t *testing.T) {
	gl := NewGrammarLoader()
	pool, err := gl.Pool("index.ts")
	if err != nil {
		t.Fatal(err)
	}
	src := []byte(`import { a } from "./a.ts";
// note
import b from 'b';
`)
	tree := pool.Parse(src)
	defer tree.Close()

	var sources []string
	var first *sitter.Node
	NewWalker(map[string]NodeHandler{
		"import_statement": func(node *sitter.Node) bool {
			if first == nil {
				first = node
			}
			spec, ok := StringContent(node.ChildByFieldName("source"), src)
			if !ok {
				t.Errorf("expected string source in %q", Text(node, src))
			}
			sources = append(sources, spec)
			return true
		},
	}).Walk(tree.RootNode())

	if len(sources) != 2 || sources[0] != "./a.ts" || sources[1] != "b" {
		t.Fatalf("unexpected sources: %v", sources)
	}
	if got := FieldText(first, "source", src); got != `"./a.ts"` {
		t.Fatalf("FieldText = %q", got)
	}
	if ChildOfKind(first, "import_clause") == nil {
		t.Fatal("expected import_clause child")
	}
	if n := len(NamedChildren(tree.RootNode())); n != 2 {
		t.Fatalf("expected comments skipped, got %d named children", n)
	}
	if !SameNode(first, tree.RootNode().NamedChild(0)) || SameNode(first, nil) {
		t.Fatal("SameNode mismatch")
	}
}
