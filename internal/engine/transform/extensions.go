package transform

import (
	"edgeport/internal/engine/parser"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

var relativeExtensions = []struct{ from, to string }{
	{".tsx", ".js"},
	{".mts", ".mjs"},
	{".cts", ".cjs"},
	{".ts", ".js"},
}

// RewriteRelativeExtension turns ./x.ts style specifiers into the emitted
// .js form. Non-relative specifiers and declaration files are unchanged.
func RewriteRelativeExtension(spec string) string {
	if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
		return spec
	}
	if strings.HasSuffix(spec, ".d.ts") {
		return spec
	}
	for _, ext := range relativeExtensions {
		if strings.HasSuffix(spec, ext.from) {
			return strings.TrimSuffix(spec, ext.from) + ext.to
		}
	}
	return spec
}

// ImportExtensionRule applies RewriteRelativeExtension to static and
// dynamic import sites.
type ImportExtensionRule struct{}

func (ImportExtensionRule) Name() string { return "import-extensions" }

func (ImportExtensionRule) Rewrite(doc *Document, _ *FileState) []Edit {
	var edits []Edit
	src := doc.Source()
	rewrite := func(str *sitter.Node) {
		spec, ok := parser.StringContent(str, src)
		if !ok {
			return
		}
		if out := RewriteRelativeExtension(spec); out != spec {
			edits = append(edits, replaceStringContent(str, out))
		}
	}
	walker := parser.NewWalker(map[string]parser.NodeHandler{
		"import_statement": func(node *sitter.Node) bool {
			rewrite(node.ChildByFieldName("source"))
			return true
		},
		"export_statement": func(node *sitter.Node) bool {
			if source := node.ChildByFieldName("source"); source != nil {
				rewrite(source)
				return true
			}
			return false
		},
		"call_expression": func(node *sitter.Node) bool {
			if arg := dynamicImportArgument(node); arg != nil {
				rewrite(arg)
			}
			return false
		},
	})
	walker.Walk(doc.Root())
	return edits
}
