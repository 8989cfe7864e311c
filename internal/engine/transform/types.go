package transform

import (
	"edgeport/internal/engine/parser"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// UniversalType replaces any type reference into the runtime namespace.
const UniversalType = "any"

// TypeReferenceRule replaces Deno.X type references, including generic
// instantiations such as Deno.X<T>, with UniversalType. Which type was
// referenced is not resolved.
type TypeReferenceRule struct{}

func (TypeReferenceRule) Name() string { return "type-references" }

func (TypeReferenceRule) Rewrite(doc *Document, _ *FileState) []Edit {
	var edits []Edit
	walker := parser.NewWalker(map[string]parser.NodeHandler{
		"nested_type_identifier": func(node *sitter.Node) bool {
			module := doc.Text(node.ChildByFieldName("module"))
			head, _, _ := strings.Cut(module, ".")
			if strings.TrimSpace(head) != RuntimeNamespace {
				return true
			}
			target := node
			if parent := node.Parent(); parent != nil && parent.Kind() == "generic_type" &&
				parser.SameNode(parent.ChildByFieldName("name"), node) {
				target = parent
			}
			edits = append(edits, Edit{Start: target.StartByte(), End: target.EndByte(), Text: UniversalType})
			return true
		},
	})
	walker.Walk(doc.Root())
	return edits
}
