package transform

import (
	"edgeport/internal/engine/parser"
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

const (
	// RuntimeNamespace is the root identifier of the source runtime API.
	RuntimeNamespace = "Deno"
	targetEnv        = "process.env"
)

// assignmentContexts are parent kinds that accept an assignment-level
// expression, so a rewritten `a ?? b` needs no parentheses there.
var assignmentContexts = map[string]bool{
	"variable_declarator":      true,
	"arguments":                true,
	"parenthesized_expression": true,
	"return_statement":         true,
	"expression_statement":     true,
	"pair":                     true,
	"array":                    true,
	"template_substitution":    true,
	"arrow_function":           true,
	"public_field_definition":  true,
}

// EnvCallRule rewrites Deno.env.<method>(...) calls to process.env access.
// The match is purely structural; a local object named Deno would match too.
type EnvCallRule struct{}

func (EnvCallRule) Name() string { return "env-calls" }

func (EnvCallRule) Rewrite(doc *Document, _ *FileState) []Edit {
	var edits []Edit
	walker := parser.NewWalker(map[string]parser.NodeHandler{
		"call_expression": func(node *sitter.Node) bool {
			method, args, ok := matchEnvCall(doc, node)
			if !ok {
				return false
			}
			text, ok := envReplacement(doc, node, method, args)
			if ok {
				edits = append(edits, Edit{Start: node.StartByte(), End: node.EndByte(), Text: text})
			}
			return false
		},
	})
	walker.Walk(doc.Root())
	return edits
}

// matchEnvCall recognises the three-level chain Deno.env.<method>(...).
func matchEnvCall(doc *Document, call *sitter.Node) (string, []*sitter.Node, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "member_expression" {
		return "", nil, false
	}
	inner := fn.ChildByFieldName("object")
	if inner == nil || inner.Kind() != "member_expression" {
		return "", nil, false
	}
	root := inner.ChildByFieldName("object")
	if root == nil || root.Kind() != "identifier" || doc.Text(root) != RuntimeNamespace {
		return "", nil, false
	}
	if doc.Text(inner.ChildByFieldName("property")) != "env" {
		return "", nil, false
	}
	args := parser.NamedChildren(call.ChildByFieldName("arguments"))
	return doc.Text(fn.ChildByFieldName("property")), args, true
}

func envReplacement(doc *Document, call *sitter.Node, method string, args []*sitter.Node) (string, bool) {
	key := `""`
	if len(args) > 0 {
		key = doc.Text(args[0])
	}
	switch method {
	case "get":
		expr := fmt.Sprintf(`%s[%s] ?? ""`, targetEnv, key)
		if needsParens(call) {
			expr = "(" + expr + ")"
		}
		return expr, true
	case "toObject":
		return targetEnv, true
	case "has":
		expr := fmt.Sprintf("%s in %s", key, targetEnv)
		if needsParens(call) {
			expr = "(" + expr + ")"
		}
		return expr, true
	case "set":
		value := `""`
		if len(args) > 1 {
			value = doc.Text(args[1])
		}
		return wrapUnlessStatement(call, fmt.Sprintf("%s[%s] = %s", targetEnv, key, value)), true
	case "delete":
		return wrapUnlessStatement(call, fmt.Sprintf("delete %s[%s]", targetEnv, key)), true
	}
	return "", false
}

func needsParens(node *sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	if parent.Kind() == "assignment_expression" || parent.Kind() == "augmented_assignment_expression" {
		return !parser.SameNode(parent.ChildByFieldName("right"), node)
	}
	return !assignmentContexts[parent.Kind()]
}

func wrapUnlessStatement(node *sitter.Node, expr string) string {
	if parent := node.Parent(); parent != nil && parent.Kind() == "expression_statement" {
		return expr
	}
	return "(" + expr + ")"
}
