package transform

import (
	"edgeport/internal/engine/parser"
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// HandlerName is the name given to a normalized request handler.
const HandlerName = "handler"

// EntryState is the per-file state of entry-point normalization.
type EntryState int

const (
	NotEmitted EntryState = iota
	Emitted
)

func (s EntryState) String() string {
	if s == Emitted {
		return "emitted"
	}
	return "not_emitted"
}

// EntryMachine enforces that at most one registration call per file is
// rewritten. Emitted is terminal.
type EntryMachine struct {
	state EntryState
}

func (m *EntryMachine) State() EntryState { return m.state }

func (m *EntryMachine) Emitted() bool { return m.state == Emitted }

// Emit moves the machine to Emitted. It returns false if the transition
// already happened.
func (m *EntryMachine) Emit() bool {
	if m.state == Emitted {
		return false
	}
	m.state = Emitted
	return true
}

var functionKinds = map[string]bool{
	"arrow_function":       true,
	"function_expression":  true,
	"function":             true,
	"function_declaration": true,
	"generator_function":   true,
	"method_definition":    true,
	"class_body":           true,
}

// EntryPointRule rewrites the first top-level serve(...) or Deno.serve(...)
// statement into an exported handler declaration.
type EntryPointRule struct{}

func (EntryPointRule) Name() string { return "entry-point" }

func (EntryPointRule) Rewrite(doc *Document, state *FileState) []Edit {
	if state.Entry.Emitted() {
		return nil
	}
	for _, stmt := range parser.NamedChildren(doc.Root()) {
		if stmt.Kind() != "expression_statement" {
			continue
		}
		call := registrationCall(stmt)
		if call == nil {
			continue
		}
		handler := findHandler(doc, call)
		if handler == nil {
			continue
		}
		text, ok := normalizeHandler(doc, handler)
		if !ok || !state.Entry.Emit() {
			continue
		}
		return []Edit{{Start: stmt.StartByte(), End: stmt.EndByte(), Text: text}}
	}
	return nil
}

func registrationCall(stmt *sitter.Node) *sitter.Node {
	children := parser.NamedChildren(stmt)
	if len(children) == 0 {
		return nil
	}
	expr := children[0]
	if expr.Kind() == "await_expression" {
		inner := parser.NamedChildren(expr)
		if len(inner) == 0 {
			return nil
		}
		expr = inner[0]
	}
	if expr.Kind() != "call_expression" {
		return nil
	}
	return expr
}

// findHandler applies the triggers in priority order: bare serve first,
// then Deno.serve with positional or options-object handler.
func findHandler(doc *Document, call *sitter.Node) *sitter.Node {
	fn := call.ChildByFieldName("function")
	args := parser.NamedChildren(call.ChildByFieldName("arguments"))
	if fn == nil || len(args) == 0 {
		return nil
	}

	if fn.Kind() == "identifier" && doc.Text(fn) == "serve" {
		if isHandlerNode(args[0]) {
			return args[0]
		}
		return nil
	}

	if fn.Kind() != "member_expression" {
		return nil
	}
	object := fn.ChildByFieldName("object")
	if object == nil || object.Kind() != "identifier" || doc.Text(object) != RuntimeNamespace {
		return nil
	}
	if doc.Text(fn.ChildByFieldName("property")) != "serve" {
		return nil
	}
	switch {
	case len(args) == 1 && isHandlerNode(args[0]):
		return args[0]
	case len(args) >= 2 && isHandlerNode(args[1]):
		return args[1]
	case args[0].Kind() == "object":
		return optionsHandler(doc, args[0])
	}
	return nil
}

func isHandlerNode(node *sitter.Node) bool {
	switch node.Kind() {
	case "arrow_function", "function_expression", "function", "identifier":
		return true
	}
	return false
}

// optionsHandler finds the handler member of a Deno.serve options object.
func optionsHandler(doc *Document, object *sitter.Node) *sitter.Node {
	for _, member := range parser.NamedChildren(object) {
		switch member.Kind() {
		case "pair":
			key := strings.Trim(doc.Text(member.ChildByFieldName("key")), `"'`)
			value := member.ChildByFieldName("value")
			if key == HandlerName && value != nil && isHandlerNode(value) {
				return value
			}
		case "shorthand_property_identifier":
			if doc.Text(member) == HandlerName {
				return member
			}
		case "method_definition":
			if doc.Text(member.ChildByFieldName("name")) == HandlerName {
				return member
			}
		}
	}
	return nil
}

// normalizeHandler renders the replacement statements for a handler node.
func normalizeHandler(doc *Document, handler *sitter.Node) (string, bool) {
	switch handler.Kind() {
	case "identifier", "shorthand_property_identifier":
		return fmt.Sprintf("export default %s;", doc.Text(handler)), true
	}

	body := handler.ChildByFieldName("body")
	if body == nil {
		return "", false
	}

	params := doc.Text(handler.ChildByFieldName("parameters"))
	if params == "" {
		if single := handler.ChildByFieldName("parameter"); single != nil {
			params = "(" + doc.Text(single) + ")"
		} else {
			params = "()"
		}
	}

	var block string
	if body.Kind() == "statement_block" {
		block = doc.Text(body)
	} else {
		block = fmt.Sprintf("{\n  return %s;\n}", doc.Text(body))
	}

	var b strings.Builder
	if isDeclaredAsync(handler) || containsSuspension(body) {
		b.WriteString("async ")
	}
	b.WriteString("function ")
	b.WriteString(HandlerName)
	b.WriteString(doc.Text(handler.ChildByFieldName("type_parameters")))
	b.WriteString(params)
	b.WriteString(doc.Text(handler.ChildByFieldName("return_type")))
	b.WriteString(" ")
	b.WriteString(block)
	b.WriteString("\nexport default ")
	b.WriteString(HandlerName)
	b.WriteString(";")
	return b.String(), true
}

func isDeclaredAsync(fn *sitter.Node) bool {
	for i := uint(0); i < fn.ChildCount(); i++ {
		child := fn.Child(i)
		if child == nil || child.IsNamed() {
			continue
		}
		if child.Kind() == "async" {
			return true
		}
	}
	return false
}

// containsSuspension reports an await or for-await inside body without
// crossing into nested functions.
func containsSuspension(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Kind() {
	case "await_expression":
		return true
	case "for_in_statement":
		if parser.ChildOfKind(node, "await") != nil {
			return true
		}
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || functionKinds[child.Kind()] {
			continue
		}
		if containsSuspension(child) {
			return true
		}
	}
	return false
}

// serveImportSources are substrings of import paths that export serve, in
// both their original and rewritten spellings.
var serveImportSources = []string{
	"/http/server.ts",
	"/http/mod.ts",
	"std/http",
	"@std/http",
	"deno.land/x/sift",
}

// ServeImportRule removes the serve specifier from known server-module
// imports once the registration call has been rewritten, and drops an import
// left without bindings. A file whose serve call was not normalized keeps its
// import.
type ServeImportRule struct{}

func (ServeImportRule) Name() string { return "serve-import" }

func (ServeImportRule) Rewrite(doc *Document, state *FileState) []Edit {
	if !state.Entry.Emitted() {
		return nil
	}
	var edits []Edit
	for _, stmt := range parser.NamedChildren(doc.Root()) {
		if stmt.Kind() != "import_statement" || parser.ChildOfKind(stmt, "type") != nil {
			continue
		}
		source := stmt.ChildByFieldName("source")
		spec, ok := parser.StringContent(source, doc.Source())
		if !ok || !IsServeModule(spec) {
			continue
		}
		clause := parser.ChildOfKind(stmt, "import_clause")
		if clause == nil {
			continue
		}
		if edit, ok := pruneServeSpecifier(doc, stmt, clause, source); ok {
			edits = append(edits, edit)
		}
	}
	return edits
}

// IsServeModule reports whether spec names a module whose serve export is
// replaced by the default-exported handler.
func IsServeModule(spec string) bool {
	if spec == "sift" || strings.HasPrefix(spec, "sift/") {
		return true
	}
	for _, s := range serveImportSources {
		if strings.Contains(spec, s) {
			return true
		}
	}
	return false
}

func pruneServeSpecifier(doc *Document, stmt, clause, source *sitter.Node) (Edit, bool) {
	var bindings []string
	var kept []string
	removed := false
	for _, part := range parser.NamedChildren(clause) {
		switch part.Kind() {
		case "named_imports":
			for _, spec := range parser.NamedChildren(part) {
				if spec.Kind() == "import_specifier" && doc.Text(spec.ChildByFieldName("name")) == "serve" {
					removed = true
					continue
				}
				kept = append(kept, doc.Text(spec))
			}
		default:
			bindings = append(bindings, doc.Text(part))
		}
	}
	if !removed {
		return Edit{}, false
	}
	if len(kept) > 0 {
		bindings = append(bindings, "{ "+strings.Join(kept, ", ")+" }")
	}
	if len(bindings) == 0 {
		return doc.removeStatement(stmt), true
	}
	text := fmt.Sprintf("import %s from %s;", strings.Join(bindings, ", "), doc.Text(source))
	return Edit{Start: stmt.StartByte(), End: stmt.EndByte(), Text: text}, true
}
