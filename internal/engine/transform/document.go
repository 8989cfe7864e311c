package transform

import (
	"edgeport/internal/core/errors"
	"edgeport/internal/engine/parser"
	"sort"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Edit replaces source[Start:End] with Text. Start == End inserts.
type Edit struct {
	Start uint
	End   uint
	Text  string
}

// Document is the parsed form of one SourceUnit. Rules never mutate the
// tree directly; they return edits which Apply splices into the source
// before reparsing, so every rule observes the shape left by its
// predecessors.
type Document struct {
	Path   string
	source []byte
	tree   *sitter.Tree
	pool   *parser.ParserPool
}

func parseDocument(pool *parser.ParserPool, path string, source []byte) (*Document, error) {
	d := &Document{Path: path, pool: pool}
	if err := d.reparse(source); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) reparse(source []byte) error {
	tree := d.pool.Parse(source)
	if tree == nil {
		return errors.AddContext(errors.New(errors.CodeParseFailed, "parser returned no tree"), errors.CtxPath, d.Path)
	}
	if tree.RootNode().HasError() {
		tree.Close()
		return errors.AddContext(errors.New(errors.CodeParseFailed, "source contains syntax errors"), errors.CtxPath, d.Path)
	}
	if d.tree != nil {
		d.tree.Close()
	}
	d.tree = tree
	d.source = source
	return nil
}

func (d *Document) Root() *sitter.Node {
	return d.tree.RootNode()
}

func (d *Document) Source() []byte {
	return d.source
}

func (d *Document) Text(node *sitter.Node) string {
	return parser.Text(node, d.source)
}

// Close releases the tree. The document must not be used afterwards.
func (d *Document) Close() {
	if d.tree != nil {
		d.tree.Close()
		d.tree = nil
	}
}

// Apply splices non-overlapping edits into the source and reparses. Edits
// nested inside an earlier, wider edit are skipped and counted in deferred
// so the caller can run the rule again on the new tree.
func (d *Document) Apply(edits []Edit) (deferred int, err error) {
	if len(edits) == 0 {
		return 0, nil
	}
	next, deferred := spliceEdits(d.source, edits)
	if err := d.reparse(next); err != nil {
		return deferred, errors.Wrap(err, errors.CodeRuleFailed, "rewrite produced invalid syntax")
	}
	return deferred, nil
}

func spliceEdits(source []byte, edits []Edit) ([]byte, int) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End > sorted[j].End
	})

	out := make([]byte, 0, len(source))
	var cursor uint
	deferred := 0
	for _, e := range sorted {
		if e.Start < cursor || e.End < e.Start || e.End > uint(len(source)) {
			deferred++
			continue
		}
		out = append(out, source[cursor:e.Start]...)
		out = append(out, e.Text...)
		cursor = e.End
	}
	out = append(out, source[cursor:]...)
	return out, deferred
}

// removeStatement returns an edit deleting node together with the line
// break that follows it.
func (d *Document) removeStatement(node *sitter.Node) Edit {
	end := node.EndByte()
	if end < uint(len(d.source)) && d.source[end] == '\r' {
		end++
	}
	if end < uint(len(d.source)) && d.source[end] == '\n' {
		end++
	}
	return Edit{Start: node.StartByte(), End: end}
}

// replaceStringContent returns an edit swapping the inside of a string
// literal, keeping its original quotes.
func replaceStringContent(node *sitter.Node, content string) Edit {
	return Edit{Start: node.StartByte() + 1, End: node.EndByte() - 1, Text: content}
}
