package transform

// Rule is one rewrite step of the pipeline. Rewrite inspects the current
// tree and returns the edits to apply; it must not retain the document.
type Rule interface {
	Name() string
	Rewrite(doc *Document, state *FileState) []Edit
}

// FileState is the only state shared between rules of one file.
type FileState struct {
	Entry EntryMachine
}

// DefaultRules returns the pipeline in its fixed order:
//
//  1. specifiers: registry/CDN/legacy module references to package names
//  2. env-calls: Deno.env.* to process.env
//  3. entry-point: serve/Deno.serve registration to an exported handler
//  4. serve-import: drop the serve import specifier once entry-point emitted
//  5. type-references: Deno.* type positions to any
//  6. import-extensions: relative ./x.ts imports to ./x.js
//
// Entry-point detection only looks at call shapes, so it does not depend on
// specifier rewriting having run. The serve-import pass runs after both: it
// needs the emitted state and sees sources in their rewritten spelling.
func DefaultRules() []Rule {
	return []Rule{
		SpecifierRule{},
		EnvCallRule{},
		EntryPointRule{},
		ServeImportRule{},
		TypeReferenceRule{},
		ImportExtensionRule{},
	}
}
