package transform

import (
	"edgeport/internal/engine/parser"
	"regexp"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Drop marks a mapping whose import is removed because the target runtime
// provides the functionality natively.
const Drop = ""

// LegacyPackages maps legacy-registry package names to their target
// ecosystem equivalent. Read-only after init.
var LegacyPackages = map[string]string{
	"oak":      "koa",
	"opine":    "express",
	"hono":     "hono",
	"cors":     "cors",
	"zod":      "zod",
	"postgres": "postgres",
	"redis":    "redis",
	"dotenv":   Drop,
}

// StdModules maps the first path segment of a standard-library reference.
// Segments not listed resolve to @std/<segment>. http is not dropped: only
// its serve export is, by ServeImportRule.
var StdModules = map[string]string{
	"dotenv": Drop,
}

var (
	registryPrefix = regexp.MustCompile(`^(npm|jsr):/?(.+)$`)
	scopedName     = regexp.MustCompile(`^(@[^/@]+/[^/@]+)(?:@[^/]*)?(/.*)?$`)
	unscopedName   = regexp.MustCompile(`^([^/@]+)(?:@[^/]*)?(/.*)?$`)
	legacyX        = regexp.MustCompile(`^https?://deno\.land/x/([^/@]+)(?:@[^/]+)?(?:/(.*))?$`)
	legacyLoose    = regexp.MustCompile(`^https?://(?:deno\.land|x\.nest\.land|denopkg\.com|crux\.land)/([^/@]+)(?:@[^/]+)?(?:/(.*))?$`)
	inlineCDN      = regexp.MustCompile(`^https?://(?:esm\.sh|cdn\.skypack\.dev|unpkg\.com|cdn\.jsdelivr\.net/npm)/(.+)$`)
	cdnBuildPrefix = regexp.MustCompile(`^(?:v\d+|stable|pin/v\d+)/`)
	moduleExt      = regexp.MustCompile(`\.(?:ts|tsx|js|jsx|mjs)$`)
)

var legacyHosts = []string{"deno.land/", "x.nest.land/", "denopkg.com/", "crux.land/"}

// RewriteSpecifier maps a foreign module reference to a conventional package
// reference. keep is false when the whole import should be removed.
// Unrecognised references are returned unchanged.
func RewriteSpecifier(spec string) (out string, keep bool) {
	if m := registryPrefix.FindStringSubmatch(spec); m != nil {
		return stripVersion(m[2]), true
	}
	if m := inlineCDN.FindStringSubmatch(spec); m != nil {
		ref := m[1]
		if i := strings.IndexAny(ref, "?#"); i >= 0 {
			ref = ref[:i]
		}
		ref = cdnBuildPrefix.ReplaceAllString(ref, "")
		return stripVersion(ref), true
	}
	if m := legacyX.FindStringSubmatch(spec); m != nil {
		return resolveLegacy(m[1], m[2])
	}
	if looksLegacy(spec) {
		if m := legacyLoose.FindStringSubmatch(spec); m != nil {
			if m[1] == "std" {
				return resolveStd(spec, m[2])
			}
			return resolveLegacy(m[1], m[2])
		}
	}
	return spec, true
}

// RewriteDynamicSpecifier covers import("...") expressions. Only the npm:
// prefix is rewritten there; other registries and CDN hosts are left alone.
func RewriteDynamicSpecifier(spec string) string {
	if !strings.HasPrefix(spec, "npm:") {
		return spec
	}
	out, _ := RewriteSpecifier(spec)
	return out
}

// PackageRoot returns the installable package of a rewritten specifier:
// @scope/name for scoped references, the first segment otherwise.
func PackageRoot(spec string) string {
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 {
			return spec
		}
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// IsForeignSpecifier reports whether spec uses a registry prefix or URL.
func IsForeignSpecifier(spec string) bool {
	return registryPrefix.MatchString(spec) || strings.HasPrefix(spec, "https://") || strings.HasPrefix(spec, "http://")
}

// stripVersion removes the @version suffix from a bare package reference,
// keeping @scope/name and any subpath. A reference without a recognisable
// shape is returned as is.
func stripVersion(ref string) string {
	if strings.HasPrefix(ref, "@") {
		if m := scopedName.FindStringSubmatch(ref); m != nil {
			return m[1] + m[2]
		}
		return ref
	}
	if m := unscopedName.FindStringSubmatch(ref); m != nil {
		return m[1] + m[2]
	}
	return ref
}

func looksLegacy(spec string) bool {
	rest := strings.TrimPrefix(strings.TrimPrefix(spec, "https://"), "http://")
	if rest == spec {
		return false
	}
	for _, host := range legacyHosts {
		if strings.HasPrefix(rest, host) {
			return true
		}
	}
	return false
}

func normalizeSubpath(subpath string) string {
	subpath = strings.Trim(subpath, "/")
	subpath = moduleExt.ReplaceAllString(subpath, "")
	if subpath == "mod" || strings.HasSuffix(subpath, "/mod") {
		return ""
	}
	return subpath
}

func resolveLegacy(pkg, subpath string) (string, bool) {
	subpath = normalizeSubpath(subpath)
	if mapped, ok := LegacyPackages[pkg]; ok {
		if mapped == Drop {
			return Drop, false
		}
		if mapped != pkg {
			return mapped, true
		}
	}
	if subpath == "" {
		return pkg, true
	}
	return pkg + "/" + subpath, true
}

func resolveStd(spec, subpath string) (string, bool) {
	subpath = normalizeSubpath(subpath)
	if subpath == "" {
		return spec, true
	}
	segment, rest, _ := strings.Cut(subpath, "/")
	if mapped, ok := StdModules[segment]; ok {
		if mapped == Drop {
			return Drop, false
		}
		segment = mapped
	} else {
		segment = "@std/" + segment
	}
	if rest == "" {
		return segment, true
	}
	return segment + "/" + rest, true
}

// SpecifierRule rewrites static import/export sources and npm: dynamic
// imports.
type SpecifierRule struct{}

func (SpecifierRule) Name() string { return "specifiers" }

func (SpecifierRule) Rewrite(doc *Document, _ *FileState) []Edit {
	var edits []Edit
	src := doc.Source()
	walker := parser.NewWalker(map[string]parser.NodeHandler{
		"import_statement": func(node *sitter.Node) bool {
			edits = appendStaticRewrite(edits, doc, node)
			return true
		},
		"export_statement": func(node *sitter.Node) bool {
			if source := node.ChildByFieldName("source"); source != nil {
				edits = appendStaticRewrite(edits, doc, node)
				return true
			}
			return false
		},
		"call_expression": func(node *sitter.Node) bool {
			arg := dynamicImportArgument(node)
			if arg == nil {
				return false
			}
			spec, _ := parser.StringContent(arg, src)
			if out := RewriteDynamicSpecifier(spec); out != spec {
				edits = append(edits, replaceStringContent(arg, out))
			}
			return false
		},
	})
	walker.Walk(doc.Root())
	return edits
}

func appendStaticRewrite(edits []Edit, doc *Document, stmt *sitter.Node) []Edit {
	source := stmt.ChildByFieldName("source")
	spec, ok := parser.StringContent(source, doc.Source())
	if !ok {
		return edits
	}
	out, keep := RewriteSpecifier(spec)
	if !keep {
		return append(edits, doc.removeStatement(stmt))
	}
	if out == spec {
		return edits
	}
	return append(edits, replaceStringContent(source, out))
}

// dynamicImportArgument returns the string argument of import("..."), or nil.
func dynamicImportArgument(call *sitter.Node) *sitter.Node {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "import" {
		return nil
	}
	args := parser.NamedChildren(call.ChildByFieldName("arguments"))
	if len(args) == 0 || args[0].Kind() != "string" {
		return nil
	}
	return args[0]
}
