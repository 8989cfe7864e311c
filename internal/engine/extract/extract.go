// Package extract scans function sources for the third-party packages and
// environment variables they use. Scanning is textual and errs on the side
// of reporting too much: downstream manifest and configuration generation
// only needs a superset.
package extract

import (
	"edgeport/internal/engine/transform"
	"regexp"
	"strings"
)

var foreignSpecifier = regexp.MustCompile(
	"[\"'`]((?:npm|jsr):[^\"'`\\s]+|https?://(?:esm\\.sh|cdn\\.skypack\\.dev|unpkg\\.com|cdn\\.jsdelivr\\.net/npm|deno\\.land|x\\.nest\\.land|denopkg\\.com|crux\\.land)/[^\"'`\\s]+)[\"'`]",
)

// serveOnlyImport matches an import whose sole binding is serve. The
// converter removes it once the registration call is rewritten.
var serveOnlyImport = regexp.MustCompile(`import\s*\{\s*serve\s*,?\s*\}\s*from\s*["']([^"']+)["']\s*;?`)

// usageSignature ties an in-code call shape to the package it implies even
// when no matching import is present.
type usageSignature struct {
	pattern *regexp.Regexp
	pkg     string
}

var usageSignatures = []usageSignature{
	{regexp.MustCompile(`\bcreateClient\s*\([^)]*SUPABASE_URL`), "@supabase/supabase-js"},
	{regexp.MustCompile(`\bnew\s+Stripe\s*\(`), "stripe"},
	{regexp.MustCompile(`\bnew\s+OpenAI\s*\(`), "openai"},
	{regexp.MustCompile(`\bnew\s+Resend\s*\(`), "resend"},
}

var envPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Deno\.env\.get\(\s*["'` + "`" + `]([A-Za-z_][A-Za-z0-9_]*)["'` + "`" + `]\s*\)`),
	regexp.MustCompile(`process\.env\.([A-Za-z_][A-Za-z0-9_]*)`),
	regexp.MustCompile(`process\.env\[\s*["'` + "`" + `]([A-Za-z_][A-Za-z0-9_]*)["'` + "`" + `]\s*\]`),
	regexp.MustCompile(`import\.meta\.env\.([A-Za-z_][A-Za-z0-9_]*)`),
}

// PlatformEnvVars are injected by the hosting platform and often read
// indirectly, so a literal occurrence anywhere in the file counts.
var PlatformEnvVars = []string{
	"SUPABASE_URL",
	"SUPABASE_ANON_KEY",
	"SUPABASE_SERVICE_ROLE_KEY",
	"SUPABASE_DB_URL",
}

// ExtractDependencies returns the packages referenced by text, mapped the
// same way the specifier rewriter maps them. Dropped mappings are omitted.
func ExtractDependencies(text string) Set {
	deps := NewSet()
	text = serveOnlyImport.ReplaceAllStringFunc(text, func(stmt string) string {
		if transform.IsServeModule(serveOnlyImport.FindStringSubmatch(stmt)[1]) {
			return ""
		}
		return stmt
	})
	for _, m := range foreignSpecifier.FindAllStringSubmatch(text, -1) {
		out, keep := transform.RewriteSpecifier(m[1])
		if !keep || out == "" || transform.IsForeignSpecifier(out) {
			continue
		}
		deps.Add(transform.PackageRoot(out))
	}
	for _, sig := range usageSignatures {
		if sig.pattern.MatchString(text) {
			deps.Add(sig.pkg)
		}
	}
	return deps
}

// ExtractEnvVariables returns the environment variable names read by text.
func ExtractEnvVariables(text string) Set {
	vars := NewSet()
	for _, re := range envPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			vars.Add(m[1])
		}
	}
	for _, name := range PlatformEnvVars {
		if strings.Contains(text, name) {
			vars.Add(name)
		}
	}
	return vars
}
