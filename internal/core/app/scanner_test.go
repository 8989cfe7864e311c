package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	cfg, functions := testConfig(t)
	writeTree(t, functions, map[string]string{
		"zeta/main.ts":               "export default 1;\n",
		"zeta/index.ts":              "export default 2;\n",
		"alpha/main.ts":              "export default 3;\n",
		"alpha/main.test.ts":         "test",
		"alpha/node_modules/x/a.ts":  "ignored",
		"_private/index.ts":          "export default 4;\n",
		".hidden/index.ts":           "export default 5;\n",
		"_shared/db.ts":              "export const db = 1;\n",
		"_shared/types.d.ts":         "export type T = string;\n",
		"_shared/nested/supabase.ts": "export const s = 1;\n",
		"README.md":                  "top-level files are not functions",
	})

	a := newTestApp(t, cfg)
	layout, err := a.Discover()
	require.NoError(t, err)

	require.Len(t, layout.Functions, 2)
	assert.Equal(t, "alpha", layout.Functions[0].Name)
	assert.Equal(t, "main.ts", layout.Functions[0].EntryFile)
	assert.Equal(t, []string{filepath.Join(functions, "alpha", "main.ts")}, layout.Functions[0].Files)

	assert.Equal(t, "zeta", layout.Functions[1].Name)
	assert.Equal(t, "index.ts", layout.Functions[1].EntryFile)
	assert.Equal(t, []string{
		filepath.Join(functions, "zeta", "index.ts"),
		filepath.Join(functions, "zeta", "main.ts"),
	}, layout.Functions[1].Files)

	assert.Equal(t, filepath.Join(functions, "_shared"), layout.SharedDir)
	assert.Equal(t, []string{
		filepath.Join(functions, "_shared", "db.ts"),
		filepath.Join(functions, "_shared", "nested", "supabase.ts"),
	}, layout.SharedFiles)
	assert.Equal(t, 5, layout.FileCount())
}

func TestDiscover_CustomSharedDir(t *testing.T) {
	cfg, functions := testConfig(t)
	cfg.Convert.SharedDir = "_common"
	cfg.Convert.SharedImportPath = "../../common/"
	writeTree(t, functions, map[string]string{
		"hello/index.ts":  "import { c } from \"../_common/c.ts\";\nexport default c;\n",
		"_common/c.ts":    "export const c = 1;\n",
		"_shared/skip.ts": "export const s = 1;\n",
	})

	a := newTestApp(t, cfg)
	_, err := a.Run(context.Background())
	require.NoError(t, err)

	out := readOutput(t, cfg, "src/functions/hello/index.ts")
	assert.Contains(t, out, `from "../../common/c.js"`)
	assert.FileExists(t, filepath.Join(cfg.Paths.OutputDir, "src", "shared", "c.ts"))
	assert.NoFileExists(t, filepath.Join(cfg.Paths.OutputDir, "src", "shared", "skip.ts"))
}

func TestOutputForSource(t *testing.T) {
	cfg, functions := testConfig(t)
	out := cfg.Paths.OutputDir

	tests := []struct {
		name   string
		source string
		want   string
		ok     bool
	}{
		{"function file", filepath.Join(functions, "hello", "index.ts"), filepath.Join(out, "src", "functions", "hello", "index.ts"), true},
		{"nested function file", filepath.Join(functions, "hello", "lib", "a.ts"), filepath.Join(out, "src", "functions", "hello", "lib", "a.ts"), true},
		{"function dir", filepath.Join(functions, "hello"), filepath.Join(out, "src", "functions", "hello"), true},
		{"shared file", filepath.Join(functions, "_shared", "cors.ts"), filepath.Join(out, "src", "shared", "cors.ts"), true},
		{"shared dir", filepath.Join(functions, "_shared"), filepath.Join(out, "src", "shared"), true},
		{"underscore dir", filepath.Join(functions, "_private", "x.ts"), "", false},
		{"top-level file", filepath.Join(functions, "README.md"), "", false},
		{"outside root", filepath.Join(cfg.Paths.SourceRoot, "other.ts"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := outputForSource(cfg, tt.source)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleChanges_RemovesStaleOutputs(t *testing.T) {
	cfg, functions := testConfig(t)
	writeTree(t, functions, map[string]string{
		"hello/index.ts": "export default 1;\n",
		"hello/old.ts":   "export const old = 1;\n",
	})

	a := newTestApp(t, cfg)
	_, err := a.Run(context.Background())
	require.NoError(t, err)
	stale := filepath.Join(cfg.Paths.OutputDir, "src", "functions", "hello", "old.ts")
	require.FileExists(t, stale)

	removed := filepath.Join(functions, "hello", "old.ts")
	require.NoError(t, os.Remove(removed))
	writeTree(t, functions, map[string]string{"hello/index.ts": "Deno.serve((req) => new Response(\"ok\"));\n"})

	report, err := a.HandleChanges(context.Background(), []string{removed, filepath.Join(functions, "hello", "index.ts")})
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
	assert.Equal(t, 1, report.Totals.Files)
	assert.Contains(t, readOutput(t, cfg, "src/functions/hello/index.ts"), "export default handler;")
}

func TestHandleChanges_RemovesDeletedFunctionDir(t *testing.T) {
	cfg, functions := testConfig(t)
	writeTree(t, functions, map[string]string{
		"hello/index.ts": "export default 1;\n",
		"bye/index.ts":   "export default 2;\n",
		"bye/lib/a.ts":   "export const a = 1;\n",
	})

	a := newTestApp(t, cfg)
	_, err := a.Run(context.Background())
	require.NoError(t, err)
	staleDir := filepath.Join(cfg.Paths.OutputDir, "src", "functions", "bye")
	require.DirExists(t, staleDir)

	removed := filepath.Join(functions, "bye")
	require.NoError(t, os.RemoveAll(removed))

	report, err := a.HandleChanges(context.Background(), []string{removed})
	require.NoError(t, err)
	assert.NoDirExists(t, staleDir)
	assert.FileExists(t, filepath.Join(cfg.Paths.OutputDir, "src", "functions", "hello", "index.ts"))
	assert.Equal(t, 1, report.Totals.Functions)
}

func TestHandleChanges_DryRunKeepsDeletedFunctionDir(t *testing.T) {
	cfg, functions := testConfig(t)
	writeTree(t, functions, map[string]string{"bye/index.ts": "export default 2;\n"})

	a := newTestApp(t, cfg)
	_, err := a.Run(context.Background())
	require.NoError(t, err)
	staleDir := filepath.Join(cfg.Paths.OutputDir, "src", "functions", "bye")
	require.DirExists(t, staleDir)

	a.Config.Convert.DryRun = true
	removed := filepath.Join(functions, "bye")
	require.NoError(t, os.RemoveAll(removed))
	_, err = a.HandleChanges(context.Background(), []string{removed})
	require.NoError(t, err)
	assert.DirExists(t, staleDir)
}
