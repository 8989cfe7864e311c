package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	m := map[string]int{"specifiers": 2, "entry-point": 1, "env-calls": 3}
	keys := SortedStringKeys(m)
	expected := []string{"entry-point", "env-calls", "specifiers"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected %q at %d, got %q", key, i, keys[i])
		}
	}
}

func TestRelSlash(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		base     string
		target   string
		expected string
	}{
		{name: "Nested", base: "supabase/functions", target: "supabase/functions/hello/index.ts", expected: "hello/index.ts"},
		{name: "Same", base: "out", target: "out", expected: "."},
		{name: "Sibling", base: "a/b", target: "a/c/d.ts", expected: "../c/d.ts"},
		{name: "MixedRoots", base: "/abs", target: "rel/x.ts", expected: "rel/x.ts"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := RelSlash(tc.base, tc.target); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "src", "functions", "hello", "index.ts")

	if err := WriteFileWithDirs(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := WriteFileWithDirs(path, []byte("second"), 0o644); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected %q, got %q", "second", string(got))
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no leftover temp files, got %d entries", len(entries))
	}
}
