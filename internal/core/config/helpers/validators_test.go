package helpers

import (
	"path/filepath"
	"testing"
)

func TestIsWithin(t *testing.T) {
	root := filepath.Join("repo", "supabase", "functions")
	cases := []struct {
		child string
		want  bool
	}{
		{root, true},
		{filepath.Join(root, "out"), true},
		{filepath.Join(root, "..", "functions", "x"), true},
		{filepath.Join("repo", "converted"), false},
		{filepath.Join("repo", "supabase", "functions-out"), false},
		{filepath.Join("repo", "supabase", "..foo"), false},
	}
	for _, tc := range cases {
		if got := IsWithin(root, tc.child); got != tc.want {
			t.Errorf("IsWithin(%q, %q) = %v, want %v", root, tc.child, got, tc.want)
		}
	}
}

func TestIsPathOverlap(t *testing.T) {
	if !IsPathOverlap("a/b", "a") || !IsPathOverlap("a", "a/b") {
		t.Fatal("expected nested paths to overlap")
	}
	if IsPathOverlap("a/b", "a/c") {
		t.Fatal("expected siblings not to overlap")
	}
}

func TestHasWildcard(t *testing.T) {
	if !HasWildcard("*.test.ts") || HasWildcard("index.ts") {
		t.Fatal("HasWildcard mismatch")
	}
}
