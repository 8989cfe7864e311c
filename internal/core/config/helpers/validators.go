package helpers

import (
	"path/filepath"
	"strings"
)

// HasWildcard reports whether pattern contains glob metacharacters.
func HasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[]{}")
}

// IsPathOverlap reports whether a and b are the same directory or one
// contains the other. Both paths are cleaned first.
func IsPathOverlap(a, b string) bool {
	return IsWithin(a, b) || IsWithin(b, a)
}

// IsWithin reports whether child is parent or lies below it.
func IsWithin(parent, child string) bool {
	parent, child = filepath.Clean(parent), filepath.Clean(child)
	if parent == child {
		return true
	}
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
