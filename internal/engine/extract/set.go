package extract

import "sort"

// Set is a deduplicated set of names. The zero value is not usable; use
// NewSet.
type Set map[string]struct{}

func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

func (s Set) Add(value string) {
	if value == "" {
		return
	}
	s[value] = struct{}{}
}

func (s Set) Has(value string) bool {
	_, ok := s[value]
	return ok
}

// Union adds every member of other to s.
func (s Set) Union(other Set) {
	for v := range other {
		s[v] = struct{}{}
	}
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
