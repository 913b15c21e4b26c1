package git

import (
	"path/filepath"
	"sort"
)

// PathSet is a set of cleaned absolute file paths.
type PathSet map[string]struct{}

// NewPathSet builds a set from paths.
func NewPathSet(paths ...string) PathSet {
	s := make(PathSet, len(paths))
	for _, p := range paths {
		s.Add(p)
	}
	return s
}

// Add inserts p.
func (s PathSet) Add(p string) {
	s[filepath.Clean(p)] = struct{}{}
}

// Has reports whether p is in the set.
func (s PathSet) Has(p string) bool {
	_, ok := s[filepath.Clean(p)]
	return ok
}

// Sorted returns the paths in lexical order.
func (s PathSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
