// Package watch observes directories of notebook files and emits parsed
// documents as they appear and change. Jupyter persists execution outputs
// into the notebook file, so for on-disk documents a file change doubles as
// an output-mutation notification.
package watch

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher selects notebook files under a set of roots using doublestar
// glob patterns (e.g. "**/*.ipynb").
type Matcher struct {
	roots    []string
	patterns []string
}

// NewMatcher creates a matcher. Patterns are evaluated against the path
// relative to whichever root contains it.
func NewMatcher(roots, patterns []string) *Matcher {
	return &Matcher{roots: roots, patterns: patterns}
}

// Match reports whether path is a notebook file under one of the roots.
func (m *Matcher) Match(path string) bool {
	for _, root := range m.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || filepath.IsAbs(rel) || startsWithParent(rel) {
			continue
		}
		for _, pattern := range m.patterns {
			if ok, err := doublestar.PathMatch(pattern, rel); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func startsWithParent(rel string) bool {
	return rel == ".." || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
