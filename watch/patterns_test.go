package watch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher(t *testing.T) {
	m := NewMatcher([]string{"/notebooks"}, []string{"**/*.ipynb"})

	tests := []struct {
		path string
		want bool
	}{
		{"/notebooks/analysis.ipynb", true},
		{"/notebooks/deep/nested/run.ipynb", true},
		{"/notebooks/readme.md", false},
		{"/elsewhere/analysis.ipynb", false},
		{"/notebooks.bak/analysis.ipynb", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.path))
		})
	}
}

func TestMatcher_MultipleRootsAndPatterns(t *testing.T) {
	m := NewMatcher(
		[]string{"/a", "/b"},
		[]string{"*.ipynb", "drafts/**/*.ipynb"},
	)

	assert.True(t, m.Match("/a/top.ipynb"))
	assert.True(t, m.Match("/b/drafts/x/y.ipynb"))
	assert.False(t, m.Match("/a/sub/hidden.ipynb"), "only top level and drafts match")
}

func TestMatcher_RelativeRoot(t *testing.T) {
	m := NewMatcher([]string{"data"}, []string{"**/*.ipynb"})
	assert.True(t, m.Match(filepath.Join("data", "x.ipynb")))
	assert.False(t, m.Match("other/x.ipynb"))
}
