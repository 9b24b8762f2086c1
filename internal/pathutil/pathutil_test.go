package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "/", Normalize(""))
	assert.Equal(t, "/", Normalize("/"))
	assert.Equal(t, "/a/b", Normalize("a/b"))
	assert.Equal(t, "/a/b", Normalize("/a/b/"))
	assert.Equal(t, "/a/b", Normalize(`\a\b`))
}

func TestDirBaseDepth(t *testing.T) {
	assert.Equal(t, "/a", Dir("/a/b.mkv"))
	assert.Equal(t, "/", Dir("/a"))
	assert.Equal(t, "b.mkv", Base("/a/b.mkv"))
	assert.Equal(t, 0, Depth("/"))
	assert.Equal(t, 1, Depth("/a"))
	assert.Equal(t, 3, Depth("/a/b/c"))
}

func TestAncestorDirs(t *testing.T) {
	dirs := AncestorDirs([]string{
		"/tv/Show (2024)/Season 01/a.strm",
		"/tv/Show (2024)/Season 01/b.strm",
		"/tv/Other/c.strm",
	})
	assert.Equal(t, []string{
		"/tv",
		"/tv/Other",
		"/tv/Show (2024)",
		"/tv/Show (2024)/Season 01",
	}, dirs)
}
