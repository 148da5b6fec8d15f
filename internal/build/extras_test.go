package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyExtras(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "app")
	dist := filepath.Join(root, "dist")

	put(t, filepath.Join(src, "robots.txt"), "User-agent: *\n")
	put(t, filepath.Join(src, "favicon.ico"), "ico")
	put(t, filepath.Join(src, ".htaccess"), "Options -Indexes\n")
	put(t, filepath.Join(src, "index.html"), "<html></html>")
	put(t, filepath.Join(src, "LICENSE"), "MIT\n")
	put(t, filepath.Join(src, "pages", "index.yaml"), "template: page\n")

	copied, err := CopyExtras(src, dist)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"robots.txt", "favicon.ico", ".htaccess"}, copied)

	b, err := os.ReadFile(filepath.Join(dist, "robots.txt"))
	require.NoError(t, err)
	assert.Equal(t, "User-agent: *\n", string(b))

	assert.FileExists(t, filepath.Join(dist, ".htaccess"))
	assert.NoFileExists(t, filepath.Join(dist, "index.html"))
	assert.NoFileExists(t, filepath.Join(dist, "LICENSE"))
	assert.NoDirExists(t, filepath.Join(dist, "pages"))
}

func TestIsExtra(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"robots.txt", true},
		{".htaccess", true},
		{"site.webmanifest", true},
		{"index.html", false},
		{"INDEX.HTML", false},
		{"LICENSE", false},
		{"Makefile", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isExtra(tt.name))
		})
	}
}

func TestCopyExtrasMissingSource(t *testing.T) {
	_, err := CopyExtras(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	assert.Error(t, err)
}

func TestClean(t *testing.T) {
	root := t.TempDir()
	dist := filepath.Join(root, "dist")
	tmp := filepath.Join(root, ".tmp")
	put(t, filepath.Join(dist, "index.html"), "x")
	put(t, filepath.Join(tmp, "cache"), "x")

	require.NoError(t, Clean(dist, tmp, "", filepath.Join(root, "never-existed")))
	assert.NoDirExists(t, dist)
	assert.NoDirExists(t, tmp)
	assert.DirExists(t, root)
}
