package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/conneroisu/sitepack/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNewViewDescriptor(t *testing.T) {
	v := NewViewDescriptor(filepath.Join("src", "html", "views", "about-us.html"))

	assert.Equal(t, "about-us", v.Name)
	assert.Equal(t, ".html", v.Ext)
	assert.Equal(t, "about-us.html", v.OutputFilename)
	assert.Equal(t, filepath.Join("src", "html", "views", "about-us.html"), v.SourcePath)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.html"), "<html></html>")
	writeFile(t, filepath.Join(dir, "blog.md"), "# Blog")
	writeFile(t, filepath.Join(dir, "contacts.tmpl"), "{{ .Title }}")
	writeFile(t, filepath.Join(dir, ".DS_Store"), "")
	writeFile(t, filepath.Join(dir, "nested", "ignored.html"), "")

	views, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, views, 3)

	byName := make(map[string]ViewDescriptor)
	for _, v := range views {
		byName[v.Name] = v
	}

	assert.Equal(t, ".md", byName["blog"].Ext)
	assert.Equal(t, "blog.html", byName["blog"].OutputFilename)
	assert.Equal(t, ".tmpl", byName["contacts"].Ext)
	assert.Equal(t, "index.html", byName["index"].OutputFilename)
	assert.NotContains(t, byName, "ignored")
}

func TestDiscoverSymlinks(t *testing.T) {
	dir := t.TempDir()
	shared := t.TempDir()
	writeFile(t, filepath.Join(shared, "page.html"), "<p>shared</p>")
	require.NoError(t, os.MkdirAll(filepath.Join(shared, "partials"), 0755))

	if err := os.Symlink(filepath.Join(shared, "page.html"), filepath.Join(dir, "linked.html")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(shared, "partials"), filepath.Join(dir, "partials.html")))
	require.NoError(t, os.Symlink(filepath.Join(shared, "gone.html"), filepath.Join(dir, "dangling.html")))

	views, err := Discover(dir)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "linked", views[0].Name)
	assert.Equal(t, filepath.Join(dir, "linked.html"), views[0].SourcePath)
}

func TestDiscoverEmptyDirectory(t *testing.T) {
	views, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestDiscoverMissingDirectory(t *testing.T) {
	views, err := Discover(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Nil(t, views)
	assert.True(t, errors.IsNotFound(err))
}

func TestDiscoverCollision(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "about.html"), "")
	writeFile(t, filepath.Join(dir, "about.md"), "")

	_, err := Discover(dir)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "about.html")
}
