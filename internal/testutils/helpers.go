// Package testutils provides fixtures shared by the package tests: a
// temporary project with the conventional src/ layout, a matching
// configuration and helpers to snapshot and poll the output tree.
package testutils

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/sitepack/internal/config"
)

// SampleFiles is the site CreateSampleSite writes, keyed by path relative to
// the project root.
var SampleFiles = map[string]string{
	"src/html/views/index.html": `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{ title "home" }}</title></head>
<body>
{{ include "header.html" }}
<main><img src="{{ asset "../../img/dot.png" }}" alt=""><img src="{{ asset "../../img/photo.jpg" }}" alt=""></main>
<div id="signup" class="just-modal"><div class="just-modal__overlay"></div></div>
</body>
</html>
`,
	"src/html/views/about.md":           "---\ntitle: About Us\n---\n# About\n\nWe build sites.\n",
	"src/html/includes/header.html":     `<header>{{ icon "menu" }}<a class="js-btn-modal" data-modal="signup" href="#">Sign up</a></header>`,
	"src/scss/_vars.scss":               "$brand: #336699;\n",
	"src/scss/style.scss":               "@import \"vars\";\nbody { color: $brand; .hero { background: url(../img/photo.jpg); } }\n",
	"src/js/index.js":                   "import \"sitepack:modal\";\nimport pad from \"leftpad\";\nimport { label } from \"./label.js\";\nconsole.log(label);\ndocument.documentElement.dataset.ready = pad(label);\n",
	"src/js/label.js":                   "export const label = \"ready\";\n",
	"src/icons/menu.svg":                `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24" width="24"><path d="M3 6h18M3 12h18M3 18h18"/></svg>`,
	"src/img/dot.png":                   "tiny png",
	"src/img/photo.jpg":                 string(make([]byte, 9000)),
	"src/fonts/site.woff2":              "font",
	"src/favicon/favicon.ico":           "ico",
	"node_modules/leftpad/package.json": `{"name":"leftpad","main":"index.js"}`,
	"node_modules/leftpad/index.js":     "module.exports = function (s) { return \">\" + s; };\n",
}

// CreateTempProject creates an empty project with the conventional source
// directories.
func CreateTempProject(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	dirs := []string{
		"src/html/views",
		"src/html/includes",
		"src/scss",
		"src/js",
		"src/icons",
	}

	for _, dir := range dirs {
		err := os.MkdirAll(filepath.Join(tempDir, dir), 0755)
		require.NoError(t, err)
	}

	return tempDir
}

// CreateSampleSite creates a project populated with SampleFiles.
func CreateSampleSite(t *testing.T) string {
	t.Helper()
	root := CreateTempProject(t)
	for rel, content := range SampleFiles {
		WriteFile(t, root, rel, content)
	}
	return root
}

// WriteFile writes content to rel under root, creating directories.
func WriteFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// CreateTestConfig returns the default configuration rooted at projectDir.
func CreateTestConfig(projectDir string) *config.Config {
	cfg := config.Default()
	cfg.Paths.Root = projectDir
	cfg.Watch.Debounce = 20 * time.Millisecond
	return cfg
}

// ReadTree returns every regular file under dir, keyed by slash-separated
// relative path.
func ReadTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	tree := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	require.NoError(t, err)
	return tree
}

// WaitForCondition polls cond until it holds or timeout elapses.
func WaitForCondition(t *testing.T, cond func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// WaitForFileChange waits for a file to be modified (useful for testing file watchers)
func WaitForFileChange(
	t *testing.T,
	filePath string,
	originalModTime time.Time,
	timeout time.Duration,
) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}
