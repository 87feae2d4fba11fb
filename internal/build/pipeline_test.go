package build

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/sitepack/internal/errors"
	"github.com/conneroisu/sitepack/internal/output"
	"github.com/conneroisu/sitepack/internal/profile"
	"github.com/conneroisu/sitepack/internal/testutils"
)

func findKey(t *testing.T, tree map[string]string, pattern string) string {
	t.Helper()
	re := regexp.MustCompile(pattern)
	for k := range tree {
		if re.MatchString(k) {
			return k
		}
	}
	t.Fatalf("no output file matches %s", pattern)
	return ""
}

func TestPipelineDevelopment(t *testing.T) {
	root := testutils.CreateSampleSite(t)
	cfg := testutils.CreateTestConfig(root)

	p := NewPipeline(cfg, profile.DevelopmentProfile(), nil)
	defer p.Close()

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, report.PassID)
	assert.Equal(t, profile.Development, report.Mode)
	assert.Equal(t, 2, report.Views)
	assert.Equal(t, 1, report.Icons)
	assert.Equal(t, []string{"about.html", "index.html"}, report.SortedPages())
	assert.Equal(t, "css/style.bundle.css", report.Style)
	assert.Equal(t, []string{"js/bundle.js"}, report.Scripts)

	tree := testutils.ReadTree(t, cfg.OutputDir())
	for _, name := range []string{
		"index.html", "about.html",
		"css/style.bundle.css", "js/bundle.js",
		"img/photo.jpg", "img/dot.png",
		"fonts/site.woff2", "favicon/favicon.ico",
	} {
		assert.Contains(t, tree, name)
	}
	assert.NotContains(t, tree, output.ManifestFile)
	assert.Equal(t, report.Files, len(tree))

	index := tree["index.html"]
	assert.Contains(t, index, `<link rel="stylesheet" href="css/style.bundle.css"/>`)
	assert.Contains(t, index, `<script src="js/bundle.js"></script>`)
	assert.Contains(t, index, `<symbol id="icon-menu"`)
	assert.Contains(t, index, `<use href="#icon-menu">`)
	assert.Contains(t, index, "data:image/png;base64,")
	assert.Contains(t, index, `src="img/photo.jpg"`)
	assert.Contains(t, index, "<title>Home</title>")
	assert.Less(t, strings.Index(index, "<symbol"), strings.Index(index, "<header>"))

	assert.Contains(t, tree["about.html"], "<title>About Us</title>")
	assert.Contains(t, tree["css/style.bundle.css"], "#336699")
	assert.Contains(t, tree["js/bundle.js"], "console.log")

	for name, content := range tree {
		assert.NotContains(t, content, report.PassID, name)
	}
}

func TestPipelineProduction(t *testing.T) {
	root := testutils.CreateSampleSite(t)
	cfg := testutils.CreateTestConfig(root)

	p := NewPipeline(cfg, profile.ProductionProfile(), nil)
	defer p.Close()

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	tree := testutils.ReadTree(t, cfg.OutputDir())
	css := findKey(t, tree, `^css/style\.bundle\.[0-9a-f]{8}\.css$`)
	runtime := findKey(t, tree, `^js/runtime\.[0-9a-f]{8}\.js$`)
	vendors := findKey(t, tree, `^js/vendors\.[0-9a-f]{8}\.js$`)
	main := findKey(t, tree, `^js/main\.[0-9a-f]{8}\.js$`)
	findKey(t, tree, `^img/photo\.[0-9a-f]{8}\.jpg$`)

	assert.Equal(t, css, report.Style)
	assert.Equal(t, []string{runtime, vendors, main}, report.Scripts)
	assert.Contains(t, tree, css+".map")
	for _, script := range report.Scripts {
		assert.Contains(t, tree, script+".map", script)
	}
	assert.Contains(t, tree, main+".gz")
	assert.Contains(t, tree, css+".gz")
	assert.Contains(t, tree, output.ManifestFile)
	assert.Contains(t, tree[output.ManifestFile], main)

	assert.NotContains(t, tree[main], "console.log")
	index := tree["index.html"]
	assert.Less(t, strings.Index(index, runtime), strings.Index(index, vendors))
	assert.Less(t, strings.Index(index, vendors), strings.Index(index, main))

	for name, content := range tree {
		assert.NotContains(t, content, report.PassID, name)
	}
}

func TestPipelineProductionIsDeterministic(t *testing.T) {
	root := testutils.CreateSampleSite(t)
	cfg := testutils.CreateTestConfig(root)

	first := NewPipeline(cfg, profile.ProductionProfile(), nil)
	_, err := first.Run(context.Background())
	require.NoError(t, err)
	want := testutils.ReadTree(t, cfg.OutputDir())

	second := NewPipeline(cfg, profile.ProductionProfile(), nil)
	_, err = second.Run(context.Background())
	require.NoError(t, err)
	got := testutils.ReadTree(t, cfg.OutputDir())

	assert.Equal(t, want, got)
}

func TestPipelineFailureKeepsPreviousOutput(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		edit  string
		check func(error) bool
	}{
		{"style syntax", "src/scss/style.scss", "body { color: }\n", errors.IsCompile},
		{"script import", "src/js/index.js", "import \"./gone.js\";\n", errors.IsCompile},
		{"template parse", "src/html/views/index.html", "{{ if }}", errors.IsCompile},
		{"missing asset", "src/html/views/index.html", `<img src="{{ asset "nope.png" }}">`, errors.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := testutils.CreateSampleSite(t)
			cfg := testutils.CreateTestConfig(root)
			p := NewPipeline(cfg, profile.DevelopmentProfile(), nil)
			defer p.Close()

			_, err := p.Run(context.Background())
			require.NoError(t, err)
			before := testutils.ReadTree(t, cfg.OutputDir())

			testutils.WriteFile(t, root, tt.path, tt.edit)
			_, err = p.Run(context.Background())
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)

			assert.Equal(t, before, testutils.ReadTree(t, cfg.OutputDir()))

			metrics := p.Metrics()
			assert.Equal(t, int64(2), metrics.TotalPasses)
			assert.Equal(t, int64(1), metrics.FailedPasses)
		})
	}
}

func TestPipelineMissingViews(t *testing.T) {
	root := testutils.CreateSampleSite(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "src", "html", "views")))

	p := NewPipeline(testutils.CreateTestConfig(root), profile.DevelopmentProfile(), nil)
	_, err := p.Run(context.Background())
	assert.True(t, errors.IsNotFound(err))
}

func TestPipelineWithoutIcons(t *testing.T) {
	root := testutils.CreateSampleSite(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "src", "icons")))

	cfg := testutils.CreateTestConfig(root)
	p := NewPipeline(cfg, profile.DevelopmentProfile(), nil)
	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Icons)

	tree := testutils.ReadTree(t, cfg.OutputDir())
	assert.NotContains(t, tree["index.html"], "<symbol")
}

func TestPipelineReloadClient(t *testing.T) {
	root := testutils.CreateSampleSite(t)
	cfg := testutils.CreateTestConfig(root)

	p := NewPipeline(cfg, profile.DevelopmentProfile(), nil, WithIncremental(), WithReloadPath("/__sitepack/reload"))
	defer p.Close()

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	testutils.WriteFile(t, root, "src/js/label.js", "export const label = \"again\";\n")
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	tree := testutils.ReadTree(t, cfg.OutputDir())
	assert.Contains(t, tree["index.html"], "/__sitepack/reload")
	assert.Contains(t, tree["js/bundle.js"], "again")
}
