//go:build integration
// +build integration

package integration_tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/sitepack/internal/build"
	"github.com/conneroisu/sitepack/internal/output"
	"github.com/conneroisu/sitepack/internal/profile"
	"github.com/conneroisu/sitepack/internal/testutils"
)

func TestIntegration_ProductionBuild(t *testing.T) {
	root := testutils.CreateSampleSite(t)
	cfg := testutils.CreateTestConfig(root)

	p := build.NewPipeline(cfg, profile.ProductionProfile(), nil)
	defer p.Close()

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	tree := testutils.ReadTree(t, cfg.OutputDir())

	hashed := regexp.MustCompile(`\.[0-9a-f]{8}\.(css|js)$`)
	require.Len(t, report.Scripts, 3)
	for _, name := range append([]string{report.Style}, report.Scripts...) {
		assert.Regexp(t, hashed, name)
		assert.Contains(t, tree, name)
		assert.Contains(t, tree, name+".map")
		assert.Contains(t, tree, name+".gz")
	}

	index := tree["index.html"]
	last := -1
	for _, name := range report.Scripts {
		i := strings.Index(index, `<script src="`+name+`"></script>`)
		require.Greater(t, i, last, name)
		last = i
	}

	var manifest map[string]string
	require.NoError(t, json.Unmarshal([]byte(tree[output.ManifestFile]), &manifest))
	assert.Equal(t, report.Style, manifest["style.bundle.css"])
	for i, logical := range []string{"runtime.js", "vendors.js", "main.js"} {
		assert.Equal(t, report.Scripts[i], manifest[logical], logical)
	}

	gz := tree[report.Style+".gz"]
	zr, err := gzip.NewReader(bytes.NewReader([]byte(gz)))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, tree[report.Style], string(plain))

	assert.NotContains(t, tree[filepath.ToSlash(report.Scripts[2])], "console.log")
}
