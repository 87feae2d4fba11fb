package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/sitepack/internal/build"
	"github.com/conneroisu/sitepack/internal/config"
	"github.com/conneroisu/sitepack/internal/errors"
	"github.com/conneroisu/sitepack/internal/logging"
	"github.com/conneroisu/sitepack/internal/profile"
	"github.com/conneroisu/sitepack/internal/testutils"
)

func TestModeFlagsProfile(t *testing.T) {
	t.Setenv(profile.EnvVar, "")
	t.Setenv(profile.LegacyEnvVar, "")

	tests := []struct {
		name    string
		flags   ModeFlags
		args    []string
		want    profile.Mode
		wantErr bool
	}{
		{name: "default", want: profile.Development},
		{name: "argument", args: []string{"production"}, want: profile.Production},
		{name: "flag", flags: ModeFlags{Mode: "production"}, want: profile.Production},
		{name: "argument and matching flag", flags: ModeFlags{Mode: "production"}, args: []string{"production"}, want: profile.Production},
		{name: "argument conflicts with flag", flags: ModeFlags{Mode: "development"}, args: []string{"production"}, wantErr: true},
		{name: "unknown mode falls back", args: []string{"staging"}, want: profile.Development},
		{name: "unknown mode strict", flags: ModeFlags{Strict: true}, args: []string{"staging"}, wantErr: true},
		{name: "known mode strict", flags: ModeFlags{Strict: true}, args: []string{"production"}, want: profile.Production},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.flags.Profile(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Mode)
		})
	}
}

func TestModeFromEnvironment(t *testing.T) {
	t.Setenv(profile.EnvVar, "")
	t.Setenv(profile.LegacyEnvVar, "production")

	p, err := (&ModeFlags{}).Profile(nil)
	require.NoError(t, err)
	assert.True(t, p.IsProduction())

	p, err = (&ModeFlags{Mode: "development"}).Profile(nil)
	require.NoError(t, err)
	assert.False(t, p.IsProduction())
}

func TestBuildOnce(t *testing.T) {
	root := testutils.CreateSampleSite(t)
	cfg := testutils.CreateTestConfig(root)

	report, err := buildOnce(context.Background(), cfg, profile.ProductionProfile(), logging.Nop())
	require.NoError(t, err)
	require.Len(t, report.Scripts, 3)
	assert.True(t, strings.HasPrefix(report.Scripts[1], "js/vendors."))

	summary := renderSummary(report)
	assert.Contains(t, summary, "sitepack production")
	assert.Contains(t, summary, "about.html index.html")
	assert.Contains(t, summary, report.Style)
}

func TestBuildCommand(t *testing.T) {
	root := testutils.CreateSampleSite(t)
	t.Setenv(profile.EnvVar, "")
	t.Setenv(profile.LegacyEnvVar, "")
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"build", "--root", root, "--log-level", "error"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, Execute(context.Background()))
	assert.FileExists(t, filepath.Join(root, "dist", "index.html"))
	assert.FileExists(t, filepath.Join(root, "dist", "js", "bundle.js"))
	assert.Contains(t, out.String(), "sitepack development")
}

func TestBuildCommandReadsConfigFromRoot(t *testing.T) {
	root := testutils.CreateSampleSite(t)
	testutils.WriteFile(t, root, DefaultConfigFile, "paths:\n  output: public\n")
	t.Setenv(profile.EnvVar, "")
	t.Setenv(profile.LegacyEnvVar, "")
	t.Setenv(ConfigEnvVar, "")
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"build", "--root", root, "--log-level", "error"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, Execute(context.Background()))
	assert.Equal(t, filepath.Join(root, DefaultConfigFile), viper.ConfigFileUsed())
	assert.FileExists(t, filepath.Join(root, "public", "index.html"))
	assert.NoDirExists(t, filepath.Join(root, "dist"))
}

func TestRenderError(t *testing.T) {
	err := errors.NewCompileError("src/scss/style.scss", 4, 2, "expected \"}\"", nil)
	msg := renderError(err)
	assert.Contains(t, msg, "src/scss/style.scss:4:2")
	assert.Contains(t, msg, "expected")

	msg = renderError(errors.NewNotFoundError("src/js/index.js", nil))
	assert.Contains(t, msg, "src/js/index.js")
}

func TestRenderSummaryOptionalRows(t *testing.T) {
	summary := renderSummary(&build.Report{
		Mode:      profile.Development,
		OutputDir: "dist",
		Duration:  1500 * time.Microsecond,
		Pages:     []string{"index.html"},
		Files:     3,
		Bytes:     2048,
	})

	assert.Contains(t, summary, "2.0 KiB")
	assert.NotContains(t, summary, "vendors")
	assert.NotContains(t, summary, "icons")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "3.0 MiB", formatBytes(3<<20))
}

func TestWriteConfigRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, config.Default(), "yaml"))

	file := filepath.Join(t.TempDir(), ".sitepack.yml")
	require.NoError(t, os.WriteFile(file, buf.Bytes(), 0644))

	v := viper.New()
	v.SetConfigFile(file)
	require.NoError(t, v.ReadInConfig())

	cfg, err := config.LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	assert.Error(t, writeConfig(&buf, config.Default(), "toml"))
}

func TestLayoutWarnings(t *testing.T) {
	root := testutils.CreateSampleSite(t)
	cfg := testutils.CreateTestConfig(root)
	assert.Empty(t, layoutWarnings(cfg))

	cfg.Paths.Scripts = []string{"src/js/missing.js"}
	cfg.Paths.Views = "src/pages"
	warnings := layoutWarnings(cfg)
	assert.Len(t, warnings, 2)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() { versionFormat, versionShort = "text", false })

	versionFormat = "json"
	require.NoError(t, runVersionCommand(versionCmd, nil))
	assert.Contains(t, out.String(), `"go_version"`)

	versionFormat = "xml"
	assert.Error(t, runVersionCommand(versionCmd, nil))
}
