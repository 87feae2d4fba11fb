package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "src/html/views", cfg.Paths.Views)
	assert.Equal(t, []string{"src/scss/style.scss"}, cfg.Paths.Styles)
	assert.Equal(t, []string{"src/js/index.js"}, cfg.Paths.Scripts)
	assert.EqualValues(t, 8192, cfg.Assets.InlineLimit)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Len(t, cfg.Paths.Static, 4)
}

func TestLoadOverrides(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(v *viper.Viper)
		verify func(t *testing.T, cfg *Config)
	}{
		{
			name: "custom output and entries",
			setup: func(v *viper.Viper) {
				v.Set("paths.output", "public")
				v.Set("paths.scripts", []string{"app/main.ts", "app/admin.ts"})
			},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "public", cfg.Paths.Output)
				assert.Equal(t, []string{"app/main.ts", "app/admin.ts"}, cfg.Paths.Scripts)
			},
		},
		{
			name: "inline limit zero disables inlining",
			setup: func(v *viper.Viper) {
				v.Set("assets.inline_limit", 0)
			},
			verify: func(t *testing.T, cfg *Config) {
				assert.EqualValues(t, 0, cfg.Assets.InlineLimit)
			},
		},
		{
			name: "compression can be turned off",
			setup: func(v *viper.Viper) {
				v.Set("build.compress", false)
			},
			verify: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Build.Compress)
				assert.True(t, cfg.Build.Manifest)
			},
		},
		{
			name: "debounce duration",
			setup: func(v *viper.Viper) {
				v.Set("watch.debounce", "50ms")
			},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)
			cfg, err := LoadFrom(v)
			require.NoError(t, err)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		setup func(v *viper.Viper)
	}{
		{"output is root", func(v *viper.Viper) { v.Set("paths.output", ".") }},
		{"output escapes root", func(v *viper.Viper) { v.Set("paths.output", "../dist") }},
		{"views inside output", func(v *viper.Viper) {
			v.Set("paths.output", "src")
		}},
		{"negative inline limit", func(v *viper.Viper) { v.Set("assets.inline_limit", -1) }},
		{"port out of range", func(v *viper.Viper) { v.Set("server.port", 70000) }},
		{"bad host", func(v *viper.Viper) { v.Set("server.host", "localhost;rm") }},
		{"bad port type", func(v *viper.Viper) { v.Set("server.port", "nope") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)
			cfg, err := LoadFrom(v)
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestResolve(t *testing.T) {
	cfg := Default()
	cfg.Paths.Root = "/project"

	assert.Equal(t, filepath.Join("/project", "dist"), cfg.OutputDir())
	assert.Equal(t, "/abs/path", cfg.Resolve("/abs/path"))
	assert.Equal(t, "", cfg.Resolve(""))
	assert.Equal(t, []string{filepath.Join("/project", "a.js")}, cfg.ResolveAll([]string{"a.js"}))
	assert.Equal(t, "localhost:9000", cfg.Addr())
}

func TestWithin(t *testing.T) {
	assert.True(t, within("dist", "dist"))
	assert.True(t, within("dist/js", "dist"))
	assert.False(t, within("distribution", "dist"))
	assert.False(t, within("src/js", "dist"))
}
