// Package config provides configuration management for sitepack projects
// using Viper for flexible configuration loading from files, environment
// variables, and command-line flags.
//
// The configuration describes the project's directory layout (views,
// includes, styles and scripts entry points, icons, static directories and
// the output directory), the asset inlining threshold, the development
// server address and watch settings. Environment overrides use the
// SITEPACK_ prefix, e.g. SITEPACK_PATHS_OUTPUT=public.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DefaultInlineLimit is the largest image, in bytes, that is inlined as a
// data URL instead of being copied.
const DefaultInlineLimit = 8 * 1024

type Config struct {
	Paths  PathsConfig  `mapstructure:"paths" yaml:"paths"`
	Assets AssetsConfig `mapstructure:"assets" yaml:"assets"`
	Build  BuildConfig  `mapstructure:"build" yaml:"build"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Watch  WatchConfig  `mapstructure:"watch" yaml:"watch"`
}

type PathsConfig struct {
	Root     string       `mapstructure:"root" yaml:"root"`
	Views    string       `mapstructure:"views" yaml:"views"`
	Includes string       `mapstructure:"includes" yaml:"includes"`
	Styles   []string     `mapstructure:"styles" yaml:"styles"`
	Scripts  []string     `mapstructure:"scripts" yaml:"scripts"`
	Icons    string       `mapstructure:"icons" yaml:"icons"`
	Output   string       `mapstructure:"output" yaml:"output"`
	Static   []CopyTarget `mapstructure:"static" yaml:"static"`
}

// CopyTarget is a directory copied verbatim into the output tree. A missing
// From directory is skipped.
type CopyTarget struct {
	From string `mapstructure:"from" yaml:"from"`
	To   string `mapstructure:"to" yaml:"to"`
}

type AssetsConfig struct {
	InlineLimit int64  `mapstructure:"inline_limit" yaml:"inline_limit"`
	IconPrefix  string `mapstructure:"icon_prefix" yaml:"icon_prefix"`
}

type BuildConfig struct {
	Compress bool `mapstructure:"compress" yaml:"compress"`
	Manifest bool `mapstructure:"manifest" yaml:"manifest"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Ignore   []string      `mapstructure:"ignore" yaml:"ignore"`
}

// Default returns the configuration for the conventional src/ + dist/ layout.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Root:     ".",
			Views:    "src/html/views",
			Includes: "src/html/includes",
			Styles:   []string{"src/scss/style.scss"},
			Scripts:  []string{"src/js/index.js"},
			Icons:    "src/icons",
			Output:   "dist",
			Static:   DefaultStatic(),
		},
		Assets: AssetsConfig{
			InlineLimit: DefaultInlineLimit,
			IconPrefix:  "icon-",
		},
		Build: BuildConfig{
			Compress: true,
			Manifest: true,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 9000,
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
			Ignore:   []string{"node_modules", ".git", "*.swp", "*~", ".#*"},
		},
	}
}

// DefaultStatic lists the directories copied verbatim into the output.
func DefaultStatic() []CopyTarget {
	return []CopyTarget{
		{From: "src/fonts", To: "fonts"},
		{From: "src/favicon", To: "favicon"},
		{From: "src/img", To: "img"},
		{From: "src/uploads", To: "uploads"},
	}
}

// Load reads the configuration from viper, filling every unset value from
// Default.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load against a specific viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	def := Default()

	// Handle slices set via viper (workaround for viper slice handling from env)
	if v.IsSet("paths.styles") && len(config.Paths.Styles) == 0 {
		config.Paths.Styles = v.GetStringSlice("paths.styles")
	}
	if v.IsSet("paths.scripts") && len(config.Paths.Scripts) == 0 {
		config.Paths.Scripts = v.GetStringSlice("paths.scripts")
	}
	if v.IsSet("watch.ignore") && len(config.Watch.Ignore) == 0 {
		config.Watch.Ignore = v.GetStringSlice("watch.ignore")
	}

	if config.Paths.Root == "" {
		config.Paths.Root = def.Paths.Root
	}
	if config.Paths.Views == "" {
		config.Paths.Views = def.Paths.Views
	}
	if config.Paths.Includes == "" {
		config.Paths.Includes = def.Paths.Includes
	}
	if len(config.Paths.Styles) == 0 {
		config.Paths.Styles = def.Paths.Styles
	}
	if len(config.Paths.Scripts) == 0 {
		config.Paths.Scripts = def.Paths.Scripts
	}
	if config.Paths.Icons == "" {
		config.Paths.Icons = def.Paths.Icons
	}
	if config.Paths.Output == "" {
		config.Paths.Output = def.Paths.Output
	}
	if !v.IsSet("paths.static") && len(config.Paths.Static) == 0 {
		config.Paths.Static = def.Paths.Static
	}

	if !v.IsSet("assets.inline_limit") {
		config.Assets.InlineLimit = def.Assets.InlineLimit
	}
	if config.Assets.IconPrefix == "" {
		config.Assets.IconPrefix = def.Assets.IconPrefix
	}

	// Handle build settings set via viper (workaround for viper bool handling)
	if v.IsSet("build.compress") {
		config.Build.Compress = v.GetBool("build.compress")
	} else {
		config.Build.Compress = def.Build.Compress
	}
	if v.IsSet("build.manifest") {
		config.Build.Manifest = v.GetBool("build.manifest")
	} else {
		config.Build.Manifest = def.Build.Manifest
	}

	if config.Server.Host == "" {
		config.Server.Host = def.Server.Host
	}
	if config.Server.Port == 0 {
		config.Server.Port = def.Server.Port
	}

	if config.Watch.Debounce == 0 {
		config.Watch.Debounce = def.Watch.Debounce
	}
	if len(config.Watch.Ignore) == 0 {
		config.Watch.Ignore = def.Watch.Ignore
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Resolve joins a configured path onto the project root. Absolute paths are
// returned unchanged.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Paths.Root, p)
}

// ResolveAll applies Resolve to each path.
func (c *Config) ResolveAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = c.Resolve(p)
	}
	return out
}

// OutputDir returns the resolved output directory.
func (c *Config) OutputDir() string {
	return c.Resolve(c.Paths.Output)
}

// Addr returns the dev server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
