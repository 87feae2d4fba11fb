// Package cmd provides the command-line interface for sitepack with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	The CLI reads configuration from several sources with clear precedence:
//	1. Command-line flags (--config, --root, --output, --port) - highest priority
//	2. SITEPACK_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (SITEPACK_PATHS_OUTPUT, etc.)
//	4. Configuration files (.sitepack.yml) - lowest priority
//
// Environment Variables:
//
//	SITEPACK_CONFIG_FILE: Path to custom configuration file
//	SITEPACK_MODE: Build mode when no mode argument or --mode flag is given
//	NODE_ENV: Consulted after SITEPACK_MODE
//	SITEPACK_SERVER_PORT: Override dev server port
//	And the rest following the SITEPACK_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/sitepack/internal/logging"
)

// ConfigEnvVar names an alternative configuration file.
const ConfigEnvVar = "SITEPACK_CONFIG_FILE"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sitepack",
	Short: "Build static front-end sites from views, SCSS and JavaScript",
	Long: `sitepack builds a static site from a source tree of page views, includes,
SCSS stylesheets, JavaScript modules, SVG icons and static files.

Every page in the views directory becomes one HTML file in the output
directory, with the compiled stylesheet, the bundled scripts and the icon
sprite injected. Production builds are minified, content hashed and split
into runtime, vendor and application scripts.

Quick Start:
  sitepack build                  Development build into dist/
  sitepack build production       Minified, hashed production build
  sitepack watch                  Rebuild on every change
  sitepack serve                  Watch and serve with live reload on :9000`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. ctx is cancelled on interrupt.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), renderError(err))
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .sitepack.yml, can also use SITEPACK_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("root", "", "project root directory")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output directory (default dist)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
}

func bindRootFlags() {
	_ = viper.BindPFlag("paths.root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("paths.output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig wires viper to the configuration sources.
//
// Configuration file priority (highest to lowest):
//  1. --config flag
//  2. SITEPACK_CONFIG_FILE environment variable
//  3. .sitepack.yml in the --root directory, then the current directory
//
// A missing default file is not an error; every unset value falls back to
// config.Default.
func initConfig() {
	bindRootFlags()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(ConfigEnvVar); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		if root, _ := rootCmd.PersistentFlags().GetString("root"); root != "" {
			viper.AddConfigPath(root)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sitepack")
	}

	viper.SetEnvPrefix("SITEPACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" || os.Getenv(ConfigEnvVar) != "" {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config file: %v\n", err)
	}
}

// newLogger builds the process logger. Development builds log to a console
// writer, production builds log JSON lines.
func newLogger(dev bool) logging.Logger {
	return logging.Setup(logging.ParseLevel(viper.GetString("log-level")), dev)
}
