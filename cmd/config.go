package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/sitepack/internal/config"
)

// DefaultConfigFile is written by "config init" and read when present.
const DefaultConfigFile = ".sitepack.yml"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage sitepack configuration",
	Long: `Manage sitepack configuration files and settings.

Examples:
  sitepack config init                 # Write .sitepack.yml with the defaults
  sitepack config validate             # Validate .sitepack.yml
  sitepack config show                 # Show the resolved configuration`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default layout",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file and check that the directories and entry
points it names exist.

Examples:
  sitepack config validate                   # Validate .sitepack.yml
  sitepack config validate --file site.yml   # Validate a specific file
  sitepack config validate --strict          # Treat warnings as errors`,
	RunE: runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Long: `Display the configuration after loading the configuration file, applying
environment overrides and flags, and filling in defaults.`,
	RunE: runConfigShow,
}

var (
	configFile   string
	initFile     string
	configFormat string
	configStrict bool
	configForce  bool
)

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVarP(&initFile, "file", "f", DefaultConfigFile, "Configuration file to write")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")

	configValidateCmd.Flags().StringVarP(&configFile, "file", "f", "", "Configuration file to validate (default: .sitepack.yml)")
	configValidateCmd.Flags().BoolVar(&configStrict, "strict", false, "Treat warnings as errors")

	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "Output format (yaml, json)")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(initFile); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", initFile)
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return err
	}
	if err := os.WriteFile(initFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", initFile)
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	target := configFile
	if target == "" {
		target = DefaultConfigFile
	}
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return fmt.Errorf("configuration file %s does not exist (run 'sitepack config init' to create one)", target)
	}

	v := viper.New()
	v.SetConfigFile(target)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	cfg, err := config.LoadFrom(v)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	warnings := layoutWarnings(cfg)
	for _, w := range warnings {
		fmt.Fprintln(out, "warning: "+w)
	}
	if len(warnings) > 0 && configStrict {
		return fmt.Errorf("configuration validation failed in strict mode with %d warnings", len(warnings))
	}

	fmt.Fprintf(out, "%s is valid\n", target)
	return nil
}

// layoutWarnings lists configured paths that do not exist. Missing static
// directories are skipped by a build, so they are not reported.
func layoutWarnings(cfg *config.Config) []string {
	var warnings []string
	check := func(what, path string) {
		if _, err := os.Stat(cfg.Resolve(path)); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s %s does not exist", what, path))
		}
	}

	check("views directory", cfg.Paths.Views)
	for _, s := range cfg.Paths.Styles {
		check("stylesheet entry", s)
	}
	for _, s := range cfg.Paths.Scripts {
		check("script entry", s)
	}
	return warnings
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return writeConfig(cmd.OutOrStdout(), cfg, configFormat)
}

func writeConfig(w io.Writer, cfg *config.Config, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	default:
		return fmt.Errorf("unsupported format: %s (supported: yaml, json)", format)
	}
}
