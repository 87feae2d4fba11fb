package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitepack/internal/build"
	"github.com/conneroisu/sitepack/internal/config"
	"github.com/conneroisu/sitepack/internal/logging"
	"github.com/conneroisu/sitepack/internal/profile"
)

var buildCmd = &cobra.Command{
	Use:   "build [development|production]",
	Short: "Build the site once",
	Long: `Build the site once into the output directory.

The mode is taken from the argument, then --mode, then SITEPACK_MODE, then
NODE_ENV. Unknown modes build in development unless --strict-mode is set.

Examples:
  sitepack build                     # Development build
  sitepack build production          # Minified, hashed production build
  sitepack build --mode production   # Same as above
  sitepack build --output public     # Build into public/`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(profile.Development), string(profile.Production)},
	RunE:      runBuild,
}

var buildFlags *ModeFlags

func init() {
	rootCmd.AddCommand(buildCmd)
	buildFlags = addModeFlags(buildCmd.Flags())
}

func runBuild(cmd *cobra.Command, args []string) error {
	p, err := buildFlags.Profile(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	report, err := buildOnce(cmd.Context(), cfg, p, newLogger(!p.IsProduction()))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(report))
	return nil
}

// buildOnce runs a single pass and releases the pipeline.
func buildOnce(ctx context.Context, cfg *config.Config, p profile.BuildProfile, logger logging.Logger) (*build.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	pipeline := build.NewPipeline(cfg, p, logger)
	defer pipeline.Close()

	return pipeline.Run(ctx)
}
