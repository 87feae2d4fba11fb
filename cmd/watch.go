package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitepack/internal/build"
	"github.com/conneroisu/sitepack/internal/config"
	"github.com/conneroisu/sitepack/internal/logging"
	"github.com/conneroisu/sitepack/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [development|production]",
	Short: "Build, then rebuild on every change",
	Long: `Build the site, then watch the project and rebuild whenever a source file
changes. Changes during a build are coalesced into one more build. A failed
build leaves the previous output in place.

Examples:
  sitepack watch                     # Development builds
  sitepack watch production          # Production builds on every change`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var watchFlags *ModeFlags

func init() {
	rootCmd.AddCommand(watchCmd)
	watchFlags = addModeFlags(watchCmd.Flags())
}

func runWatch(cmd *cobra.Command, args []string) error {
	p, err := watchFlags.Profile(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(!p.IsProduction())
	pipeline := build.NewPipeline(cfg, p, logger, build.WithIncremental())
	defer pipeline.Close()

	rb := build.NewRebuilder(pipeline, logger)
	rb.OnPass(printPass(cmd.OutOrStdout()))

	return watch(cmd.Context(), cfg, rb, logger)
}

// printPass prints a summary after every successful pass. Failures are
// already logged by the rebuilder.
func printPass(w io.Writer) build.PassFunc {
	return func(report *build.Report, err error) {
		if err != nil {
			fmt.Fprintln(w, renderError(err))
			return
		}
		fmt.Fprintln(w, renderSummary(report))
	}
}

// watch runs an initial pass, then triggers rb on every change under the
// project root until ctx is cancelled.
func watch(ctx context.Context, cfg *config.Config, rb *build.Rebuilder, logger logging.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	fw, err := newProjectWatcher(cfg, logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		logger.Info(ctx, "change detected", "files", watcher.Paths(events))
		rb.Trigger(ctx)
		return nil
	})

	rb.Trigger(ctx)

	if err := fw.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	logger.Info(ctx, "watching for changes", "root", cfg.Paths.Root)

	<-ctx.Done()
	rb.Wait()
	return nil
}

func newProjectWatcher(cfg *config.Config, logger logging.Logger) (*watcher.FileWatcher, error) {
	fw, err := watcher.NewFileWatcher(cfg.Watch.Debounce, watcher.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw.AddFilter(watcher.NoOutputFilter(cfg.OutputDir()))
	fw.AddFilter(watcher.IgnoreFilter(cfg.Watch.Ignore))
	fw.AddFilter(watcher.NoEditorTempFilter)
	fw.AddFilter(watcher.NoGitFilter)
	fw.AddFilter(watcher.NoNodeModulesFilter)

	if err := fw.AddRecursive(cfg.Paths.Root); err != nil {
		_ = fw.Stop()
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.Paths.Root, err)
	}
	return fw, nil
}
