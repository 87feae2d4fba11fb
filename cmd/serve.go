package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitepack/internal/build"
	"github.com/conneroisu/sitepack/internal/config"
	"github.com/conneroisu/sitepack/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [development|production]",
	Short: "Watch and serve the site with live reload",
	Long: `Build and watch the site like "sitepack watch", and serve the output
directory with live reload. Open pages reload after every successful build.

Examples:
  sitepack serve                     # http://localhost:9000
  sitepack serve --port 3000         # Another port`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

var serveFlags *ModeFlags

func init() {
	rootCmd.AddCommand(serveCmd)
	serveFlags = addModeFlags(serveCmd.Flags())
	addServerFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := serveFlags.Profile(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := newLogger(!p.IsProduction())
	pipeline := build.NewPipeline(cfg, p, logger,
		build.WithIncremental(),
		build.WithReloadPath(server.ReloadPath))
	defer pipeline.Close()

	srv := server.New(cfg, logger)

	rb := build.NewRebuilder(pipeline, logger)
	rb.OnPass(srv.OnPass)
	rb.OnPass(printPass(cmd.OutOrStdout()))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://%s\n", cfg.OutputDir(), cfg.Addr())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start(ctx)
		cancel()
	}()

	if err := watch(ctx, cfg, rb, logger); err != nil {
		cancel()
		<-serveErr
		return err
	}
	if err := <-serveErr; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
