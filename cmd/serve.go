package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/jaff/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Build, watch and serve the site with live reload",
	Long: `Build the site, rebuild it whenever a page, data file, template or extra
file changes, and serve it with live reload. Files missing from the output
directory are served from the source root.

Examples:
  jaff serve                 # Serve on localhost:9000
  jaff serve -p 8080 --open  # Serve on port 8080 and open a browser
  jaff serve --no-livereload # Plain static server`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addServerFlags(serveCmd.Flags())
	addWatchFlags(serveCmd.Flags())

	bindFlags(serveCmd.Flags(), map[string]string{
		"port": "server.port",
		"host": "server.host",
		"open": "server.open",
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	applyServerFlags(cmd.Flags())
	applyWatchFlags(cmd.Flags())

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := newSite(cfg, logger)
	srv := server.New(cfg, s.pipeline, logger)

	if _, err := s.buildAll(ctx); err != nil {
		return err
	}

	fw, err := s.watch(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer fw.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://%s\n", cfg.Paths.Dist, cfg.Server.Addr())
	if err := srv.Start(ctx); err != nil {
		return err
	}
	if ctx.Err() == context.Canceled {
		fmt.Fprintln(cmd.OutOrStdout(), "Server stopped")
	}
	return nil
}
