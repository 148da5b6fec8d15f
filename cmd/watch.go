package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/jaff/internal/build"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Build the site and rebuild it on change",
	Long: `Build the site and rebuild it whenever a page, data file, template or extra
file changes, without serving it.

Examples:
  jaff watch                          # Rebuild on change
  jaff watch --debounce 1s            # Wait longer for edits to settle
  jaff watch --command "rsync -a dist/ host:site/"  # Run a command after each rebuild`,
	RunE: runWatch,
}

var watchCommand string

func init() {
	rootCmd.AddCommand(watchCmd)

	addWatchFlags(watchCmd.Flags())
	watchCmd.Flags().StringVarP(&watchCommand, "command", "c", "", "Command to run after each rebuild")
}

func runWatch(cmd *cobra.Command, args []string) error {
	applyWatchFlags(cmd.Flags())

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := newSite(cfg, logger)
	result, err := s.buildAll(ctx)
	if err != nil {
		return err
	}
	report(cmd, result)

	fw, err := s.watch(ctx, func(result *build.Result) {
		report(cmd, result)
		runHook(ctx, logger, watchCommand)
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer fw.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes. Press Ctrl+C to stop.\n", cfg.Paths.Src)
	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "Stopped watching")
	return nil
}

func report(cmd *cobra.Command, result *build.Result) {
	fmt.Fprintf(cmd.OutOrStdout(), "Built %d of %d pages in %s\n",
		result.Written(), len(result.Pages), result.Duration.Round(1e6))
	if result.HasErrors() {
		fmt.Fprintln(cmd.ErrOrStderr(), result.Errors.Summary())
	}
}
