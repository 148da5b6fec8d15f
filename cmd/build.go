package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/jaff/internal/build"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Render every page into the output directory",
	Long: `Render every page descriptor under the pages directory into HTML and copy
the extra top-level files of the source root (robots.txt, favicon.ico, ...)
to the output directory.

A page that fails to render is reported and skipped; the other pages are
still written. Use --strict to exit with an error when any page failed.

Examples:
  jaff build                 # Build into dist/
  jaff build --clean         # Remove dist/ and .tmp/ first
  jaff build --cache         # Reuse parsed templates between pages`,
	RunE: runBuild,
}

var (
	buildClean  bool
	buildStrict bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVar(&buildClean, "clean", false, "Remove build output before building")
	buildCmd.Flags().BoolVar(&buildStrict, "strict", false, "Fail when any page fails to build")
	buildCmd.Flags().Bool("cache", false, "Cache parsed templates")

	bindFlags(buildCmd.Flags(), map[string]string{"cache": "templates.cache"})
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	if buildClean {
		if err := build.Clean(cfg.Paths.Dist, cfg.Paths.Tmp); err != nil {
			return err
		}
	}

	s := newSite(cfg, logger)
	result, err := s.buildAll(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Built %d of %d pages into %s in %s\n",
		result.Written(), len(result.Pages), cfg.Paths.Dist, result.Duration.Round(1e6))

	if result.HasErrors() {
		fmt.Fprintln(cmd.ErrOrStderr(), result.Errors.Summary())
		if buildStrict {
			return fmt.Errorf("%d page(s) failed to build", result.Errors.Len())
		}
	}
	return nil
}
