package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/jaff/internal/build"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the output and temporary directories",
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if err := build.Clean(cfg.Paths.Dist, cfg.Paths.Tmp); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s and %s\n", cfg.Paths.Dist, cfg.Paths.Tmp)
	return nil
}
