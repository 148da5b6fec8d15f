package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/jaff/internal/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve PAGE.yaml",
	Short: "Print the resolved context of a page",
	Long: `Load a page descriptor, merge the global document and resolve its imports,
then print the context its template would be rendered with.

Examples:
  jaff resolve app/pages/index.yaml
  jaff resolve app/pages/index.yaml --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var resolveFormat string

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", "json", "Output format (json, yaml)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	pc, err := resolver.New(cfg, logger).Resolve(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch resolveFormat {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(pc.Data)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(pc.Data); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format: %s (supported: json, yaml)", resolveFormat)
	}
}
