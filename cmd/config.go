package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/jaff/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage jaff configuration",
	Long: `Manage jaff configuration files and settings.

Examples:
  jaff config init                # Write a .jaff.yml with the defaults
  jaff config validate            # Check the configuration against the site
  jaff config show                # Show the resolved configuration`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file",
	Long: `Write the resolved configuration, defaults included, to a file.

Examples:
  jaff config init                      # Write .jaff.yml
  jaff config init --src site -o a.yml  # Write a.yml with another source root`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the configuration and the site layout it points at.

This command checks for:
- Valid port ranges and hostnames
- Paths that stay inside the project
- Missing pages, templates and global data
- Templates that do not use the configured extension

Examples:
  jaff config validate            # Report errors and warnings
  jaff config validate --strict   # Treat warnings as errors`,
	RunE: runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Long: `Display the configuration after defaults, the configuration file,
environment variables and flags have been applied.`,
	RunE: runConfigShow,
}

var (
	configOutput string
	configForce  bool
	configStrict bool
)

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVarP(&configOutput, "output", "o", config.DefaultConfigName+".yml", "Output configuration file")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")

	configValidateCmd.Flags().BoolVar(&configStrict, "strict", false, "Treat warnings as errors")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.WriteConfigFile(cfg, configOutput, configForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s\n", configOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadUnvalidated()
	if err != nil {
		return err
	}

	result := config.ValidateConfigWithDetails(cfg)
	out := cmd.OutOrStdout()
	if !result.HasErrors() && !result.HasWarnings() {
		fmt.Fprintln(out, "Configuration is valid")
		return nil
	}

	fmt.Fprint(out, result.String())
	if result.HasErrors() {
		return fmt.Errorf("configuration has %d error(s)", len(result.Errors))
	}
	if configStrict {
		return fmt.Errorf("configuration has %d warning(s)", len(result.Warnings))
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "# from %s\n", used)
	}
	_, err = cmd.OutOrStdout().Write(config.Marshal(cfg))
	return err
}

// loadUnvalidated loads the configuration for validate, which reports
// problems itself instead of failing on the first one.
func loadUnvalidated() (*config.Config, error) {
	cfg, err := config.Load()
	if err == nil {
		return cfg, nil
	}

	var raw config.Config
	config.SetDefaults(viper.GetViper())
	if uerr := viper.Unmarshal(&raw); uerr != nil {
		return nil, errors.Join(err, uerr)
	}
	config.FillDerivedPaths(&raw)
	return &raw, nil
}
