// Package cmd provides the jaff command-line interface.
//
// Configuration is read, lowest priority first, from built-in defaults, a
// .jaff.yml file in the working directory (or the file named by --config or
// JAFF_CONFIG_FILE), JAFF_<SECTION>_<OPTION> environment variables such as
// JAFF_SERVER_PORT, and finally command-line flags.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/jaff/internal/config"
	"github.com/conneroisu/jaff/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "jaff",
	Short: "A static site generator driven by YAML page descriptors",
	Long: `jaff builds a static site from YAML page descriptors. Each descriptor
names a template and lists imports: YAML documents and Markdown files that are
loaded into the page context before rendering. A site-wide data/global.yaml
is available to every page under "global".

Quick Start:
  jaff build              Render every page into dist/
  jaff serve              Build, watch and serve with live reload
  jaff watch              Build and rebuild on change
  jaff resolve PAGE.yaml  Print the resolved context of one page
  jaff clean              Remove build output`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .jaff.yml, can also use JAFF_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	addPathFlags(rootCmd.PersistentFlags())

	bindFlags(rootCmd.PersistentFlags(), map[string]string{
		"log-level":  "log-level",
		"log-format": "log-format",
		"src":        "paths.src",
		"dist":       "paths.dist",
	})
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("JAFF_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(config.DefaultConfigName)
	}

	viper.SetEnvPrefix("JAFF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the logger selected by --log-level and --log-format.
func newLogger() (logging.Logger, error) {
	level, err := logging.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: viper.GetString("log-format"),
		Output: os.Stderr,
	}), nil
}

// loadConfig loads the configuration and the logger every command needs.
func loadConfig() (*config.Config, logging.Logger, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, logger, nil
}

// commandContext returns the command's context, or a background context
// when the command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
