package config

import (
	"fmt"
	"os"
	"strings"
)

// WriteConfigFile writes cfg as a commented YAML file. An existing file is
// only replaced when overwrite is set.
func WriteConfigFile(cfg *Config, filename string, overwrite bool) error {
	if _, err := os.Stat(filename); err == nil && !overwrite {
		return fmt.Errorf("configuration file %s already exists", filename)
	}

	if err := os.WriteFile(filename, Marshal(cfg), 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}

// Marshal renders cfg as the YAML accepted by Load.
func Marshal(cfg *Config) []byte {
	var builder strings.Builder

	builder.WriteString("# jaff configuration file\n\n")

	builder.WriteString("paths:\n")
	builder.WriteString("  # pages, templates and data/global.yaml live under src\n")
	fmt.Fprintf(&builder, "  src: %s\n", cfg.Paths.Src)
	fmt.Fprintf(&builder, "  dist: %s\n", cfg.Paths.Dist)
	fmt.Fprintf(&builder, "  tmp: %s\n", cfg.Paths.Tmp)

	builder.WriteString("\ntemplates:\n")
	fmt.Fprintf(&builder, "  extension: %s\n", cfg.Templates.Extension)
	fmt.Fprintf(&builder, "  cache: %t\n", cfg.Templates.Cache)

	builder.WriteString("\nmarkdown:\n")
	fmt.Fprintf(&builder, "  sanitize: %t\n", cfg.Markdown.Sanitize)

	builder.WriteString("\nserver:\n")
	fmt.Fprintf(&builder, "  host: %s\n", cfg.Server.Host)
	fmt.Fprintf(&builder, "  port: %d\n", cfg.Server.Port)
	fmt.Fprintf(&builder, "  open: %t\n", cfg.Server.Open)
	fmt.Fprintf(&builder, "  livereload: %t\n", cfg.Server.LiveReload)

	builder.WriteString("\nwatch:\n")
	fmt.Fprintf(&builder, "  debounce: %s\n", cfg.Watch.Debounce)

	return []byte(builder.String())
}
