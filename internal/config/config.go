// Package config provides configuration management for jaff using Viper
// for loading from .jaff.yml, JAFF_ environment variables, and
// command-line flags.
//
// It describes where the site sources live (pages, templates, global data),
// how templates and markdown are rendered, and how the development server
// and watcher behave.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigName is the config file looked up in the working directory.
const DefaultConfigName = ".jaff"

type Config struct {
	Paths     PathsConfig     `mapstructure:"paths" yaml:"paths"`
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates"`
	Markdown  MarkdownConfig  `mapstructure:"markdown" yaml:"markdown"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Watch     WatchConfig     `mapstructure:"watch" yaml:"watch"`
}

// PathsConfig locates the site sources and outputs. Every path is
// relative to the working directory.
type PathsConfig struct {
	Src       string `mapstructure:"src" yaml:"src"`
	Dist      string `mapstructure:"dist" yaml:"dist"`
	Tmp       string `mapstructure:"tmp" yaml:"tmp"`
	Pages     string `mapstructure:"pages" yaml:"pages"`
	Templates string `mapstructure:"templates" yaml:"templates"`
	Global    string `mapstructure:"global" yaml:"global"`
}

type TemplatesConfig struct {
	Extension string `mapstructure:"extension" yaml:"extension"`
	Cache     bool   `mapstructure:"cache" yaml:"cache"`
}

type MarkdownConfig struct {
	Sanitize bool `mapstructure:"sanitize" yaml:"sanitize"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	Open       bool   `mapstructure:"open" yaml:"open"`
	LiveReload bool   `mapstructure:"livereload" yaml:"livereload"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// SetDefaults registers every default on v. The defaults mirror the
// layout of a freshly scaffolded site: sources in app/, output in dist/.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paths.src", "app")
	v.SetDefault("paths.dist", "dist")
	v.SetDefault("paths.tmp", ".tmp")

	v.SetDefault("templates.extension", ".html.tmpl")
	v.SetDefault("templates.cache", false)

	v.SetDefault("markdown.sanitize", false)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 9000)
	v.SetDefault("server.open", false)
	v.SetDefault("server.livereload", true)

	v.SetDefault("watch.debounce", 300*time.Millisecond)
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	FillDerivedPaths(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// FillDerivedPaths sets the paths derived from the source root unless they
// were set explicitly, and normalizes the template extension.
func FillDerivedPaths(cfg *Config) {
	if cfg.Paths.Pages == "" {
		cfg.Paths.Pages = filepath.Join(cfg.Paths.Src, "pages")
	}
	if cfg.Paths.Templates == "" {
		cfg.Paths.Templates = filepath.Join(cfg.Paths.Src, "templates")
	}
	if cfg.Paths.Global == "" {
		cfg.Paths.Global = filepath.Join(cfg.Paths.Src, "data", "global.yaml")
	}
	if cfg.Templates.Extension != "" && !strings.HasPrefix(cfg.Templates.Extension, ".") {
		cfg.Templates.Extension = "." + cfg.Templates.Extension
	}
}

// Addr returns the host:port the development server listens on.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// validateConfig validates configuration values for security and correctness
func validateConfig(cfg *Config) error {
	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	paths := map[string]string{
		"src":       cfg.Paths.Src,
		"dist":      cfg.Paths.Dist,
		"tmp":       cfg.Paths.Tmp,
		"pages":     cfg.Paths.Pages,
		"templates": cfg.Paths.Templates,
		"global":    cfg.Paths.Global,
	}
	for _, name := range []string{"src", "dist", "tmp", "pages", "templates", "global"} {
		if err := validatePath(paths[name]); err != nil {
			return fmt.Errorf("paths.%s: %w", name, err)
		}
	}

	if cfg.Paths.Dist == cfg.Paths.Src {
		return fmt.Errorf("paths.dist must differ from paths.src")
	}

	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(cfg *ServerConfig) error {
	// Port 0 lets the OS pick, which tests rely on.
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", cfg.Port)
	}

	if cfg.Host != "" {
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(cfg.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

// validatePath validates a configured file path
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes the project: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
