package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ValidationError represents a configuration problem with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Valid    bool
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	write := func(title string, issues []ValidationError) {
		if len(issues) == 0 {
			return
		}
		builder.WriteString(title + ":\n")
		for _, issue := range issues {
			fmt.Fprintf(&builder, "  - %s: %s\n", issue.Field, issue.Message)
			for _, suggestion := range issue.Suggestions {
				fmt.Fprintf(&builder, "      hint: %s\n", suggestion)
			}
		}
	}

	write("Errors", vr.Errors)
	write("Warnings", vr.Warnings)
	return builder.String()
}

func (vr *ValidationResult) addError(field string, value interface{}, message string, suggestions ...string) {
	vr.Errors = append(vr.Errors, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

func (vr *ValidationResult) addWarning(field string, value interface{}, message string, suggestions ...string) {
	vr.Warnings = append(vr.Warnings, ValidationError{Field: field, Value: value, Message: message, Suggestions: suggestions})
}

// ValidateConfigWithDetails checks cfg against the site on disk. Errors
// make a build impossible; warnings describe layouts that build but are
// probably not what the user meant.
func ValidateConfigWithDetails(cfg *Config) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	validateServerConfigDetails(&cfg.Server, result)
	validatePathsConfigDetails(&cfg.Paths, result)
	validateTemplatesConfigDetails(cfg, result)

	if cfg.Watch.Debounce < 0 {
		result.addError("watch.debounce", cfg.Watch.Debounce, "debounce must not be negative")
	}

	result.Valid = !result.HasErrors()
	return result
}

func validateServerConfigDetails(cfg *ServerConfig, result *ValidationResult) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		result.addError("server.port", cfg.Port,
			fmt.Sprintf("port %d is not in valid range 0-65535", cfg.Port),
			"Use a port between 1024-65535 for non-privileged access",
			"Port 0 allows system to assign an available port")
	} else if cfg.Port > 0 && cfg.Port < 1024 {
		result.addWarning("server.port", cfg.Port, "port below 1024 requires elevated privileges",
			"Consider using a port above 1024 for development")
	}

	if cfg.Host != "" {
		if err := validateHostname(cfg.Host); err != nil {
			result.addError("server.host", cfg.Host, err.Error(),
				"Use 'localhost' for local development")
		} else if cfg.Host == "0.0.0.0" || cfg.Host == "::" {
			result.addWarning("server.host", cfg.Host, "the development server is reachable from other machines",
				"Use 'localhost' unless you need to preview from another device")
		}
	}
}

func validatePathsConfigDetails(cfg *PathsConfig, result *ValidationResult) {
	fields := []struct {
		name string
		path string
	}{
		{"paths.src", cfg.Src},
		{"paths.dist", cfg.Dist},
		{"paths.tmp", cfg.Tmp},
		{"paths.pages", cfg.Pages},
		{"paths.templates", cfg.Templates},
		{"paths.global", cfg.Global},
	}
	for _, f := range fields {
		if err := validatePath(f.path); err != nil {
			result.addError(f.name, f.path, err.Error())
		}
	}

	if filepath.Clean(cfg.Dist) == filepath.Clean(cfg.Src) {
		result.addError("paths.dist", cfg.Dist, "output directory must differ from the source root",
			"Use 'dist' next to the source root")
		return
	}

	if !isDir(cfg.Src) {
		result.addWarning("paths.src", cfg.Src, "source root does not exist",
			"Create it or point paths.src (--src) at your site")
		return
	}
	if !isDir(cfg.Pages) {
		result.addWarning("paths.pages", cfg.Pages, "pages directory does not exist, nothing will be built")
	}
	if !isDir(cfg.Templates) {
		result.addWarning("paths.templates", cfg.Templates, "templates directory does not exist, every page will fail")
	}
	if !pathExists(cfg.Global) {
		result.addWarning("paths.global", cfg.Global, "global data file does not exist, pages get no global key")
	} else if ext := filepath.Ext(cfg.Global); ext != ".yaml" {
		result.addWarning("paths.global", cfg.Global, "global data must be a .yaml file and will be ignored")
	}
	if within(cfg.Dist, cfg.Pages) || within(cfg.Dist, cfg.Templates) {
		result.addWarning("paths.dist", cfg.Dist, "output directory is inside the site sources",
			"Keep build output outside pages and templates")
	}
}

func validateTemplatesConfigDetails(cfg *Config, result *ValidationResult) {
	if cfg.Templates.Extension == "" {
		result.addError("templates.extension", "", "template extension must not be empty",
			"The default is .html.tmpl")
		return
	}
	if !isDir(cfg.Paths.Templates) {
		return
	}

	found := false
	_ = filepath.WalkDir(cfg.Paths.Templates, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && strings.HasSuffix(path, cfg.Templates.Extension) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	if !found {
		result.addWarning("templates.extension", cfg.Templates.Extension,
			fmt.Sprintf("no templates ending in %s under %s", cfg.Templates.Extension, cfg.Paths.Templates))
	}
}

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil || host == "localhost" {
		return nil
	}
	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}
	return nil
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// within reports whether path lies inside dir.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}
