package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func siteConfig(root string) *Config {
	src := filepath.Join(root, "app")
	return &Config{
		Paths: PathsConfig{
			Src:       src,
			Dist:      filepath.Join(root, "dist"),
			Tmp:       filepath.Join(root, ".tmp"),
			Pages:     filepath.Join(src, "pages"),
			Templates: filepath.Join(src, "templates"),
			Global:    filepath.Join(src, "data", "global.yaml"),
		},
		Templates: TemplatesConfig{Extension: ".html.tmpl"},
		Server:    ServerConfig{Host: "localhost", Port: 9000, LiveReload: true},
		Watch:     WatchConfig{Debounce: 300 * time.Millisecond},
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x: 1\n"), 0644))
}

func fields(issues []ValidationError) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Field)
	}
	return out
}

func TestValidateConfigWithDetails(t *testing.T) {
	t.Run("complete site", func(t *testing.T) {
		root := t.TempDir()
		cfg := siteConfig(root)
		touch(t, filepath.Join(cfg.Paths.Pages, "index.yaml"))
		touch(t, filepath.Join(cfg.Paths.Templates, "page.html.tmpl"))
		touch(t, cfg.Paths.Global)

		result := ValidateConfigWithDetails(cfg)
		assert.True(t, result.Valid)
		assert.False(t, result.HasErrors())
		assert.False(t, result.HasWarnings(), result.String())
		assert.Empty(t, result.String())
	})

	t.Run("missing source root", func(t *testing.T) {
		cfg := siteConfig(t.TempDir())

		result := ValidateConfigWithDetails(cfg)
		assert.True(t, result.Valid)
		assert.Equal(t, []string{"paths.src"}, fields(result.Warnings))
	})

	t.Run("empty source root", func(t *testing.T) {
		cfg := siteConfig(t.TempDir())
		require.NoError(t, os.MkdirAll(cfg.Paths.Src, 0755))

		result := ValidateConfigWithDetails(cfg)
		assert.True(t, result.Valid)
		assert.Equal(t, []string{"paths.pages", "paths.templates", "paths.global"}, fields(result.Warnings))
	})

	t.Run("templates with another extension", func(t *testing.T) {
		cfg := siteConfig(t.TempDir())
		touch(t, filepath.Join(cfg.Paths.Pages, "index.yaml"))
		touch(t, filepath.Join(cfg.Paths.Templates, "page.tmpl"))
		touch(t, cfg.Paths.Global)

		result := ValidateConfigWithDetails(cfg)
		assert.Equal(t, []string{"templates.extension"}, fields(result.Warnings))
	})

	t.Run("global with wrong extension", func(t *testing.T) {
		cfg := siteConfig(t.TempDir())
		cfg.Paths.Global = filepath.Join(cfg.Paths.Src, "data", "global.yml")
		touch(t, filepath.Join(cfg.Paths.Pages, "index.yaml"))
		touch(t, filepath.Join(cfg.Paths.Templates, "page.html.tmpl"))
		touch(t, cfg.Paths.Global)

		result := ValidateConfigWithDetails(cfg)
		assert.Equal(t, []string{"paths.global"}, fields(result.Warnings))
	})

	t.Run("output inside pages", func(t *testing.T) {
		cfg := siteConfig(t.TempDir())
		cfg.Paths.Dist = filepath.Join(cfg.Paths.Pages, "out")
		touch(t, filepath.Join(cfg.Paths.Pages, "index.yaml"))
		touch(t, filepath.Join(cfg.Paths.Templates, "page.html.tmpl"))
		touch(t, cfg.Paths.Global)

		result := ValidateConfigWithDetails(cfg)
		assert.Equal(t, []string{"paths.dist"}, fields(result.Warnings))
	})

	t.Run("errors", func(t *testing.T) {
		cfg := siteConfig(t.TempDir())
		cfg.Server.Port = 70000
		cfg.Server.Host = "bad host"
		cfg.Paths.Dist = cfg.Paths.Src
		cfg.Templates.Extension = ""
		cfg.Watch.Debounce = -time.Second

		result := ValidateConfigWithDetails(cfg)
		assert.False(t, result.Valid)
		assert.ElementsMatch(t,
			[]string{"server.port", "server.host", "paths.dist", "templates.extension", "watch.debounce"},
			fields(result.Errors))
		assert.Contains(t, result.String(), "Errors:")
		assert.Contains(t, result.String(), "hint:")
	})

	t.Run("public host warns", func(t *testing.T) {
		cfg := siteConfig(t.TempDir())
		cfg.Server.Host = "0.0.0.0"
		cfg.Server.Port = 80

		result := ValidateConfigWithDetails(cfg)
		assert.True(t, result.Valid)
		assert.Subset(t, fields(result.Warnings), []string{"server.host", "server.port"})
	})
}

func TestWriteConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".jaff.yml")

	cfg := siteConfig("")
	cfg.Paths = PathsConfig{Src: "site", Dist: "public", Tmp: ".tmp"}
	cfg.Server.Port = 8080
	cfg.Watch.Debounce = time.Second

	require.NoError(t, WriteConfigFile(cfg, file, false))
	assert.Error(t, WriteConfigFile(cfg, file, false), "existing file is kept")
	require.NoError(t, WriteConfigFile(cfg, file, true))

	v := viper.New()
	v.SetConfigFile(file)
	require.NoError(t, v.ReadInConfig())
	loaded, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, "site", loaded.Paths.Src)
	assert.Equal(t, "public", loaded.Paths.Dist)
	assert.Equal(t, filepath.Join("site", "pages"), loaded.Paths.Pages)
	assert.Equal(t, 8080, loaded.Server.Port)
	assert.Equal(t, time.Second, loaded.Watch.Debounce)
	assert.True(t, loaded.Server.LiveReload)
}
