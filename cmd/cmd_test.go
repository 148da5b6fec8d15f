package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scaffold writes a small site into a fresh working directory.
func scaffold(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func testCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd, out, errOut
}

var siteFiles = map[string]string{
	"app/templates/page.html.tmpl": `<html><body><h1>{{.title}}</h1>{{index .imports 0}}<p>{{.global.site}}</p></body></html>`,
	"app/data/global.yaml":         "site: Jaff Demo\n",
	"app/content/intro.md":         "Hello *there*\n",
	"app/pages/index.yaml":         "template: page\ntitle: Home\nimports: [content/intro.md]\n",
	"app/robots.txt":               "User-agent: *\n",
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "jaff", rootCmd.Use)

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"build", "serve", "watch", "clean", "resolve", "version", "config"} {
		assert.True(t, names[want], "missing %s command", want)
	}

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("src"))
}

func TestBuildCommand(t *testing.T) {
	dir := scaffold(t, siteFiles)
	cmd, out, _ := testCommand()

	require.NoError(t, runBuild(cmd, nil))
	assert.Contains(t, out.String(), "Built 1 of 1 pages")

	page, err := os.ReadFile(filepath.Join(dir, "dist", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "<h1>Home</h1>")
	assert.Contains(t, string(page), "<em>there</em>")
	assert.Contains(t, string(page), "<p>Jaff Demo</p>")

	assert.FileExists(t, filepath.Join(dir, "dist", "robots.txt"))
}

func TestBuildCommandFailures(t *testing.T) {
	files := map[string]string{
		"app/templates/page.html.tmpl": `ok`,
		"app/pages/good.yaml":          "template: page\n",
		"app/pages/bad.yaml":           "template: [\n",
	}

	t.Run("lenient", func(t *testing.T) {
		dir := scaffold(t, files)
		cmd, out, errOut := testCommand()

		require.NoError(t, runBuild(cmd, nil))
		assert.Contains(t, out.String(), "Built 1 of 2 pages")
		assert.Contains(t, errOut.String(), "bad.yaml")
		assert.FileExists(t, filepath.Join(dir, "dist", "good.html"))
	})

	t.Run("strict", func(t *testing.T) {
		scaffold(t, files)
		buildStrict = true
		t.Cleanup(func() { buildStrict = false })

		cmd, _, _ := testCommand()
		err := runBuild(cmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 page(s) failed")
	})
}

func TestBuildCommandClean(t *testing.T) {
	dir := scaffold(t, map[string]string{
		"app/templates/page.html.tmpl": `ok`,
		"app/pages/index.yaml":         "template: page\n",
		"dist/stale.html":              "old",
	})
	buildClean = true
	t.Cleanup(func() { buildClean = false })

	cmd, _, _ := testCommand()
	require.NoError(t, runBuild(cmd, nil))
	assert.NoFileExists(t, filepath.Join(dir, "dist", "stale.html"))
	assert.FileExists(t, filepath.Join(dir, "dist", "index.html"))
}

func TestCleanCommand(t *testing.T) {
	dir := scaffold(t, map[string]string{
		"dist/index.html": "x",
		".tmp/cache":      "x",
		"app/robots.txt":  "keep",
	})

	cmd, out, _ := testCommand()
	require.NoError(t, runClean(cmd, nil))
	assert.Contains(t, out.String(), "Removed dist")
	assert.NoDirExists(t, filepath.Join(dir, "dist"))
	assert.NoDirExists(t, filepath.Join(dir, ".tmp"))
	assert.FileExists(t, filepath.Join(dir, "app", "robots.txt"))
}

func TestResolveCommand(t *testing.T) {
	scaffold(t, siteFiles)

	t.Run("json", func(t *testing.T) {
		resolveFormat = "json"
		cmd, out, _ := testCommand()
		require.NoError(t, runResolve(cmd, []string{"app/pages/index.yaml"}))

		var data map[string]interface{}
		require.NoError(t, json.Unmarshal(out.Bytes(), &data))
		assert.Equal(t, "Home", data["title"])
		assert.Equal(t, map[string]interface{}{"site": "Jaff Demo"}, data["global"])

		imports, ok := data["imports"].([]interface{})
		require.True(t, ok)
		require.Len(t, imports, 1)
		assert.Contains(t, imports[0], "<em>there</em>")
		assert.True(t, strings.Index(out.String(), `"template"`) < strings.Index(out.String(), `"title"`),
			"keys keep descriptor order")
	})

	t.Run("yaml", func(t *testing.T) {
		resolveFormat = "yaml"
		t.Cleanup(func() { resolveFormat = "json" })
		cmd, out, _ := testCommand()
		require.NoError(t, runResolve(cmd, []string{"app/pages/index.yaml"}))
		assert.Contains(t, out.String(), "title: Home")
		assert.True(t, strings.Index(out.String(), "template:") < strings.Index(out.String(), "title:"),
			"keys keep descriptor order")
		assert.True(t, strings.Index(out.String(), "title:") < strings.Index(out.String(), "imports:"))
	})

	t.Run("unsupported format", func(t *testing.T) {
		resolveFormat = "toml"
		t.Cleanup(func() { resolveFormat = "json" })
		cmd, _, _ := testCommand()
		assert.Error(t, runResolve(cmd, []string{"app/pages/index.yaml"}))
	})

	t.Run("missing page", func(t *testing.T) {
		cmd, _, _ := testCommand()
		assert.Error(t, runResolve(cmd, []string{"app/pages/nope.yaml"}))
	})
}

func TestVersionCommand(t *testing.T) {
	t.Cleanup(func() {
		versionFormat = "text"
		versionShort = false
	})

	cmd, out, _ := testCommand()
	require.NoError(t, runVersionCommand(cmd, nil))
	assert.Contains(t, out.String(), "Version:")
	assert.Contains(t, out.String(), "Platform:")

	versionShort = true
	cmd, out, _ = testCommand()
	require.NoError(t, runVersionCommand(cmd, nil))
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))

	versionFormat = "json"
	cmd, out, _ = testCommand()
	require.NoError(t, runVersionCommand(cmd, nil))
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")

	versionFormat = "xml"
	cmd, _, _ = testCommand()
	assert.Error(t, runVersionCommand(cmd, nil))
}

func TestApplyFlags(t *testing.T) {
	t.Cleanup(func() {
		viper.Set("server.livereload", true)
		viper.Set("watch.debounce", 300*time.Millisecond)
	})

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addServerFlags(fs)
	addWatchFlags(fs)

	require.NoError(t, fs.Parse([]string{}))
	viper.Set("server.livereload", true)
	applyServerFlags(fs)
	applyWatchFlags(fs)
	assert.True(t, viper.GetBool("server.livereload"), "unset flags leave config alone")

	require.NoError(t, fs.Parse([]string{"--no-livereload", "--debounce", "1s"}))
	applyServerFlags(fs)
	applyWatchFlags(fs)
	assert.False(t, viper.GetBool("server.livereload"))
	assert.Equal(t, time.Second, viper.GetDuration("watch.debounce"))
}

func TestBindFlagsUnknownFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	assert.Panics(t, func() { bindFlags(fs, map[string]string{"nope": "x"}) })
}

func TestConfigCommands(t *testing.T) {
	t.Cleanup(func() {
		configOutput = ".jaff.yml"
		configForce = false
		configStrict = false
	})

	t.Run("validate complete site", func(t *testing.T) {
		scaffold(t, siteFiles)
		cmd, out, _ := testCommand()
		require.NoError(t, runConfigValidate(cmd, nil))
		assert.Equal(t, "Configuration is valid\n", out.String())
	})

	t.Run("validate missing site", func(t *testing.T) {
		scaffold(t, nil)
		cmd, out, _ := testCommand()
		require.NoError(t, runConfigValidate(cmd, nil))
		assert.Contains(t, out.String(), "Warnings:")
		assert.Contains(t, out.String(), "paths.src")

		configStrict = true
		cmd, _, _ = testCommand()
		assert.Error(t, runConfigValidate(cmd, nil))
		configStrict = false
	})

	t.Run("init and show", func(t *testing.T) {
		dir := scaffold(t, nil)
		configOutput = ".jaff.yml"

		cmd, out, _ := testCommand()
		require.NoError(t, runConfigInit(cmd, nil))
		assert.Contains(t, out.String(), "Configuration saved to .jaff.yml")

		written, err := os.ReadFile(filepath.Join(dir, ".jaff.yml"))
		require.NoError(t, err)
		assert.Contains(t, string(written), "src: app")
		assert.Contains(t, string(written), "debounce: 300ms")

		cmd, _, _ = testCommand()
		assert.Error(t, runConfigInit(cmd, nil), "existing file is kept without --force")

		configForce = true
		cmd, _, _ = testCommand()
		assert.NoError(t, runConfigInit(cmd, nil))

		cmd, out, _ = testCommand()
		require.NoError(t, runConfigShow(cmd, nil))
		assert.Contains(t, out.String(), "port: 9000")
		assert.Contains(t, out.String(), "livereload: true")
	})
}
