package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// addPathFlags adds the flags that relocate the site sources and output.
func addPathFlags(fs *pflag.FlagSet) {
	fs.String("src", "app", "Source root of the site")
	fs.String("dist", "dist", "Output directory")
}

// addServerFlags adds the development server flags.
func addServerFlags(fs *pflag.FlagSet) {
	fs.IntP("port", "p", 9000, "Port to serve on")
	fs.String("host", "localhost", "Host to bind to")
	fs.Bool("open", false, "Open the site in a browser once serving")
	fs.Bool("no-livereload", false, "Disable live reload")
}

// addWatchFlags adds the change detection flags.
func addWatchFlags(fs *pflag.FlagSet) {
	fs.Duration("debounce", 0, "Delay before rebuilding after a change (default from config, 300ms)")
}

// bindFlags binds each named flag of fs to a viper key. Flags only
// override the configuration when set on the command line.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		f := fs.Lookup(flag)
		if f == nil {
			panic(fmt.Sprintf("unknown flag %q", flag))
		}
		if err := viper.BindPFlag(key, f); err != nil {
			panic(err)
		}
	}
}

// applyServerFlags copies the server flags that were set into viper. The
// inverted livereload flag cannot be bound directly.
func applyServerFlags(fs *pflag.FlagSet) {
	if fs.Changed("no-livereload") {
		off, _ := fs.GetBool("no-livereload")
		viper.Set("server.livereload", !off)
	}
}

// applyWatchFlags copies the watch flags that were set into viper.
func applyWatchFlags(fs *pflag.FlagSet) {
	if fs.Changed("debounce") {
		d, _ := fs.GetDuration("debounce")
		viper.Set("watch.debounce", d)
	}
}
