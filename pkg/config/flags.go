package config

import (
	"github.com/spf13/pflag"
)

// NewFlagSet declares one flag per config key. Flag defaults only show in
// help output; unset flags never override file or env values.
func NewFlagSet(name string) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)

	f.StringP("workspace", "w", ".", "Path to the workspace root")
	f.String("plugin.dir", "target", "Root directory of the analyzer plugin artifacts")
	f.String("plugin.build", "release", "Plugin build configuration (debug or release)")
	f.Bool("plugin.builtin", false, "Use the built-in analyzers when a plugin artifact cannot be loaded")
	f.String("ctags.binary", "ctags", "universal-ctags executable")
	f.Duration("ctags.timeout", 0, "Timeout for one ctags invocation (default 30s)")
	f.Duration("timeout", 0, "Timeout for a whole analysis run (default 2m)")
	f.Int("concurrency", 0, "Maximum plugins running at once (0 = all)")
	f.StringSlice("ignore", nil, "Extra glob patterns to exclude from the scan")
	f.Bool("gitignore", true, "Honour .gitignore files")
	f.StringP("format", "f", FormatText, "Output format (text or json)")
	f.Bool("web", false, "Serve the report over HTTP instead of exiting")
	f.Int("port", 8080, "Port for the web server (only used with --web)")
	f.Bool("watch", false, "Re-run the analysis when sources or build files change")
	f.String("verbosity", "", "Log level (trace, debug, info, warn, error)")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.Bool("log.json", false, "Write logs as JSON")

	return f
}
