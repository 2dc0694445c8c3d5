package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for esmify.
// Without a subcommand it behaves like "esmify run".
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "esmify",
		Short: "Rewrite JavaScript import specifiers for native ES modules",
		Long: `esmify copies a project's JavaScript sources into an output directory and
rewrites every import and re-export specifier so it loads under a strict
ES module loader: extensions and index files are completed, and packages
with a separate ESM build are redirected to it.

Configuration is read from .esmify, .esmify.json, .esmify.yaml, .esmify.yml
or .esmify.toml in the project root, or from the "config.esmify" or
"esmify" key of package.json. CLI flags override configuration values.`,
		Version: Version,
		Args:    cobra.NoArgs,
		RunE:    runCommand,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}
	addRunFlags(cmd)

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewResolveCommand())
	cmd.AddCommand(NewConfigCommand())

	return cmd
}
