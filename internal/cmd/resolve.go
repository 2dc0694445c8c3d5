package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/harrison/esmify/internal/resolver"
	"github.com/harrison/esmify/internal/rewriter"
	"github.com/spf13/cobra"
)

// NewResolveCommand creates the resolve command
func NewResolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <file> <specifier>...",
		Short: "Show how specifiers imported by a file would be rewritten",
		Long: `Resolve each specifier as if it were imported by file, using the project
configuration, and print the rewritten specifier with what decided it:

  extension   an extension or index file was completed
  redirect    a module redirect rule applied
  unchanged   the specifier is already complete
  unresolved  no file or directory matches; left as written
  ignored     excluded by extension.ignore
  skipped     not a relative or bare specifier (alias, URL, node: ...)

Nothing is written. Relative specifiers resolve against the directory of
file, which does not need to exist.

Examples:
  esmify resolve src/index.js ./util ./components wootils/shared`,
		Args: cobra.MinimumNArgs(2),
		RunE: resolveCommand,
	}
	addConfigFlag(cmd)
	return cmd
}

func resolveCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	file, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}

	r := resolver.New(nil, resolver.Options{})
	opts, err := rewriter.NewOptions(r, cfg.ModulesDir(), cfg.Extension.Ignore, cfg.RedirectRules())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, spec := range args[1:] {
		res, err := opts.Resolve(file, spec)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s -> %s (%s)\n", spec, res.To, classification(res))
	}
	return nil
}

// classification names what decided a resolution
func classification(res rewriter.Resolution) string {
	switch {
	case res.Skipped:
		return "skipped"
	case res.Reason != "":
		return res.Reason
	case res.Ignored:
		return "ignored"
	case res.Unresolved:
		return "unresolved"
	default:
		return "unchanged"
	}
}
