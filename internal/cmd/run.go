package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/harrison/esmify/internal/config"
	"github.com/harrison/esmify/internal/display"
	"github.com/harrison/esmify/internal/executor"
	"github.com/harrison/esmify/internal/logger"
	"github.com/harrison/esmify/internal/models"
	"github.com/harrison/esmify/internal/watch"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Copy the sources and rewrite their specifiers",
		Long: `Copy the input directories into the output directory and rewrite every
relative and bare import specifier of the copies.

The output directory is removed and recreated on every run. Source files are
never modified.

Examples:
  # Use the project configuration
  esmify run

  # Several inputs, .mjs output
  esmify run --input src --input tools --output esm --use-mjs

  # Show what would change without writing anything
  esmify run --dry-run

  # Re-run whenever a source file changes
  esmify run --watch`,
		Args: cobra.NoArgs,
		RunE: runCommand,
	}
	addRunFlags(cmd)
	return cmd
}

// addRunFlags registers the run flags, shared by the root command
func addRunFlags(cmd *cobra.Command) {
	addConfigFlag(cmd)
	cmd.Flags().StringArray("input", nil, "Input directory (repeatable, default from config: src)")
	cmd.Flags().String("output", "", "Output directory (default from config: esm)")
	cmd.Flags().Bool("force-directory", false, "Copy a single input directory itself instead of its contents")
	cmd.Flags().Bool("use-mjs", false, "Rename the copied files to .mjs")
	cmd.Flags().Int("max-concurrency", 0, "Maximum number of files processed at once (0 = number of CPUs)")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().String("log-dir", "", "Directory for run log files")
	cmd.Flags().Bool("dry-run", false, "Print diffs instead of writing the output")
	cmd.Flags().Bool("watch", false, "Re-run when a source file changes")
}

// overridesFromFlags collects the flags the user set
func overridesFromFlags(cmd *cobra.Command) config.Overrides {
	var o config.Overrides
	flags := cmd.Flags()

	if flags.Changed("input") {
		o.Input, _ = flags.GetStringArray("input")
	}
	if flags.Changed("output") {
		v, _ := flags.GetString("output")
		o.Output = &v
	}
	if flags.Changed("force-directory") {
		v, _ := flags.GetBool("force-directory")
		o.ForceDirectory = &v
	}
	if flags.Changed("use-mjs") {
		v, _ := flags.GetBool("use-mjs")
		o.UseMJS = &v
	}
	if flags.Changed("max-concurrency") {
		v, _ := flags.GetInt("max-concurrency")
		o.MaxConcurrency = &v
	}
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		o.LogLevel = &v
	}
	if flags.Changed("log-dir") {
		v, _ := flags.GetString("log-dir")
		o.LogDir = &v
	}
	return o
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Merge CLI flags with config (flags take precedence)
	cfg.MergeWithFlags(overridesFromFlags(cmd))

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	watchFlag, _ := cmd.Flags().GetBool("watch")
	ctx := cmd.Context()

	err = runOnce(ctx, cmd, cfg, dryRun)
	if !watchFlag {
		return err
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return watchInputs(ctx, cmd, cfg, dryRun)
}

// runOnce performs one full run with fresh loggers
func runOnce(ctx context.Context, cmd *cobra.Command, cfg *config.Config, dryRun bool) error {
	runID := uuid.NewString()

	out := logger.NewSyncWriter(cmd.OutOrStdout())
	console := logger.NewConsoleLogger(out, cfg.LogLevel)
	console.SetBaseDir(cfg.Root)
	sinks := []logger.Sink{console}

	if logDir := cfg.LogDirPath(); logDir != "" {
		fileLog, err := logger.NewFileLogger(logDir, cfg.LogLevel, runID)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		defer fileLog.Close()
		sinks = append(sinks, fileLog)
	}
	multiLog := logger.NewMultiLogger(sinks...)

	opts := executor.Options{
		RunID:      runID,
		DryRun:     dryRun,
		DiffOutput: out,
	}
	// Per-file results replace the progress lines at debug and below
	if cfg.LogLevel == "info" {
		opts.Progress = display.NewProgressIndicator(out, "Transforming")
	}

	multiLog.LogInfo(fmt.Sprintf("Configuration: %s", cfg.Source))
	exec, err := executor.NewExecutor(cfg, multiLog, opts)
	if err != nil {
		return err
	}
	result, err := exec.Run(ctx)
	if result != nil {
		warnUnresolved(cmd.ErrOrStderr(), result, cfg.Root)
	}
	if err != nil {
		if dryRun {
			return fmt.Errorf("dry run failed: %w", err)
		}
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}

// watchInputs re-runs on every batch of source changes until ctx is done
func watchInputs(ctx context.Context, cmd *cobra.Command, cfg *config.Config, dryRun bool) error {
	w, err := watch.New(cfg.InputPaths(), watch.Options{SkipDirs: []string{"node_modules"}})
	if err != nil {
		return fmt.Errorf("failed to watch inputs: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %d input director%s for changes (Ctrl+C to stop)...\n",
		len(cfg.Input), pluralSuffix(len(cfg.Input), "y", "ies"))

	err = w.Loop(ctx, func(ctx context.Context, batch []watch.Event) error {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d change(s) detected, re-running...\n", len(batch))
		return runOnce(ctx, cmd, cfg, dryRun)
	}, func(err error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	})
	// Cancellation is the normal way out of watch mode
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

func warnUnresolved(out io.Writer, result *models.RunResult, root string) {
	if w, ok := display.WarnUnresolved(result, root); ok {
		w.Display(out)
	}
}

func pluralSuffix(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
