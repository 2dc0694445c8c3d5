package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harrison/esmify/internal/config"
	"github.com/harrison/esmify/internal/display"
	"github.com/harrison/esmify/internal/manifest"
	"github.com/harrison/esmify/internal/models"
	"github.com/harrison/esmify/internal/probe"
	"github.com/harrison/esmify/internal/resolver"
	"github.com/harrison/esmify/internal/rewriter"
)

// Logger defines the interface for logging run progress and results.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogFileResult(result models.FileResult)
	LogSummary(result models.RunResult)
}

// Progress receives one Step per transformed file.
type Progress interface {
	Start(total int)
	Step(name string)
	Complete()
}

// Options tunes a single run. The zero value performs a normal run.
type Options struct {
	// RunID identifies the run in logs. Generated when empty.
	RunID string

	// DryRun stages the output in a temporary directory, prints diffs
	// and leaves the project untouched.
	DryRun bool

	// DiffOutput receives dry-run diffs (default os.Stdout).
	DiffOutput io.Writer

	// Progress is optional.
	Progress Progress

	// Prober backs specifier resolution (default probe.OS).
	Prober probe.Prober
}

// Executor runs the copy and rewrite pipeline for one configuration.
type Executor struct {
	cfg      *config.Config
	logger   Logger
	opts     Options
	resolver *resolver.Resolver
	rewrite  *rewriter.Options
}

// NewExecutor creates an Executor. The configuration must have been
// validated; redirect rules and ignore patterns are compiled here.
// The logger parameter is optional and can be nil.
func NewExecutor(cfg *config.Config, logger Logger, opts Options) (*Executor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	r := resolver.New(opts.Prober, resolver.Options{})
	rw, err := rewriter.NewOptions(r, cfg.ModulesDir(), cfg.Extension.Ignore, cfg.RedirectRules())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidPattern, err)
	}
	if opts.DiffOutput == nil {
		opts.DiffOutput = os.Stdout
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Executor{
		cfg:      cfg,
		logger:   logger,
		opts:     opts,
		resolver: r,
		rewrite:  rw,
	}, nil
}

// Run cleans the output directory, copies the input files into it, rewrites
// their specifiers and updates the package manifests. The result is returned
// even when the run fails, with whatever was processed before the failure.
func (e *Executor) Run(ctx context.Context) (*models.RunResult, error) {
	start := time.Now()
	runID := e.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	result := &models.RunResult{RunID: runID}

	output := e.cfg.OutputPath()
	if e.opts.DryRun {
		staging, err := os.MkdirTemp("", "esmify-dry-run-*")
		if err != nil {
			return result, fmt.Errorf("failed to create staging directory: %w", err)
		}
		defer os.RemoveAll(staging)
		output = staging
		e.logger.LogDebug(fmt.Sprintf("Dry run, staging output in %s", staging))
	} else {
		if err := ensureOutput(output); err != nil {
			return result, err
		}
		e.logger.LogInfo(fmt.Sprintf("Output directory %s cleaned", e.relPath(output)))
	}

	files, err := e.copyFiles(ctx, output)
	if err != nil {
		return result, err
	}
	e.logger.LogInfo(fmt.Sprintf("Copied %d files", len(files)))

	results, err := e.transformAll(ctx, files)
	aggregate(result, len(files), results)
	if err != nil {
		return e.finish(result, start), fmt.Errorf("transform failed: %w", err)
	}

	if e.opts.DryRun {
		if err := e.writeDiffs(results); err != nil {
			return e.finish(result, start), err
		}
		return e.finish(result, start), nil
	}

	if e.cfg.AddModuleEntry {
		entry, err := manifest.UpdateModuleEntry(ctx, e.cfg.Root, files, e.resolver)
		if err != nil {
			return e.finish(result, start), fmt.Errorf("failed to add module entry: %w", err)
		}
		if entry == "" {
			e.logger.LogDebug("No module entry written: main is unset or was not copied")
		} else {
			e.logger.LogInfo(fmt.Sprintf("Module entry set to %s", entry))
		}
		result.ModuleEntry = entry
	}

	if e.cfg.AddPackageJSON {
		if err := manifest.WriteTypeModule(output); err != nil {
			return e.finish(result, start), fmt.Errorf("failed to write output manifest: %w", err)
		}
		e.logger.LogDebug(fmt.Sprintf("Wrote %s", e.relPath(filepath.Join(output, manifest.FileName))))
	}

	return e.finish(result, start), nil
}

// finish stamps the duration and logs the summary.
func (e *Executor) finish(result *models.RunResult, start time.Time) *models.RunResult {
	result.Duration = time.Since(start)
	e.logger.LogSummary(*result)
	return result
}

// ensureOutput removes the output directory if it exists and creates it again.
func ensureOutput(output string) error {
	if err := os.RemoveAll(output); err != nil {
		return fmt.Errorf("failed to clean output directory: %w", err)
	}
	if err := os.MkdirAll(output, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// aggregate folds the per-file results into the run result.
func aggregate(result *models.RunResult, total int, files []models.FileResult) {
	result.TotalFiles = total
	result.Files = files
	for _, f := range files {
		switch f.Status {
		case models.StatusChanged:
			result.Changed++
		case models.StatusUnchanged:
			result.Unchanged++
		case models.StatusFailed:
			result.Failed++
		}
		if f.Report != nil {
			result.Rewrites += len(f.Report.Rewrites)
			result.Unresolved += len(f.Report.Unresolved)
		}
	}
}

func (e *Executor) writeDiffs(results []models.FileResult) error {
	for _, r := range results {
		if r.Status != models.StatusChanged {
			continue
		}
		if err := display.WriteDiff(e.opts.DiffOutput, e.relPath(r.File.From), r.Before, r.After); err != nil {
			return err
		}
	}
	return nil
}

// relPath returns p relative to the project root when it lies inside it.
func (e *Executor) relPath(p string) string {
	rel, err := filepath.Rel(e.cfg.Root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(rel)
}

type nopLogger struct{}

func (nopLogger) LogTrace(string) {}
func (nopLogger) LogDebug(string) {}
func (nopLogger) LogInfo(string) {}
func (nopLogger) LogWarn(string) {}
func (nopLogger) LogError(string) {}
func (nopLogger) LogFileResult(models.FileResult) {}
func (nopLogger) LogSummary(models.RunResult) {}
