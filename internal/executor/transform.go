package executor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/harrison/esmify/internal/filelock"
	"github.com/harrison/esmify/internal/models"
	"github.com/harrison/esmify/internal/rewriter"
	"golang.org/x/sync/errgroup"
)

// transformAll rewrites the copied files concurrently. The first failing
// file cancels the rest; files that never started are left out of the
// returned results, which keep the order of files.
func (e *Executor) transformAll(ctx context.Context, files []models.CopiedFile) ([]models.FileResult, error) {
	if e.opts.Progress != nil {
		e.opts.Progress.Start(len(files))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())

	slots := make([]models.FileResult, len(files))
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result := e.transformFile(ctx, f)
			slots[i] = result
			e.logger.LogFileResult(result)
			if e.opts.Progress != nil {
				e.opts.Progress.Step(e.relPath(f.From))
			}
			if result.Error != nil {
				return NewFileError(PhaseTransform, f.From, result.Error)
			}
			return nil
		})
	}
	err := g.Wait()

	results := make([]models.FileResult, 0, len(files))
	for _, r := range slots {
		if r.Status != "" {
			results = append(results, r)
		}
	}
	if err == nil && e.opts.Progress != nil {
		e.opts.Progress.Complete()
	}
	return results, err
}

// transformFile rewrites one copied file in place. The file is only written
// when at least one specifier changed.
func (e *Executor) transformFile(ctx context.Context, f models.CopiedFile) models.FileResult {
	start := time.Now()
	result := models.FileResult{File: f}
	fail := func(err error) models.FileResult {
		result.Status = models.StatusFailed
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	info, err := os.Stat(f.To)
	if err != nil {
		return fail(err)
	}
	source, err := os.ReadFile(f.To)
	if err != nil {
		return fail(fmt.Errorf("failed to read: %w", err))
	}

	out, report, err := rewriter.RewriteSource(ctx, f.To, source, e.rewrite)
	if err != nil {
		return fail(err)
	}
	result.Report = report

	if !report.Changed() {
		result.Status = models.StatusUnchanged
		result.Duration = time.Since(start)
		return result
	}

	if err := filelock.WriteFile(f.To, out, info.Mode().Perm()); err != nil {
		return fail(fmt.Errorf("failed to write: %w", err))
	}
	if e.opts.DryRun {
		result.Before = source
		result.After = out
	}
	result.Status = models.StatusChanged
	result.Duration = time.Since(start)
	return result
}
