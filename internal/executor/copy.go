package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/harrison/esmify/internal/config"
	"github.com/harrison/esmify/internal/filelock"
	"github.com/harrison/esmify/internal/fileutil"
	"github.com/harrison/esmify/internal/models"
	"golang.org/x/sync/errgroup"
)

// SourceExtension is the extension of the files esmify copies.
const SourceExtension = ".js"

// excludedDirs are never descended into.
var excludedDirs = []string{"node_modules"}

// planCopies maps every source file under the inputs to its destination in
// output. With a single input only its contents are copied unless
// force_directory is set; with several inputs each directory is copied
// itself, at its path relative to the project root.
func planCopies(cfg *config.Config, output string) ([]models.CopiedFile, error) {
	ignore, err := fileutil.CompilePatterns(cfg.Ignore)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidPattern, err)
	}

	inputs := cfg.InputPaths()
	keepDir := len(inputs) > 1 || cfg.ForceDirectory
	useMJS := cfg.Extension.Use == config.ExtensionMJS

	var files []models.CopiedFile
	seen := make(map[string]string)
	for _, in := range inputs {
		scan, err := fileutil.ScanDirectory(in, fileutil.ScanOptions{
			Extensions:  []string{SourceExtension},
			Recursive:   true,
			ExcludeDirs: excludedDirs,
			Ignore:      ignore,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan input %s: %w", in, err)
		}
		if len(scan.Errors) > 0 {
			return nil, NewFileError(PhaseCopy, in, scan.Errors[0])
		}

		prefix := ""
		if keepDir {
			prefix = inputPrefix(cfg.Root, in)
		}
		for _, src := range scan.Files {
			rel, err := filepath.Rel(in, src)
			if err != nil {
				return nil, NewFileError(PhaseCopy, src, err)
			}
			dst := filepath.Join(output, prefix, rel)
			if useMJS {
				dst = toMJS(dst)
			}
			if prev, ok := seen[dst]; ok {
				return nil, NewFileError(PhaseCopy, src, fmt.Errorf("destination %s already used by %s", dst, prev))
			}
			seen[dst] = src
			files = append(files, models.CopiedFile{From: src, To: dst})
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].From < files[j].From })
	return files, nil
}

// inputPrefix is where an input directory lands inside the output: its path
// relative to the root, or its base name when it lies outside the root.
func inputPrefix(root, in string) string {
	rel, err := filepath.Rel(root, in)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Base(in)
	}
	return rel
}

// toMJS swaps a trailing .js (any case) for .mjs.
func toMJS(path string) string {
	ext := filepath.Ext(path)
	if !strings.EqualFold(ext, SourceExtension) {
		return path
	}
	return strings.TrimSuffix(path, ext) + ".mjs"
}

// copyFiles copies the input files into output concurrently and returns
// them sorted by source path.
func (e *Executor) copyFiles(ctx context.Context, output string) ([]models.CopiedFile, error) {
	files, err := planCopies(e.cfg, output)
	if err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())

	for _, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := copyFile(f.From, f.To); err != nil {
				return NewFileError(PhaseCopy, f.From, err)
			}
			e.logger.LogTrace(fmt.Sprintf("Copied %s -> %s", e.relPath(f.From), e.relPath(f.To)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// copyFile copies src to dst keeping its permission bits.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return filelock.WriteFile(dst, data, info.Mode().Perm())
}

// concurrency is the errgroup limit for copies and rewrites.
func (e *Executor) concurrency() int {
	if e.cfg.MaxConcurrency > 0 {
		return e.cfg.MaxConcurrency
	}
	return runtime.GOMAXPROCS(0)
}
