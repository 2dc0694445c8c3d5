// Package probe answers "does this path exist?" for the resolver.
//
// Every resolution decision esmify makes is driven by filesystem existence
// checks, so the check is an injected capability: OS for real runs, Memory for
// tests. Absence is never an error. Anything else the filesystem reports
// (permission denied, a broken mount) is returned to the caller as fatal.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// Prober reports whether a path exists.
type Prober interface {
	Exists(path string) (bool, error)
}

// OS probes the real filesystem.
type OS struct{}

// Exists stats path. ENOENT, ENOTDIR and ENAMETOOLONG all mean "not there".
func (OS) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if isAbsent(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to probe %s: %w", path, err)
}

func isAbsent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.ENOTDIR) ||
		errors.Is(err, syscall.ENAMETOOLONG)
}

// FindFirst returns the first dir/name in list order that exists, or "" when
// none of them do.
func FindFirst(p Prober, names []string, dir string) (string, error) {
	for _, name := range names {
		candidate := filepath.Join(dir, name)
		ok, err := p.Exists(candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}
	return "", nil
}

// FindFirstAsync probes every candidate concurrently and returns the first one
// in list order that exists. Only the pre-pass uses it; the rewrite path stays
// synchronous.
func FindFirstAsync(ctx context.Context, p Prober, names []string, dir string) (string, error) {
	found := make([]bool, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := p.Exists(filepath.Join(dir, name))
			if err != nil {
				return err
			}
			found[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	for i, ok := range found {
		if ok {
			return filepath.Join(dir, names[i]), nil
		}
	}
	return "", nil
}
