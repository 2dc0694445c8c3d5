package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// File status constants
const (
	StatusChanged   = "CHANGED"   // File was rewritten
	StatusUnchanged = "UNCHANGED" // Nothing to rewrite
	StatusFailed    = "FAILED"    // Rewrite failed
)

// Rewrite reasons
const (
	ReasonExtension = "extension" // Extension or index file completed
	ReasonRedirect  = "redirect"  // Module redirect rule applied
)

// CopiedFile is a source file and the output path it was copied to
type CopiedFile struct {
	From string // Absolute path of the source file
	To   string // Absolute path in the output directory
}

// Specifier is a specifier occurrence in a file
type Specifier struct {
	Line  int    // 1-based line of the statement
	Value string // Specifier text
}

// Rewrite records one substituted specifier
type Rewrite struct {
	Line   int    // 1-based line of the statement
	From   string // Original specifier
	To     string // Rewritten specifier
	Reason string // ReasonExtension or ReasonRedirect
}

// FileReport is what the rewriter did to a single file
type FileReport struct {
	Rewrites   []Rewrite   // Substituted specifiers, in document order
	Unresolved []Specifier // Specifiers that could not be classified and were left as is
}

// Changed reports whether any specifier was rewritten
func (r *FileReport) Changed() bool {
	return r != nil && len(r.Rewrites) > 0
}

// FileResult represents the result of transforming a single file
type FileResult struct {
	File     CopiedFile    // The file that was transformed
	Status   string        // Status: "CHANGED", "UNCHANGED", "FAILED"
	Report   *FileReport   // Rewriter report, nil when the file failed before rewriting
	Before   []byte        // Source before rewriting (kept for dry-run diffs)
	After    []byte        // Source after rewriting
	Error    error         // Error if the transform failed
	Duration time.Duration // Time taken to transform
}

// RunResult represents the aggregate result of a run
type RunResult struct {
	RunID       string        // Identifier of the run
	TotalFiles  int           // Number of files copied and transformed
	Changed     int           // Files with at least one rewrite
	Unchanged   int           // Files left as they were
	Failed      int           // Files that failed
	Rewrites    int           // Total specifiers rewritten
	Unresolved  int           // Total specifiers left unresolved
	ModuleEntry string        // Value written to the package.json "module" field, if any
	Duration    time.Duration // Total run time
	Files       []FileResult  // Per-file results, ordered by source path
}

// UnresolvedFiles returns "file:line specifier" entries for every
// unresolved specifier, in file order. Source paths inside base are shown
// relative to it.
func (r *RunResult) UnresolvedFiles(base string) []string {
	var out []string
	for _, f := range r.Files {
		if f.Report == nil {
			continue
		}
		file := f.File.From
		if base != "" {
			if rel, err := filepath.Rel(base, file); err == nil && !strings.HasPrefix(rel, "..") {
				file = filepath.ToSlash(rel)
			}
		}
		for _, s := range f.Report.Unresolved {
			out = append(out, fmt.Sprintf("%s:%d %s", file, s.Line, s.Value))
		}
	}
	return out
}
