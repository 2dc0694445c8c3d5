// Package display provides terminal output for the esmify CLI: progress
// lines, warnings and dry-run diffs.
//
// # Progress Indicators
//
//	progress := display.NewProgressIndicator(os.Stderr, "Transforming")
//	progress.Start(len(files))
//	progress.Step("src/index.js")
//	progress.Complete()
//
// # Warning Messages
//
//	if w, ok := display.WarnUnresolved(result, root); ok {
//	    w.Display(os.Stderr)
//	}
//
// # Diffs
//
// WriteDiff prints a unified diff (github.com/pmezard/go-difflib) of a file
// before and after rewriting, as shown by `esmify run --dry-run`.
//
// Colors come from github.com/fatih/color and are dropped automatically when
// the output is not a terminal or NO_COLOR is set. All functions accept an
// io.Writer.
package display
