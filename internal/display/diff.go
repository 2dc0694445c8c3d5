package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
)

// DiffContext is the number of unchanged lines shown around each change
const DiffContext = 3

// UnifiedDiff returns the unified diff between before and after, labelled
// a/<name> and b/<name>. Identical inputs give "".
func UnifiedDiff(name string, before, after []byte) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  DiffContext,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("failed to diff %s: %w", name, err)
	}
	return text, nil
}

// WriteDiff prints the diff of one file with added lines in green, removed
// lines in red and hunk headers in cyan.
func WriteDiff(out io.Writer, name string, before, after []byte) error {
	text, err := UnifiedDiff(name, before, after)
	if err != nil || text == "" {
		return err
	}

	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	hunk := color.New(color.FgCyan)
	header := color.New(color.Bold)

	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		line = strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			line = header.Sprint(line)
		case strings.HasPrefix(line, "@@"):
			line = hunk.Sprint(line)
		case strings.HasPrefix(line, "+"):
			line = added.Sprint(line)
		case strings.HasPrefix(line, "-"):
			line = removed.Sprint(line)
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
