package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/esmify/internal/models"
)

// Warning represents a user-facing warning message
type Warning struct {
	Title      string   // Main warning title
	Message    string   // Detailed explanation (optional)
	Files      []string // Related files (optional)
	Suggestion string   // Action to take (optional)
}

// Display shows a formatted warning in yellow
func (w Warning) Display(out io.Writer) {
	var b strings.Builder

	b.WriteString("⚠️  Warning: ")
	b.WriteString(w.Title)
	b.WriteString("\n")

	if w.Message != "" {
		b.WriteString("    ")
		b.WriteString(w.Message)
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("    ")
		if len(w.Files) == 1 {
			b.WriteString("Affected file:\n")
		} else {
			b.WriteString("Affected files:\n")
		}
		for i, file := range w.Files {
			fmt.Fprintf(&b, "      %d. %s\n", i+1, file)
		}
	}

	if w.Suggestion != "" {
		b.WriteString("    Suggestion:\n")
		b.WriteString("    ")
		b.WriteString(w.Suggestion)
		b.WriteString("\n")
	}

	color.New(color.FgYellow).Fprint(out, b.String())
}

// WarnUnresolved builds the warning listing the specifiers a run left
// untouched because their target could not be found. ok is false when
// there is nothing to warn about.
func WarnUnresolved(result *models.RunResult, baseDir string) (Warning, bool) {
	entries := result.UnresolvedFiles(baseDir)
	if len(entries) == 0 {
		return Warning{}, false
	}
	title := "1 specifier could not be resolved"
	if len(entries) != 1 {
		title = fmt.Sprintf("%d specifiers could not be resolved", len(entries))
	}
	return Warning{
		Title:      title,
		Message:    "These imports were left as written and may fail under a strict ES module loader.",
		Files:      entries,
		Suggestion: "Fix the paths, or list the specifiers in extension.ignore to silence this warning.",
	}, true
}
