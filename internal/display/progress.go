package display

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// ProgressIndicator prints one line per transformed file. Step may be
// called from several goroutines. Every line is a single Write, so the
// indicator can share a logger.SyncWriter with the console logger.
type ProgressIndicator struct {
	writer  io.Writer
	label   string
	total   int
	current int
	mu      sync.Mutex
}

// NewProgressIndicator creates a new progress indicator. label names what
// is being processed, e.g. "Transforming".
func NewProgressIndicator(w io.Writer, label string) *ProgressIndicator {
	return &ProgressIndicator{
		writer: w,
		label:  label,
	}
}

// Start displays the header message
func (p *ProgressIndicator) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	fmt.Fprintf(p.writer, "%s %d files:\n", p.label, total)
}

// Step displays progress for current item: [N/Total] filename (cyan)
func (p *ProgressIndicator) Step(filename string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	line := color.New(color.FgCyan).Sprintf("  [%d/%d] %s", p.current, p.total, filename)
	fmt.Fprintln(p.writer, line)
}

// Complete displays success message with green checkmark
func (p *ProgressIndicator) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "%s %s %d files\n", color.New(color.FgGreen).Sprint("✓"), p.label, p.current)
}
