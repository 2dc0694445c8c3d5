// Package logger provides logging implementations for esmify runs.
//
// Loggers report run progress at the file and summary levels. Implementations
// are thread-safe, since files are transformed concurrently, and filter
// messages by level (trace, debug, info, warn, error).
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/esmify/internal/models"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps.
// Color output is enabled when writing to a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	baseDir     string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// SetBaseDir makes file paths in messages relative to dir
func (cl *ConsoleLogger) SetBaseDir(dir string) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	cl.baseDir = dir
}

// isTerminal reports whether w is a TTY that should get colors.
// NO_COLOR disables colors through color.NoColor.
func isTerminal(w io.Writer) bool {
	if u, ok := w.(interface{ Unwrap() io.Writer }); ok {
		w = u.Unwrap()
	}
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	fd := f.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return false
	}
	return !color.NoColor
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	label := level
	if cl.colorOutput {
		label = levelColor(level).Sprint(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", timestamp(), label, message)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgBlue)
	}
}

// LogFileResult logs the outcome of one file transform.
// Failures are logged at ERROR, other results at DEBUG, and each rewritten
// specifier at TRACE:
//
//	[HH:MM:SS] src/index.js: CHANGED (2 rewrites)
//	[HH:MM:SS]   3: './util' -> './util.js' (extension)
func (cl *ConsoleLogger) LogFileResult(result models.FileResult) {
	if cl.writer == nil {
		return
	}
	level := "debug"
	if result.Status == models.StatusFailed {
		level = "error"
	}
	if !cl.shouldLog(level) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	file := displayPath(cl.baseDir, result.File.From)
	status := result.Status
	if cl.colorOutput {
		file = color.New(color.Bold).Sprint(file)
		status = statusColor(result.Status).Sprint(result.Status)
	}

	var b strings.Builder
	switch {
	case result.Status == models.StatusFailed:
		fmt.Fprintf(&b, "[%s] %s: %s: %v\n", ts, file, status, result.Error)
	case result.Report.Changed():
		fmt.Fprintf(&b, "[%s] %s: %s (%s)\n", ts, file, status, plural(len(result.Report.Rewrites), "rewrite"))
	default:
		fmt.Fprintf(&b, "[%s] %s: %s\n", ts, file, status)
	}

	if cl.shouldLog("trace") && result.Report != nil {
		for _, rw := range result.Report.Rewrites {
			fmt.Fprintf(&b, "[%s]   %d: '%s' -> '%s' (%s)\n", ts, rw.Line, rw.From, rw.To, rw.Reason)
		}
	}

	cl.writer.Write([]byte(b.String()))
}

func statusColor(status string) *color.Color {
	switch status {
	case models.StatusChanged:
		return color.New(color.FgGreen)
	case models.StatusFailed:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgHiBlack)
	}
}

// LogSummary logs the run summary at INFO level.
func (cl *ConsoleLogger) LogSummary(result models.RunResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	header := "=== Run Summary ==="
	changed := fmt.Sprintf("Changed: %d", result.Changed)
	failed := fmt.Sprintf("Failed: %d", result.Failed)
	unresolved := fmt.Sprintf("Unresolved specifiers: %d", result.Unresolved)
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
		changed = color.New(color.FgGreen).Sprint(changed)
		if result.Failed > 0 {
			failed = color.New(color.FgRed).Sprint(failed)
		}
		if result.Unresolved > 0 {
			unresolved = color.New(color.FgYellow).Sprint(unresolved)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, header)
	fmt.Fprintf(&b, "[%s] Files: %d\n", ts, result.TotalFiles)
	fmt.Fprintf(&b, "[%s] %s\n", ts, changed)
	fmt.Fprintf(&b, "[%s] Unchanged: %d\n", ts, result.Unchanged)
	fmt.Fprintf(&b, "[%s] %s\n", ts, failed)
	fmt.Fprintf(&b, "[%s] Rewritten specifiers: %d\n", ts, result.Rewrites)
	fmt.Fprintf(&b, "[%s] %s\n", ts, unresolved)
	if result.ModuleEntry != "" {
		fmt.Fprintf(&b, "[%s] Module entry: %s\n", ts, result.ModuleEntry)
	}
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(result.Duration))

	cl.writer.Write([]byte(b.String()))
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// displayPath returns p relative to base when it lies inside it
func displayPath(base, p string) string {
	if base == "" {
		return p
	}
	rel, err := filepath.Rel(base, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return filepath.ToSlash(rel)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// formatDuration converts a time.Duration to a human-readable string.
// Sub-second durations are shown in milliseconds.
// Examples: "250ms", "5s", "1m30s"
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d >= time.Minute:
		minutes := d / time.Minute
		seconds := (d % time.Minute) / time.Second
		if seconds == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}
