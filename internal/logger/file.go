package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/esmify/internal/models"
)

// FileLogger writes a per-run log file into a log directory and maintains a
// latest.log symlink pointing to the most recent run.
// It is thread-safe and supports log level filtering.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	runID    string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates the log directory if needed, opens a timestamped
// run-YYYYMMDD-HHMMSS.log file and points latest.log at it. runID is written
// into the log header.
func NewFileLogger(logDir, logLevel, runID string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", timestamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		runID:    runID,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== esmify Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Run ID: %s\n", runID))
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// Path returns the path of the run log file
func (fl *FileLogger) Path() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogFileResult records a file transform. Unlike the console, the run log
// lists every rewrite and unresolved specifier of a file at DEBUG level.
func (fl *FileLogger) LogFileResult(result models.FileResult) {
	level := "debug"
	if result.Status == models.StatusFailed {
		level = "error"
	}
	if !fl.shouldLog(level) {
		return
	}

	ts := timestamp()
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s -> %s: %s (%.3fs)\n", ts, result.File.From, result.File.To, result.Status, result.Duration.Seconds())
	if result.Error != nil {
		fmt.Fprintf(&b, "[%s]   error: %v\n", ts, result.Error)
	}
	if result.Report != nil {
		for _, rw := range result.Report.Rewrites {
			fmt.Fprintf(&b, "[%s]   %d: %s -> %s (%s)\n", ts, rw.Line, rw.From, rw.To, rw.Reason)
		}
		for _, spec := range result.Report.Unresolved {
			fmt.Fprintf(&b, "[%s]   %d: %s unresolved\n", ts, spec.Line, spec.Value)
		}
	}
	fl.writeRunLog(b.String())
}

// LogSummary logs the run summary with final statistics at INFO level.
func (fl *FileLogger) LogSummary(result models.RunResult) {
	if !fl.shouldLog("info") {
		return
	}

	status := "SUCCESS"
	if result.Failed > 0 {
		status = "FAILED"
	}

	ts := timestamp()
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] === RUN SUMMARY ===\n", ts)
	fmt.Fprintf(&b, "[%s] Run ID:       %s\n", ts, result.RunID)
	fmt.Fprintf(&b, "[%s] Files:        %d\n", ts, result.TotalFiles)
	fmt.Fprintf(&b, "[%s] Changed:      %d\n", ts, result.Changed)
	fmt.Fprintf(&b, "[%s] Unchanged:    %d\n", ts, result.Unchanged)
	fmt.Fprintf(&b, "[%s] Failed:       %d\n", ts, result.Failed)
	fmt.Fprintf(&b, "[%s] Rewrites:     %d\n", ts, result.Rewrites)
	fmt.Fprintf(&b, "[%s] Unresolved:   %d\n", ts, result.Unresolved)
	if result.ModuleEntry != "" {
		fmt.Fprintf(&b, "[%s] Module entry: %s\n", ts, result.ModuleEntry)
	}
	fmt.Fprintf(&b, "[%s] Total time:   %.1fs\n", ts, result.Duration.Seconds())
	fmt.Fprintf(&b, "[%s] Status:       %s\n", ts, status)
	fmt.Fprintf(&b, "[%s] Completed at: %s\n", ts, time.Now().Format(time.RFC3339))

	fl.writeRunLog(b.String())
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
	}
}
