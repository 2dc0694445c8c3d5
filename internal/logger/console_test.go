package logger

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrison/esmify/internal/models"
)

// TestNewConsoleLogger verifies the constructor creates a ConsoleLogger with the provided writer.
func TestNewConsoleLogger(t *testing.T) {
	t.Run("with valid writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewConsoleLogger(buf, "DEBUG")

		if logger.writer != buf {
			t.Error("writer not set correctly")
		}
		if logger.logLevel != "debug" {
			t.Errorf("expected log level %q, got %q", "debug", logger.logLevel)
		}
		if logger.colorOutput {
			t.Error("a buffer is not a terminal, colors should be off")
		}
	})

	t.Run("with nil writer", func(t *testing.T) {
		logger := NewConsoleLogger(nil, "info")
		logger.LogInfo("dropped")
		logger.LogFileResult(models.FileResult{Status: models.StatusFailed})
		logger.LogSummary(models.RunResult{})
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		logger := NewConsoleLogger(&bytes.Buffer{}, "verbose")
		if logger.logLevel != "info" {
			t.Errorf("expected info, got %q", logger.logLevel)
		}
	})
}

func TestConsoleLogFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	logger.LogInfo("Output directory cleaned")

	out := buf.String()
	if !strings.HasPrefix(out, "[") || !strings.Contains(out, "] [INFO] Output directory cleaned\n") {
		t.Errorf("unexpected format: %q", out)
	}
}

func TestLogFileResult(t *testing.T) {
	changed := models.FileResult{
		File:   models.CopiedFile{From: "/project/src/index.js", To: "/project/esm/index.js"},
		Status: models.StatusChanged,
		Report: &models.FileReport{Rewrites: []models.Rewrite{
			{Line: 1, From: "./util", To: "./util.js", Reason: models.ReasonExtension},
			{Line: 2, From: "lib-x", To: "lib-x/esm", Reason: models.ReasonRedirect},
		}},
	}
	unchanged := models.FileResult{
		File:   models.CopiedFile{From: "/project/src/a.js"},
		Status: models.StatusUnchanged,
		Report: &models.FileReport{},
	}
	failed := models.FileResult{
		File:   models.CopiedFile{From: "/project/src/bad.js"},
		Status: models.StatusFailed,
		Error:  errors.New("syntax error near line 3"),
	}

	tests := []struct {
		name     string
		level    string
		result   models.FileResult
		contains []string
		absent   []string
	}{
		{
			name:     "changed at debug",
			level:    "debug",
			result:   changed,
			contains: []string{"src/index.js: CHANGED (2 rewrites)"},
			absent:   []string{"'./util' -> './util.js'"},
		},
		{
			name:   "changed at trace lists rewrites",
			level:  "trace",
			result: changed,
			contains: []string{
				"src/index.js: CHANGED (2 rewrites)",
				"1: './util' -> './util.js' (extension)",
				"2: 'lib-x' -> 'lib-x/esm' (redirect)",
			},
		},
		{
			name:     "unchanged at debug",
			level:    "debug",
			result:   unchanged,
			contains: []string{"src/a.js: UNCHANGED"},
		},
		{
			name:   "unchanged hidden at info",
			level:  "info",
			result: unchanged,
		},
		{
			name:     "failure shown at info",
			level:    "info",
			result:   failed,
			contains: []string{"src/bad.js: FAILED: syntax error near line 3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewConsoleLogger(buf, tt.level)
			logger.SetBaseDir("/project")

			logger.LogFileResult(tt.result)

			out := buf.String()
			if len(tt.contains) == 0 && out != "" {
				t.Errorf("expected no output, got %q", out)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output %q does not contain %q", out, want)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(out, unwanted) {
					t.Errorf("output %q should not contain %q", out, unwanted)
				}
			}
		})
	}
}

func TestLogSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	logger.LogSummary(models.RunResult{
		TotalFiles:  5,
		Changed:     3,
		Unchanged:   1,
		Failed:      1,
		Rewrites:    7,
		Unresolved:  2,
		ModuleEntry: "./esm/index.js",
		Duration:    1500 * time.Millisecond,
	})

	out := buf.String()
	for _, want := range []string{
		"=== Run Summary ===",
		"Files: 5",
		"Changed: 3",
		"Unchanged: 1",
		"Failed: 1",
		"Rewritten specifiers: 7",
		"Unresolved specifiers: 2",
		"Module entry: ./esm/index.js",
		"Duration: 1.5s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	NewConsoleLogger(buf, "warn").LogSummary(models.RunResult{TotalFiles: 1})
	if buf.Len() != 0 {
		t.Errorf("summary should be filtered at warn level, got %q", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{5 * time.Second, "5.0s"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Minute, "2m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayPath(t *testing.T) {
	if got := displayPath("/project", "/project/src/a.js"); got != "src/a.js" {
		t.Errorf("displayPath() = %q", got)
	}
	if got := displayPath("/project", "/elsewhere/a.js"); got != "/elsewhere/a.js" {
		t.Errorf("displayPath() outside base = %q", got)
	}
	if got := displayPath("", "/project/a.js"); got != "/project/a.js" {
		t.Errorf("displayPath() without base = %q", got)
	}
}

// TestConcurrentLogging verifies lines from concurrent writers never interleave.
func TestConcurrentLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	const goroutines = 20
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			logger.LogInfo(fmt.Sprintf("message %d", id))
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != goroutines {
		t.Fatalf("expected %d lines, got %d", goroutines, len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "[INFO] message ") {
			t.Errorf("malformed line %q", line)
		}
	}
}
