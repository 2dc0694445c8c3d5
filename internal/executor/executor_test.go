package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/harrison/esmify/internal/config"
	"github.com/harrison/esmify/internal/models"
	"github.com/harrison/esmify/internal/parser"
)

// mockLogger captures logging calls for testing.
type mockLogger struct {
	mu           sync.Mutex
	messages     []string
	fileResults  []models.FileResult
	summaryCalls []models.RunResult
}

func (m *mockLogger) log(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockLogger) LogTrace(message string) { m.log(message) }
func (m *mockLogger) LogDebug(message string) { m.log(message) }
func (m *mockLogger) LogInfo(message string) { m.log(message) }
func (m *mockLogger) LogWarn(message string) { m.log(message) }
func (m *mockLogger) LogError(message string) { m.log(message) }

func (m *mockLogger) LogFileResult(result models.FileResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileResults = append(m.fileResults, result)
}

func (m *mockLogger) LogSummary(result models.RunResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaryCalls = append(m.summaryCalls, result)
}

// mockProgress counts progress calls.
type mockProgress struct {
	mu        sync.Mutex
	total     int
	steps     []string
	completed bool
}

func (m *mockProgress) Start(total int) { m.total = total }

func (m *mockProgress) Step(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, name)
}

func (m *mockProgress) Complete() { m.completed = true }

// writeTree creates files under root from a path -> content map.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// listTree returns the slash-separated regular files under dir.
func listTree(t *testing.T, dir string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk %s: %v", dir, err)
	}
	sort.Strings(out)
	return out
}

const indexSource = `#!/usr/bin/env node
// entry point
import { a } from './a';
import lib from './lib';
import shared from 'wootils/shared';
import fs from 'node:fs';
export * from './missing';
`

func newProject(t *testing.T) (*config.Config, string) {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/index.js":                      indexSource,
		"src/a.js":                          "export const a = 1;\n",
		"src/lib/index.js":                  "export default 2;\n",
		"node_modules/wootils/shared.js":    "module.exports = {};\n",
		"node_modules/wootils/package.json": "{}\n",
	})

	cfg := config.DefaultConfig()
	cfg.Root = root
	cfg.Modules = []config.ModuleConfig{{Name: "wootils", Path: "wootils/esm"}}
	return cfg, root
}

func run(t *testing.T, cfg *config.Config, log Logger, opts Options) (*models.RunResult, error) {
	t.Helper()
	exec, err := NewExecutor(cfg, log, opts)
	if err != nil {
		t.Fatalf("NewExecutor() error = %v", err)
	}
	return exec.Run(context.Background())
}

func TestRunRewritesCopiedFiles(t *testing.T) {
	cfg, root := newProject(t)
	log := &mockLogger{}

	result, err := run(t, cfg, log, Options{RunID: "run-1"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := `#!/usr/bin/env node
// entry point
import { a } from './a.js';
import lib from './lib/index.js';
import shared from 'wootils/esm/shared.js';
import fs from 'node:fs';
export * from './missing';
`
	if got := readFile(t, filepath.Join(root, "esm", "index.js")); got != want {
		t.Errorf("esm/index.js =\n%s\nwant\n%s", got, want)
	}
	if got := readFile(t, filepath.Join(root, "src", "index.js")); got != indexSource {
		t.Error("source file must not be modified")
	}
	if got := readFile(t, filepath.Join(root, "esm", "package.json")); got != "{\n  \"type\": \"module\"\n}\n" {
		t.Errorf("esm/package.json = %q", got)
	}

	if result.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", result.RunID)
	}
	if result.TotalFiles != 3 || result.Changed != 1 || result.Unchanged != 2 || result.Failed != 0 {
		t.Errorf("counts = total %d, changed %d, unchanged %d, failed %d; want 3, 1, 2, 0",
			result.TotalFiles, result.Changed, result.Unchanged, result.Failed)
	}
	if result.Rewrites != 3 {
		t.Errorf("Rewrites = %d, want 3", result.Rewrites)
	}
	if got := result.UnresolvedFiles(root); len(got) != 1 || got[0] != "src/index.js:7 ./missing" {
		t.Errorf("UnresolvedFiles() = %v", got)
	}

	// Results are ordered by source path
	for i := 1; i < len(result.Files); i++ {
		if result.Files[i-1].File.From > result.Files[i].File.From {
			t.Errorf("results out of order: %s before %s", result.Files[i-1].File.From, result.Files[i].File.From)
		}
	}

	if len(log.fileResults) != 3 {
		t.Errorf("expected 3 file results logged, got %d", len(log.fileResults))
	}
	if len(log.summaryCalls) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(log.summaryCalls))
	}
	if log.summaryCalls[0].Duration <= 0 {
		t.Error("summary should carry the run duration")
	}
}

func TestRunGeneratesRunID(t *testing.T) {
	cfg, _ := newProject(t)

	result, err := run(t, cfg, nil, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.RunID) != 36 {
		t.Errorf("expected a UUID run ID, got %q", result.RunID)
	}
}

func TestRunUseMJS(t *testing.T) {
	cfg, root := newProject(t)
	cfg.Extension.Use = config.ExtensionMJS

	if _, err := run(t, cfg, nil, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"a.mjs", "index.mjs", "lib/index.mjs", "package.json"}
	if got := listTree(t, filepath.Join(root, "esm")); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("output files = %v, want %v", got, want)
	}

	out := readFile(t, filepath.Join(root, "esm", "index.mjs"))
	for _, spec := range []string{"'./a.mjs'", "'./lib/index.mjs'"} {
		if !strings.Contains(out, spec) {
			t.Errorf("expected %s in:\n%s", spec, out)
		}
	}
}

func TestRunOutputLayout(t *testing.T) {
	tests := []struct {
		name           string
		input          []string
		forceDirectory bool
		want           []string
	}{
		{
			name:  "single input copies contents",
			input: []string{"src"},
			want:  []string{"a.js", "index.js", "lib/index.js", "package.json"},
		},
		{
			name:           "force directory",
			input:          []string{"src"},
			forceDirectory: true,
			want:           []string{"package.json", "src/a.js", "src/index.js", "src/lib/index.js"},
		},
		{
			name:  "multiple inputs keep their directories",
			input: []string{"src", "tools/bin"},
			want:  []string{"package.json", "src/a.js", "src/index.js", "src/lib/index.js", "tools/bin/cli.js"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, root := newProject(t)
			writeTree(t, root, map[string]string{
				"tools/bin/cli.js":   "import '../../src/a';\n",
				"tools/bin/notes.md": "# not copied\n",
			})
			cfg.Input = tt.input
			cfg.ForceDirectory = tt.forceDirectory

			if _, err := run(t, cfg, nil, Options{}); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			got := listTree(t, filepath.Join(root, "esm"))
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("output files = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunIgnoreAndHiddenEntries(t *testing.T) {
	cfg, root := newProject(t)
	writeTree(t, root, map[string]string{
		"src/utils/@types/index.js": "export {};\n",
		"src/utils/helper.js":       "export {};\n",
		"src/.cache/tmp.js":         "export {};\n",
		"src/node_modules/dep.js":   "export {};\n",
	})
	cfg.Ignore = []string{"@types"}

	if _, err := run(t, cfg, nil, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"a.js", "index.js", "lib/index.js", "package.json", "utils/helper.js"}
	if got := listTree(t, filepath.Join(root, "esm")); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("output files = %v, want %v", got, want)
	}
}

func TestRunCleansOutput(t *testing.T) {
	cfg, root := newProject(t)
	writeTree(t, root, map[string]string{"esm/stale.js": "old\n"})

	if _, err := run(t, cfg, nil, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "esm", "stale.js")); !os.IsNotExist(err) {
		t.Error("stale output file should have been removed")
	}
}

func TestRunWithoutPackageJSON(t *testing.T) {
	cfg, root := newProject(t)
	cfg.AddPackageJSON = false

	if _, err := run(t, cfg, nil, Options{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "esm", "package.json")); !os.IsNotExist(err) {
		t.Error("output package.json should not be written")
	}
}

func TestRunModuleEntry(t *testing.T) {
	cfg, root := newProject(t)
	cfg.AddModuleEntry = true
	writeTree(t, root, map[string]string{
		"package.json": "{\n  \"name\": \"demo\",\n  \"main\": \"src/index.js\"\n}\n",
	})

	result, err := run(t, cfg, nil, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ModuleEntry != "./esm/index.js" {
		t.Errorf("ModuleEntry = %q, want ./esm/index.js", result.ModuleEntry)
	}
	want := "{\n  \"name\": \"demo\",\n  \"main\": \"src/index.js\",\n  \"module\": \"./esm/index.js\"\n}\n"
	if got := readFile(t, filepath.Join(root, "package.json")); got != want {
		t.Errorf("package.json =\n%s\nwant\n%s", got, want)
	}
}

func TestRunModuleEntryMissingManifest(t *testing.T) {
	cfg, _ := newProject(t)
	cfg.AddModuleEntry = true

	_, err := run(t, cfg, nil, Options{})
	if err == nil {
		t.Fatal("expected an error without a project package.json")
	}
	if !strings.Contains(err.Error(), "module entry") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunDryRun(t *testing.T) {
	cfg, root := newProject(t)
	cfg.AddModuleEntry = true
	manifest := "{\n  \"main\": \"src/index.js\"\n}\n"
	writeTree(t, root, map[string]string{"package.json": manifest})
	diff := &bytes.Buffer{}

	result, err := run(t, cfg, nil, Options{DryRun: true, DiffOutput: diff})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "esm")); !os.IsNotExist(err) {
		t.Error("dry run must not create the output directory")
	}
	if got := readFile(t, filepath.Join(root, "package.json")); got != manifest {
		t.Error("dry run must not touch package.json")
	}
	if result.Changed != 1 || result.ModuleEntry != "" {
		t.Errorf("Changed = %d, ModuleEntry = %q", result.Changed, result.ModuleEntry)
	}

	out := diff.String()
	for _, want := range []string{
		"--- a/src/index.js",
		"+++ b/src/index.js",
		"-import { a } from './a';",
		"+import { a } from './a.js';",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("diff missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "a/src/a.js") {
		t.Error("unchanged files should not be diffed")
	}
}

func TestRunSyntaxErrorFailsRun(t *testing.T) {
	cfg, root := newProject(t)
	writeTree(t, root, map[string]string{"src/broken.js": "import { from './a';\n"})
	log := &mockLogger{}

	result, err := run(t, cfg, log, Options{})
	if err == nil {
		t.Fatal("expected an error for a file that does not parse")
	}
	if !IsFileError(err) {
		t.Errorf("expected a FileError, got %T: %v", err, err)
	}
	if !errors.Is(err, parser.ErrSyntax) {
		t.Errorf("expected parser.ErrSyntax in chain, got %v", err)
	}
	if result == nil || result.Failed != 1 {
		t.Fatalf("expected one failed file, got %+v", result)
	}
	if len(log.summaryCalls) != 1 {
		t.Error("summary should be logged for a failed run")
	}

	// Output manifests are not written after a failure
	if _, err := os.Stat(filepath.Join(root, "esm", "package.json")); !os.IsNotExist(err) {
		t.Error("output package.json should not be written after a failure")
	}
}

func TestRunProgress(t *testing.T) {
	cfg, _ := newProject(t)
	cfg.MaxConcurrency = 2
	progress := &mockProgress{}

	if _, err := run(t, cfg, nil, Options{Progress: progress}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if progress.total != 3 || len(progress.steps) != 3 || !progress.completed {
		t.Errorf("progress = total %d, steps %v, completed %v", progress.total, progress.steps, progress.completed)
	}
	sort.Strings(progress.steps)
	if progress.steps[0] != "src/a.js" {
		t.Errorf("steps should show root-relative sources, got %v", progress.steps)
	}
}

func TestRunCanceledContext(t *testing.T) {
	cfg, _ := newProject(t)
	exec, err := NewExecutor(cfg, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := exec.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestNewExecutorInvalidPattern(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Root = t.TempDir()
	cfg.Extension.Ignore = []string{"("}

	if _, err := NewExecutor(cfg, nil, Options{}); !errors.Is(err, config.ErrInvalidPattern) {
		t.Errorf("NewExecutor() error = %v, want ErrInvalidPattern", err)
	}
	if _, err := NewExecutor(nil, nil, Options{}); err == nil {
		t.Error("expected an error for a nil config")
	}
}

func TestToMJS(t *testing.T) {
	tests := map[string]string{
		"/out/index.js":    "/out/index.mjs",
		"/out/UPPER.JS":    "/out/UPPER.mjs",
		"/out/data.json":   "/out/data.json",
		"/out/already.mjs": "/out/already.mjs",
	}
	for in, want := range tests {
		if got := toMJS(in); got != want {
			t.Errorf("toMJS(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInputPrefix(t *testing.T) {
	root := filepath.FromSlash("/project")
	tests := []struct {
		in   string
		want string
	}{
		{"/project/src", "src"},
		{"/project/tools/bin", filepath.FromSlash("tools/bin")},
		{"/elsewhere/shared", "shared"},
	}
	for _, tt := range tests {
		if got := inputPrefix(root, filepath.FromSlash(tt.in)); got != tt.want {
			t.Errorf("inputPrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
