// Package manifest edits package.json files after a run: the project
// manifest gains a "module" entry pointing at the transformed copy of its
// "main" file, and the output directory gets a manifest declaring its files
// as ES modules.
package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/esmify/internal/filelock"
	"github.com/harrison/esmify/internal/models"
	"github.com/harrison/esmify/internal/probe"
	"github.com/harrison/esmify/internal/resolver"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FileName is the manifest file name
const FileName = "package.json"

// ErrEntryNotFound is returned when the "main" entry of a manifest points at
// a directory without an index file.
var ErrEntryNotFound = errors.New("entry file not found")

// typeModule is written verbatim so the output has a stable 2-space layout
const typeModule = "{\n  \"type\": \"module\"\n}\n"

// UpdateModuleEntry sets the "module" field of root/package.json to the
// transformed copy of its "main" file and returns the value written. When
// the manifest has no "main" field, or the main file was not among the
// copied files, nothing is written and "" is returned. Formatting and key
// order of the manifest are preserved.
func UpdateModuleEntry(ctx context.Context, root string, files []models.CopiedFile, r *resolver.Resolver) (string, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("failed to parse %s: invalid JSON", path)
	}

	main := gjson.GetBytes(data, "main")
	if !main.Exists() || main.String() == "" {
		return "", nil
	}

	entry, err := resolveEntry(ctx, r, filepath.Join(root, filepath.FromSlash(main.String())))
	if err != nil {
		return "", fmt.Errorf("failed to resolve main entry %q: %w", main.String(), err)
	}

	var target string
	for _, f := range files {
		if f.From == entry {
			target = f.To
			break
		}
	}
	if target == "" {
		return "", nil
	}

	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s: %w", target, err)
	}
	value := "./" + filepath.ToSlash(rel)

	err = filelock.Update(path, func(current []byte) ([]byte, error) {
		if current == nil {
			return nil, fmt.Errorf("%s disappeared", path)
		}
		return setKey(current, "module", value)
	})
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", path, err)
	}
	return value, nil
}

// setKey sets a top-level string key. Existing keys are replaced in place;
// a new key is appended after the last member with the manifest's own
// indentation.
func setKey(data []byte, key, value string) ([]byte, error) {
	indent, multiline := memberIndent(data)
	if gjson.GetBytes(data, key).Exists() || !multiline {
		return sjson.SetBytes(data, key, value)
	}

	member, err := json.Marshal(map[string]string{key: value})
	if err != nil {
		return nil, err
	}
	member = bytes.Replace(member[1:len(member)-1], []byte(":"), []byte(": "), 1)

	end := bytes.LastIndexByte(data, '}')
	head := bytes.TrimRight(data[:end], " \t\r\n")

	var buf bytes.Buffer
	buf.Write(head)
	if head[len(head)-1] != '{' {
		buf.WriteByte(',')
	}
	buf.WriteByte('\n')
	buf.WriteString(indent)
	buf.Write(member)
	buf.Write(data[len(head):])
	return buf.Bytes(), nil
}

// memberIndent returns the leading whitespace of the first member line of
// a manifest spread over several lines.
func memberIndent(data []byte) (string, bool) {
	start := bytes.IndexByte(data, '{')
	if start < 0 {
		return "", false
	}
	rest := data[start+1:]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 {
		return "", false
	}
	line := rest[nl+1:]
	n := 0
	for n < len(line) && (line[n] == ' ' || line[n] == '\t') {
		n++
	}
	return string(line[:n]), true
}

// resolveEntry turns the absolute main path into the source file it names
func resolveEntry(ctx context.Context, r *resolver.Resolver, abs string) (string, error) {
	target, err := r.Classify(abs)
	if err != nil {
		return "", err
	}
	if target == nil {
		return "", fmt.Errorf("%w: %s", ErrEntryNotFound, abs)
	}
	if target.IsFile {
		return target.Path, nil
	}

	file, err := probe.FindFirstAsync(ctx, r.Prober(), r.IndexFiles(), target.Path)
	if err != nil {
		return "", err
	}
	if file == "" {
		return "", fmt.Errorf("%w: no index file in %s", ErrEntryNotFound, target.Path)
	}
	return file, nil
}

// WriteTypeModule writes {"type": "module"} to dir/package.json.
func WriteTypeModule(dir string) error {
	path := filepath.Join(dir, FileName)
	if err := filelock.AtomicWrite(path, []byte(typeModule)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
