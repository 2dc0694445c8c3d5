package probe

import (
	"fmt"
	"path/filepath"
	"sync"
)

// Memory is an in-memory Prober. Adding a file implicitly adds all of its
// parent directories.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]bool
	fail    map[string]error
	calls   []string
}

// NewMemory creates a Memory holding the given files.
func NewMemory(files ...string) *Memory {
	m := &Memory{
		entries: make(map[string]bool),
		fail:    make(map[string]error),
	}
	for _, f := range files {
		m.AddFile(f)
	}
	return m
}

// AddFile registers a file and its parent directories.
func (m *Memory) AddFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.entries[path] = true
	m.addParents(path)
}

// AddDir registers a directory and its parents.
func (m *Memory) AddDir(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.entries[path] = true
	m.addParents(path)
}

func (m *Memory) addParents(path string) {
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		m.entries[dir] = true
		if dir == filepath.Dir(dir) {
			return
		}
	}
}

// FailOn makes every probe of path return err.
func (m *Memory) FailOn(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[filepath.Clean(path)] = err
}

// Exists implements Prober.
func (m *Memory) Exists(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.calls = append(m.calls, path)
	if err, ok := m.fail[path]; ok {
		return false, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	return m.entries[path], nil
}

// Calls returns the probed paths in call order.
func (m *Memory) Calls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
