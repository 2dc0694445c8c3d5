// Package watch reports changes to the source files under the input
// directories so esmify can re-run after every edit.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op represents the type of file operation
type Op int

const (
	// Created indicates a new file was created
	Created Op = iota
	// Written indicates a file was written to
	Written
	// Removed indicates a file or directory was removed or renamed away
	Removed
)

// String returns a human-readable representation of the operation
func (op Op) String() string {
	switch op {
	case Created:
		return "created"
	case Written:
		return "written"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a change to one path
type Event struct {
	Path      string    // Absolute path
	Op        Op        // Last operation seen for the path
	Timestamp time.Time // When the operation was seen
}

// DefaultDebounce is the quiet period after the last change before a batch
// is delivered
const DefaultDebounce = 200 * time.Millisecond

// DefaultPattern matches the files esmify copies
const DefaultPattern = "*.js"

// Options configures a Watcher
type Options struct {
	// Pattern is matched against file base names (default DefaultPattern)
	Pattern string
	// Debounce is the quiet period before a batch is sent (default DefaultDebounce)
	Debounce time.Duration
	// SkipDirs are directory names never watched, in addition to hidden ones
	SkipDirs []string
}

// Watcher watches directory trees and delivers debounced batches of events.
// Every change within the quiet period ends up in the same batch, one event
// per path.
type Watcher struct {
	watcher *fsnotify.Watcher
	batches chan []Event
	errors  chan error
	done    chan struct{}
	roots   []string
	opts    Options
	skip    map[string]bool

	mu      sync.Mutex
	dirs    map[string]bool
	pending map[string]Event
	timer   *time.Timer
	closed  bool
}

// New starts watching every directory in roots recursively. Roots that do
// not exist are skipped.
func New(roots []string, opts Options) (*Watcher, error) {
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: watcher,
		batches: make(chan []Event, 16),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
		opts:    opts,
		skip:    make(map[string]bool),
		dirs:    make(map[string]bool),
		pending: make(map[string]Event),
	}
	for _, name := range opts.SkipDirs {
		w.skip[name] = true
	}

	for _, root := range roots {
		root = filepath.Clean(root)
		w.roots = append(w.roots, root)
		if err := w.addRecursive(root); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	go w.processEvents()

	return w, nil
}

// addRecursive adds the directory and all its subdirectories to the watcher
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skipped(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			// Directories we cannot read are left out
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return err
		}
		w.mu.Lock()
		w.dirs[path] = true
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) skipped(name string) bool {
	return strings.HasPrefix(name, ".") || w.skip[name]
}

// processEvents converts fsnotify events until the watcher is closed
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

// handleEvent processes a single fsnotify event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if w.skipped(filepath.Base(path)) {
				return
			}
			if err := w.addRecursive(path); err != nil {
				w.sendError(err)
			}
			// Files may have landed before the watch was in place
			w.queue(path, Created)
			return
		}
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = Created
	case event.Has(fsnotify.Write):
		op = Written
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = Removed
	default:
		// chmod
		return
	}

	if op == Removed && w.forgetDir(path) {
		w.queue(path, Removed)
		return
	}
	if !w.matches(path) {
		return
	}
	w.queue(path, op)
}

// forgetDir drops path and everything below it from the watched set and
// reports whether path was a watched directory.
func (w *Watcher) forgetDir(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirs[path] {
		return false
	}
	prefix := path + string(filepath.Separator)
	for dir := range w.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(w.dirs, dir)
		}
	}
	return true
}

// matches checks the file base name against the pattern
func (w *Watcher) matches(path string) bool {
	matched, err := filepath.Match(w.opts.Pattern, filepath.Base(path))
	return err == nil && matched
}

// queue records the event and restarts the quiet period
func (w *Watcher) queue(path string, op Op) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.pending[path] = Event{Path: path, Op: op, Timestamp: time.Now()}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.flush)
}

// flush sends the pending events as one batch ordered by path
func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]Event, 0, len(w.pending))
	for _, ev := range w.pending {
		batch = append(batch, ev)
	}
	w.pending = make(map[string]Event)
	w.timer = nil
	w.mu.Unlock()

	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })

	select {
	case w.batches <- batch:
	case <-w.done:
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
		// Error channel full, drop the error
	}
}

// Batches returns the channel of debounced event batches
func (w *Watcher) Batches() <-chan []Event {
	return w.batches
}

// Errors returns the channel for receiving errors
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Roots returns the watched root directories
func (w *Watcher) Roots() []string {
	out := make([]string, len(w.roots))
	copy(out, w.roots)
	return out
}

// Close stops the watcher and releases resources. Pending events are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = nil
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}

// Loop calls fn for every batch until ctx is done, then closes the watcher.
// Errors from fn and from the watcher are passed to onError and do not stop
// the loop.
func (w *Watcher) Loop(ctx context.Context, fn func(ctx context.Context, batch []Event) error, onError func(error)) error {
	defer w.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch := <-w.batches:
			if err := fn(ctx, batch); err != nil && onError != nil {
				onError(err)
			}
		case err := <-w.errors:
			if onError != nil {
				onError(err)
			}
		}
	}
}
