// Package files tracks workspace files referenced in conversation so that
// @file mentions can be resolved and completed quickly.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"handoff/internal/logging"

	"github.com/fsnotify/fsnotify"
)

const defaultRecentLimit = 20

// Entry is one indexed file with its last-seen time.
type Entry struct {
	Path     string
	LastSeen time.Time
}

// Index remembers which files were mentioned or modified recently. It watches
// the workspace root so externally edited files also bubble up.
type Index struct {
	mu      sync.RWMutex
	root    string
	entries map[string]time.Time
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewIndex creates an index rooted at the given workspace directory.
func NewIndex(root string) *Index {
	return &Index{
		root:    root,
		entries: make(map[string]time.Time),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins watching the workspace root. It is non-blocking and safe to
// call on an index whose root cannot be watched; the index then only tracks
// explicit Touch calls.
func (idx *Index) Start() error {
	idx.mu.Lock()
	if idx.running {
		idx.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		idx.mu.Unlock()
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	idx.watcher = watcher
	idx.running = true
	idx.mu.Unlock()

	if err := watcher.Add(idx.root); err != nil {
		logging.Get(logging.CategoryFiles).Warn("watch failed for %s: %v", idx.root, err)
	} else {
		logging.Files("watching workspace: %s", idx.root)
	}

	go idx.run()
	return nil
}

// run is the watcher event loop.
func (idx *Index) run() {
	defer close(idx.doneCh)

	for {
		select {
		case <-idx.stopCh:
			return

		case event, ok := <-idx.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".") {
				continue
			}
			idx.Touch(event.Name)

		case err, ok := <-idx.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryFiles).Error("watcher error: %v", err)
		}
	}
}

// Touch records that a file was just referenced.
func (idx *Index) Touch(path string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[path] = time.Now()
}

// Recent returns up to limit entries, most recent first. A non-positive limit
// uses the default.
func (idx *Index) Recent(limit int) []Entry {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	idx.mu.RLock()
	entries := make([]Entry, 0, len(idx.entries))
	for path, seen := range idx.entries {
		entries = append(entries, Entry{Path: path, LastSeen: seen})
	}
	idx.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// Suggest returns indexed paths whose base name contains the prefix,
// most recent first.
func (idx *Index) Suggest(prefix string) []string {
	prefix = strings.ToLower(prefix)

	var matches []Entry
	idx.mu.RLock()
	for path, seen := range idx.entries {
		if strings.Contains(strings.ToLower(filepath.Base(path)), prefix) {
			matches = append(matches, Entry{Path: path, LastSeen: seen})
		}
	}
	idx.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].LastSeen.After(matches[j].LastSeen)
	})

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.Path
	}
	return paths
}

// Read resolves a mention against the workspace root and returns the file
// contents, recording the file as touched.
func (idx *Index) Read(mention string) (string, error) {
	path := mention
	if !filepath.IsAbs(path) {
		path = filepath.Join(idx.root, mention)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", mention, err)
	}
	idx.Touch(path)
	return string(data), nil
}

// Close stops the watcher.
func (idx *Index) Close() error {
	idx.mu.Lock()
	if !idx.running {
		idx.mu.Unlock()
		return nil
	}
	idx.running = false
	idx.mu.Unlock()

	close(idx.stopCh)
	<-idx.doneCh
	return idx.watcher.Close()
}
