// Package watcher records files the browser finishes writing into the
// download directory. What it sees is informational: the browser gives no
// completion signal for individual exports, so observations never change an
// item's outcome.
package watcher

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// partialSuffixes mark files Chromium is still writing.
var partialSuffixes = []string{".crdownload", ".tmp", ".part"}

// Watcher observes one directory until Stop is called.
type Watcher struct {
	fs   *fsnotify.Watcher
	dir  string
	done chan struct{}

	mu    sync.Mutex
	files map[string]struct{}
}

// Watch starts observing dir, which must exist.
func Watch(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: create: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watcher: add %s: %w", dir, err)
	}

	w := &Watcher{
		fs:    fw,
		dir:   dir,
		done:  make(chan struct{}),
		files: make(map[string]struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			// Chromium renames the partial file into place when it
			// finishes, which surfaces as a Create of the final name.
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			w.observe(ev.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Warn("download watcher error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) observe(path string) {
	name := filepath.Base(path)
	if isPartial(name) || strings.HasPrefix(name, ".") {
		return
	}
	w.mu.Lock()
	_, seen := w.files[name]
	w.files[name] = struct{}{}
	w.mu.Unlock()
	if !seen {
		slog.Info("file appeared in download directory", "file", name)
	}
}

// Files returns the observed file names, sorted.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for name := range w.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Stop ends observation and returns the observed file names.
func (w *Watcher) Stop() []string {
	_ = w.fs.Close()
	<-w.done
	return w.Files()
}

func isPartial(name string) bool {
	lower := strings.ToLower(name)
	for _, suf := range partialSuffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}
