// Package watch re-runs a callback when files in a set of directories change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roadmap-cli/roadmap/internal/debug"
)

// DefaultDebounce collapses bursts of writes (editors, git checkouts) into
// one callback.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches directories, non-recursively.
type Watcher struct {
	Dirs     []string
	Debounce time.Duration

	// Match filters events by file name. Nil matches markdown files.
	Match func(name string) bool

	// OnError receives watcher errors. Nil drops them.
	OnError func(error)
}

// New returns a watcher over dirs with the default debounce.
func New(dirs ...string) *Watcher {
	return &Watcher{Dirs: dirs, Debounce: DefaultDebounce}
}

// IsIssueFile reports whether name looks like an issue file.
func IsIssueFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return strings.HasSuffix(base, ".md")
}

// Run calls fn once per debounced burst of matching events until ctx is
// done. fn runs on the watcher goroutine, so runs never overlap; events that
// arrive during a run schedule one more run afterwards.
func (w *Watcher) Run(ctx context.Context, fn func(ctx context.Context)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }() // Best effort cleanup

	for _, dir := range w.Dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	match := w.Match
	if match == nil {
		match = IsIssueFile
	}
	delay := w.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}

	timer := time.NewTimer(delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !match(event.Name) {
				continue
			}
			debug.Logf("watch: %s %s", event.Op, event.Name)
			timer.Reset(delay)
		case <-timer.C:
			fn(ctx)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError(err)
			}
		}
	}
}
