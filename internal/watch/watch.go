// Package watch reruns a workflow command whenever the project's Python
// sources change. It wraps fsnotify with recursive directory registration
// and a debounce window so rapid editor saves collapse into a single run.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// DefaultDebounce is how long a file must stay quiet before a change
// is considered settled.
const DefaultDebounce = 500 * time.Millisecond

// tickInterval is how often pending changes are checked for settling.
const tickInterval = 100 * time.Millisecond

// ignoredDirs are directory names that never trigger a run and are not
// descended into. They cover build output, caches and virtualenvs.
var ignoredDirs = map[string]bool{
	".git":               true,
	".hg":                true,
	".venv":              true,
	"venv":               true,
	"env":                true,
	"node_modules":       true,
	"dist":               true,
	"build":              true,
	"__pycache__":        true,
	".pytest_cache":      true,
	".mypy_cache":        true,
	".ruff_cache":        true,
	".tox":               true,
	".eggs":              true,
	"htmlcov":            true,
	".ipynb_checkpoints": true,
}

// watchedFiles are non-Python files that still affect the workflow.
var watchedFiles = map[string]bool{
	"pyproject.toml": true,
	"setup.py":       true,
	"setup.cfg":      true,
	".pyship.yaml":   true,
}

// Config controls a Watcher.
type Config struct {
	// Root is the project directory to watch recursively.
	Root string

	// Debounce is the settle window. Zero means DefaultDebounce.
	Debounce time.Duration

	// OnChange runs after changes settle, with the settled paths relative
	// to Root. Calls are serialized; events arriving while OnChange runs
	// are collected and trigger a later call.
	OnChange func(ctx context.Context, paths []string)

	// Out receives watcher warnings. Defaults to os.Stderr.
	Out io.Writer
}

// Stats reports watcher activity counters.
type Stats struct {
	Changes int // file events accepted
	Runs    int // OnChange invocations
}

// Watcher watches a project tree and fires a callback on settled changes.
type Watcher struct {
	cfg     Config
	fw      *fsnotify.Watcher
	dirs    []string
	pending map[string]time.Time

	mu      sync.Mutex
	running bool
	stats   Stats
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New builds a Watcher over cfg.Root. The root must exist and OnChange
// must be set. Watching does not begin until Start.
func New(cfg Config) (*Watcher, error) {
	if cfg.OnChange == nil {
		return nil, errors.New("watch: OnChange is required")
	}
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, errors.Wrap(err, "watch")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("watch: %s is not a directory", cfg.Root)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Out == nil {
		cfg.Out = os.Stderr
	}
	return &Watcher{
		cfg:     cfg,
		pending: make(map[string]time.Time),
	}, nil
}

// Start registers the directory tree and begins watching in the
// background. It returns once registration is complete.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("watch: already running")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "watch")
	}
	w.fw = fw
	w.dirs = nil
	if err := w.addTree(w.cfg.Root); err != nil {
		fw.Close()
		return err
	}

	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run(ctx)
	return nil
}

// Stop ends watching and waits for the background loop to exit.
// Stopping a watcher that is not running is a no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
}

// Running reports whether the watcher is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stats returns activity counters for the current session.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// WatchedDirs returns the directories registered at Start, relative
// to the root.
func (w *Watcher) WatchedDirs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.dirs))
	copy(out, w.dirs)
	return out
}

// addTree registers dir and every non-ignored subdirectory. fsnotify
// watches are not recursive, so each directory is added individually.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && (ignoredDirs[d.Name()] || strings.HasSuffix(d.Name(), ".egg-info")) {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			return errors.Wrapf(err, "watch %s", path)
		}
		rel, err := filepath.Rel(w.cfg.Root, path)
		if err != nil {
			rel = path
		}
		w.dirs = append(w.dirs, rel)
		return nil
	})
}

// run is the event loop. It drains fsnotify events into the pending map
// and fires OnChange once a debounce window passes with no new writes.
func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer w.fw.Close()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(w.cfg.Out, "warning: watch: %v\n", err)
		case <-ticker.C:
			w.fireSettled(ctx)
		}
	}
}

// handleEvent filters a raw fsnotify event. New directories are added to
// the watch set; interesting file changes are recorded for debouncing.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&fsnotify.Chmod != 0 {
		return
	}

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !ignoredDirs[filepath.Base(ev.Name)] {
				w.mu.Lock()
				err := w.addTree(ev.Name)
				w.mu.Unlock()
				if err != nil {
					fmt.Fprintf(w.cfg.Out, "warning: %v\n", err)
				}
			}
			return
		}
	}

	if !interesting(ev.Name) {
		return
	}

	w.pending[ev.Name] = time.Now()
	w.mu.Lock()
	w.stats.Changes++
	w.mu.Unlock()
}

// fireSettled invokes OnChange with every pending path whose debounce
// window has elapsed. The callback runs on the watcher goroutine, so a
// long run naturally serializes with later ones.
func (w *Watcher) fireSettled(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}
	now := time.Now()
	var settled []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.cfg.Debounce {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	if len(settled) == 0 {
		return
	}

	for i, path := range settled {
		if rel, err := filepath.Rel(w.cfg.Root, path); err == nil {
			settled[i] = rel
		}
	}
	sort.Strings(settled)

	w.mu.Lock()
	w.stats.Runs++
	w.mu.Unlock()

	w.cfg.OnChange(ctx, settled)
}

// interesting reports whether a change to path should trigger a run.
func interesting(path string) bool {
	base := filepath.Base(path)
	if watchedFiles[base] {
		return true
	}
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return filepath.Ext(base) == ".py"
}
