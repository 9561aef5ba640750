// Package watcher keeps a vector index synchronized with a live
// workspace. It watches the tree recursively, debounces rapid writes to
// the same file, and forwards deletes immediately so stale chunks never
// outlive their file.
package watcher

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultDebounce is how long a file must stay quiet before its change
// is reported. Editors and build tools commonly write a file several
// times in quick succession.
const DefaultDebounce = 500 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// RootDir is the workspace root to watch recursively.
	RootDir string

	// Debounce is the quiet period per file. Zero uses DefaultDebounce.
	Debounce time.Duration

	// Include and Ignore are slash-separated glob patterns applied to
	// paths relative to RootDir. An empty Include watches everything.
	Include []string
	Ignore  []string

	// UseGitIgnore additionally honors the workspace's .gitignore.
	UseGitIgnore bool
}

// Handler receives watch events after filtering and debouncing.
// FileChanged fires once per quiet file, FileDeleted fires immediately.
// Both are called from the watcher's goroutines.
type Handler interface {
	FileChanged(path string)
	FileDeleted(path string)
}

// Status is a snapshot of the watcher's state.
type Status struct {
	Active          bool
	PendingChanges  int
	WatchedPatterns []string
}

// Watcher watches a directory tree and reports settled file changes.
type Watcher struct {
	cfg     Config
	handler Handler
	fsw     *fsnotify.Watcher
	include []glob.Glob
	ignore  []glob.Glob
	git     *gitignore.GitIgnore
	rootAbs string

	mu       sync.Mutex
	pending  map[string]*time.Timer
	active   bool
	done     chan struct{}
	disposed bool
}

// New creates a watcher rooted at cfg.RootDir and begins delivering
// events to handler. Call Dispose to stop.
func New(cfg Config, handler Handler) (*Watcher, error) {
	if cfg.RootDir == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	rootAbs, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", cfg.RootDir, err)
	}

	w := &Watcher{
		cfg:     cfg,
		handler: handler,
		rootAbs: rootAbs,
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}
	for _, pattern := range cfg.Include {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", pattern, err)
		}
		w.include = append(w.include, g)
	}
	for _, pattern := range cfg.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", pattern, err)
		}
		w.ignore = append(w.ignore, g)
	}
	if cfg.UseGitIgnore {
		gi, err := gitignore.CompileIgnoreFile(filepath.Join(rootAbs, ".gitignore"))
		if err == nil {
			w.git = gi
		} else if !os.IsNotExist(err) {
			log.Printf("warning: cannot read .gitignore: %v", err)
		}
	}

	w.fsw, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.addRecursive(rootAbs); err != nil {
		w.fsw.Close()
		return nil, err
	}

	w.active = true
	go w.loop()
	return w, nil
}

// addRecursive registers the directory and every non-ignored
// subdirectory. fsnotify has no recursive mode.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Printf("warning: not watching %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel := w.rel(path)
		if rel != "." && w.dirIgnored(rel) {
			return fs.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			log.Printf("warning: not watching %s: %v", path, addErr)
		}
		return nil
	})
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.rootAbs, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) dirIgnored(rel string) bool {
	probe := rel + "/"
	for _, g := range w.ignore {
		if g.Match(rel) || g.Match(probe) || g.Match(probe+"x") {
			return true
		}
	}
	return w.git != nil && w.git.MatchesPath(rel)
}

// match reports whether events for a relative file path are delivered.
func (w *Watcher) match(rel string) bool {
	for _, g := range w.ignore {
		if g.Match(rel) {
			return false
		}
	}
	if w.git != nil && w.git.MatchesPath(rel) {
		return false
	}
	if len(w.include) == 0 {
		return true
	}
	for _, g := range w.include {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func (w *Watcher) loop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel := w.rel(event.Name)

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.dirIgnored(rel) {
				if err := w.addRecursive(event.Name); err != nil {
					log.Printf("warning: not watching %s: %v", event.Name, err)
				}
			}
			return
		}
	}

	if !w.match(rel) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		// A pending write for a now-gone file would re-index a ghost.
		w.cancelPending(event.Name)
		w.handler.FileDeleted(event.Name)
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		w.schedule(event.Name)
	}
}

// schedule arms (or re-arms) the debounce timer for one path. Every new
// write restarts the quiet period.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.disposed {
		return
	}

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		disposed := w.disposed
		w.mu.Unlock()
		if !disposed {
			w.handler.FileChanged(path)
		}
	})
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
		delete(w.pending, path)
	}
}

// Status returns a snapshot of the watcher's state.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	patterns := make([]string, len(w.cfg.Include))
	copy(patterns, w.cfg.Include)
	return Status{
		Active:          w.active && !w.disposed,
		PendingChanges:  len(w.pending),
		WatchedPatterns: patterns,
	}
}

// Dispose stops watching, cancels pending debounce timers, and waits for
// the event loop to exit. Safe to call more than once.
func (w *Watcher) Dispose() {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}
	w.disposed = true
	w.active = false
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.fsw.Close()
	<-w.done
}
