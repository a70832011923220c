package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrAlreadyRunning is returned by Watch when the watcher is already active.
var ErrAlreadyRunning = errors.New("watcher already running")

// Config contains configuration for the watcher.
type Config struct {
	// Paths are the files or directories to watch. Directories are watched
	// recursively.
	Paths []string

	// Debounce is the quiet period after the last change before the
	// callback runs (default: 500ms).
	Debounce time.Duration

	// Extensions limits which files trigger a change. Empty accepts all.
	Extensions []string

	// SkipHidden ignores files and directories starting with a dot.
	SkipHidden bool
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() *Config {
	return &Config{
		Debounce:   500 * time.Millisecond,
		Extensions: []string{".yaml", ".yml", ".csv", ".db", ".sqlite", ".sqlite3"},
		SkipHidden: true,
	}
}

// ChangeFunc receives the changed paths, sorted and deduplicated, once the
// debounce period has passed. Calls never overlap.
type ChangeFunc func(ctx context.Context, changed []string) error

// Watcher watches schema and dataset files and reports settled changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	config   *Config
	debounce *Debouncer
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	pending map[string]struct{}

	// runMu serializes callbacks.
	runMu sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a watcher. Paths are resolved when Watch starts.
func New(config *Config) (*Watcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if len(config.Paths) == 0 {
		return nil, errors.New("watch: no paths configured")
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsw:      fsw,
		config:   config,
		debounce: NewDebouncer(config.Debounce),
		logger:   slog.Default().With("component", "watch"),
		pending:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called, invoking fn after
// each settled burst of changes. Callback errors are logged and do not stop
// the watcher.
func (w *Watcher) Watch(ctx context.Context, fn ChangeFunc) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.doneCh)

	for _, p := range w.config.Paths {
		if err := w.addPath(p); err != nil {
			return fmt.Errorf("failed to watch %q: %w", p, err)
		}
	}

	w.logger.Info("watcher started",
		"paths", w.config.Paths,
		"debounce_ms", w.config.Debounce.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			w.handleEvent(ctx, event, fn)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event, fn ChangeFunc) {
	// New directories under a watched tree are watched too.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.skipHidden(event.Name) {
			if err := w.addDirectory(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if !w.ShouldProcess(event) {
		return
	}

	w.logger.Debug("file event detected", "path", event.Name, "op", event.Op.String())

	w.mu.Lock()
	w.pending[event.Name] = struct{}{}
	w.mu.Unlock()

	w.debounce.Trigger(func() {
		changed := w.drain()
		if len(changed) == 0 || ctx.Err() != nil {
			return
		}

		w.runMu.Lock()
		defer w.runMu.Unlock()

		w.logger.Info("change detected", "files", changed)
		if err := fn(ctx, changed); err != nil {
			w.logger.Error("change handler failed", "error", err)
		}
	})
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	clear(w.pending)
	sort.Strings(changed)
	return changed
}

// Stop stops the watcher and waits for Watch to return. A callback already
// running is allowed to finish.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)

		w.mu.Lock()
		running := w.running
		w.mu.Unlock()
		if running {
			<-w.doneCh
		}

		w.debounce.Stop()
		w.runMu.Lock()
		w.runMu.Unlock() //nolint:staticcheck // wait for an in-flight callback

		if cerr := w.fsw.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
	})
	return err
}

func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return w.addDirectory(path)
	}
	// Watching the parent directory survives editors that replace the file.
	return w.fsw.Add(filepath.Dir(path))
}

func (w *Watcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skipHidden(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		w.logger.Debug("watching directory", "path", path)
		return nil
	})
}

// ShouldProcess reports whether an event should count as a change.
func (w *Watcher) ShouldProcess(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if w.skipHidden(event.Name) {
		return false
	}
	if !w.watched(event.Name) {
		return false
	}
	if len(w.config.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return slices.ContainsFunc(w.config.Extensions, func(e string) bool {
		return strings.ToLower(e) == ext
	})
}

// watched reports whether path is one of the configured files or lies under
// a configured directory. Sibling files of a watched file are ignored.
func (w *Watcher) watched(path string) bool {
	clean := filepath.Clean(path)
	for _, p := range w.config.Paths {
		p = filepath.Clean(p)
		if clean == p {
			return true
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if strings.HasPrefix(clean, p+string(filepath.Separator)) {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) skipHidden(path string) bool {
	return w.config.SkipHidden && strings.HasPrefix(filepath.Base(path), ".")
}
