package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestNew(t *testing.T) {
	if _, err := New(&Config{}); err == nil {
		t.Error("New() without paths should fail")
	}

	w, err := New(&Config{Paths: []string{t.TempDir()}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Stop()

	if w.config.Debounce != 500*time.Millisecond {
		t.Errorf("Debounce = %v, want default 500ms", w.config.Debounce)
	}
}

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) onChange(_ context.Context, changed []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, changed)
	return nil
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func startWatcher(t *testing.T, config *Config, fn ChangeFunc) *Watcher {
	t.Helper()
	w, err := New(config)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})

	go w.Watch(ctx, fn)
	// Give the watcher time to register its paths.
	time.Sleep(100 * time.Millisecond)
	return w
}

func TestWatcher_Directory(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.Paths = []string{dir}
	config.Debounce = 50 * time.Millisecond

	rec := &recorder{}
	startWatcher(t, config, rec.onChange)

	for _, name := range []string{"person.csv", "visit.csv", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("id\n1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(300 * time.Millisecond)

	calls := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("callback called %d times, want 1 (debounced)", len(calls))
	}
	want := []string{filepath.Join(dir, "person.csv"), filepath.Join(dir, "visit.csv")}
	if len(calls[0]) != 2 || calls[0][0] != want[0] || calls[0][1] != want[1] {
		t.Errorf("changed = %v, want %v", calls[0], want)
	}
}

func TestWatcher_SingleFile(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(schemaPath, []byte("tables: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	config := DefaultConfig()
	config.Paths = []string{schemaPath}
	config.Debounce = 50 * time.Millisecond

	rec := &recorder{}
	startWatcher(t, config, rec.onChange)

	// A sibling file in the same directory is not watched.
	os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644)
	time.Sleep(200 * time.Millisecond)
	if n := len(rec.snapshot()); n != 0 {
		t.Fatalf("sibling change triggered %d callbacks", n)
	}

	os.WriteFile(schemaPath, []byte("tables:\n  - name: person\n"), 0o644)
	time.Sleep(200 * time.Millisecond)
	if n := len(rec.snapshot()); n != 1 {
		t.Errorf("callback called %d times, want 1", n)
	}
}

func TestWatcher_HandlerErrorKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.Paths = []string{dir}
	config.Debounce = 30 * time.Millisecond

	var calls atomic.Int32
	startWatcher(t, config, func(context.Context, []string) error {
		calls.Add(1)
		return errors.New("validation failed")
	})

	path := filepath.Join(dir, "person.csv")
	os.WriteFile(path, []byte("a\n"), 0o644)
	time.Sleep(150 * time.Millisecond)
	os.WriteFile(path, []byte("b\n"), 0o644)
	time.Sleep(150 * time.Millisecond)

	if n := calls.Load(); n != 2 {
		t.Errorf("callback called %d times, want 2", n)
	}
}

func TestWatcher_DoubleStart(t *testing.T) {
	config := DefaultConfig()
	config.Paths = []string{t.TempDir()}
	w := startWatcher(t, config, (&recorder{}).onChange)

	if err := w.Watch(context.Background(), nil); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Watch() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestWatcher_Stop(t *testing.T) {
	config := DefaultConfig()
	config.Paths = []string{t.TempDir()}
	w, err := New(config)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Watch(context.Background(), (&recorder{}).onChange) }()
	time.Sleep(50 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() returned %v after Stop", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Watch() did not return after Stop")
	}

	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_MissingPath(t *testing.T) {
	w, err := New(&Config{Paths: []string{filepath.Join(t.TempDir(), "absent")}})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(context.Background(), nil); err == nil {
		t.Error("Watch() on a missing path should fail")
	}
}

func TestWatcher_ShouldProcess(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.Paths = []string{dir}
	w, err := New(config)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"person.csv", fsnotify.Write, true},
		{"PERSON.CSV", fsnotify.Create, true},
		{"schema.yml", fsnotify.Remove, true},
		{"cdm.sqlite", fsnotify.Write, true},
		{"person.csv", fsnotify.Chmod, false},
		{".person.csv", fsnotify.Write, false},
		{"readme.md", fsnotify.Write, false},
	}
	for _, tt := range tests {
		event := fsnotify.Event{Name: filepath.Join(dir, tt.name), Op: tt.op}
		if got := w.ShouldProcess(event); got != tt.want {
			t.Errorf("ShouldProcess(%s %s) = %v, want %v", tt.op, tt.name, got, tt.want)
		}
	}

	outside := fsnotify.Event{Name: filepath.Join(t.TempDir(), "person.csv"), Op: fsnotify.Write}
	if w.ShouldProcess(outside) {
		t.Error("event outside the watched paths should be ignored")
	}
}

func TestDebouncer_Trigger(t *testing.T) {
	d := NewDebouncer(100 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for range 5 {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Errorf("callback called %d times, want 1", n)
	}
}

func TestDebouncer_Stop(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })
	time.Sleep(120 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("callback called %d times after Stop(), want 0", n)
	}
}
