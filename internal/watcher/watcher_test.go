package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler collects delivered events.
type recordingHandler struct {
	mu      sync.Mutex
	changed []string
	deleted []string
}

func (h *recordingHandler) FileChanged(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changed = append(h.changed, filepath.Base(path))
}

func (h *recordingHandler) FileDeleted(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, filepath.Base(path))
}

func (h *recordingHandler) changedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.changed)
}

func (h *recordingHandler) deletedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.deleted)
}

func newTestWatcher(t *testing.T, root string, debounce time.Duration) (*Watcher, *recordingHandler) {
	t.Helper()
	handler := &recordingHandler{}
	w, err := New(Config{
		RootDir:  root,
		Debounce: debounce,
		Include:  []string{"**/*.go"},
	}, handler)
	require.NoError(t, err)
	t.Cleanup(w.Dispose)
	return w, handler
}

func TestRapidWritesCollapseToOneEvent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	_, handler := newTestWatcher(t, root, 100*time.Millisecond)

	// Five writes in quick succession, well inside the quiet period.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("package main\n// v\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return handler.changedCount() == 1
	}, 2*time.Second, 20*time.Millisecond)

	// No trailing duplicate after the debounce settles.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, handler.changedCount())
}

func TestDeleteFiresImmediately(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "gone.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))

	// Debounce far longer than the test: a delete must not wait for it.
	_, handler := newTestWatcher(t, root, 10*time.Second)

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		return handler.deletedCount() == 1
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, 0, handler.changedCount())
}

func TestDeleteCancelsPendingChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "flash.go")

	_, handler := newTestWatcher(t, root, 200*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0o644))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		return handler.deletedCount() == 1
	}, 2*time.Second, 20*time.Millisecond)

	// The write debounce was cancelled by the delete.
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 0, handler.changedCount())
}

func TestNonMatchingFilesIgnored(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, handler := newTestWatcher(t, root, 50*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, handler.changedCount())
}

func TestNewSubdirectoryIsWatched(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	_, handler := newTestWatcher(t, root, 50*time.Millisecond)

	sub := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the watcher a beat to register the new directory.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "util.go"), []byte("package pkg\n"), 0o644))

	require.Eventually(t, func() bool {
		return handler.changedCount() >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStatusAndDispose(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	w, _ := newTestWatcher(t, root, 10*time.Second)

	status := w.Status()
	assert.True(t, status.Active)
	assert.Equal(t, []string{"**/*.go"}, status.WatchedPatterns)
	assert.Equal(t, 0, status.PendingChanges)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644))
	require.Eventually(t, func() bool {
		return w.Status().PendingChanges == 1
	}, 2*time.Second, 20*time.Millisecond)

	w.Dispose()
	status = w.Status()
	assert.False(t, status.Active)
	assert.Equal(t, 0, status.PendingChanges, "dispose cancels pending timers")

	// Safe to call again.
	w.Dispose()
}
