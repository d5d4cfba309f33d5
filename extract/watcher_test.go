package extract_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/c360studio/goldenthread/extract"
)

func newTestWatcher(t *testing.T, root string) *extract.Watcher {
	t.Helper()
	w, err := extract.NewWatcher(extract.WatcherConfig{
		Root:          root,
		Extensions:    []string{".go"},
		DebounceDelay: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	return w
}

func TestWatcher_EmitsChangedFiles(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "svc.go"), []byte("package svc\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored\n"), 0o644))

	seen := make(map[string]bool)
	deadline := time.After(5 * time.Second)
	for !seen["svc.go"] {
		select {
		case batch := <-w.Changes():
			for _, path := range batch {
				seen[path] = true
			}
		case <-deadline:
			t.Fatal("change batch never arrived")
		}
	}
	require.False(t, seen["notes.txt"], "unwatched extensions never appear in a batch")
}

func TestWatcher_StopAfterCancelClosesChannel(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	// Leave a pending change so a flush can race the shutdown path.
	require.NoError(t, os.WriteFile(filepath.Join(root, "svc.go"), []byte("package svc\n"), 0o644))

	cancel()
	require.NoError(t, w.Stop())

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-w.Changes():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("change channel never closed after Stop")
		}
	}
}
