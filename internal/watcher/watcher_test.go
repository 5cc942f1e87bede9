package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ah-its-andy/tengine/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(q *worker.Queue) []string {
	var out []string
	for {
		select {
		case p := <-q.Chan():
			out = append(out, p)
			q.Dequeued(p)
		default:
			return out
		}
	}
}

func TestScanAll(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.MkdirAll(out, 0o755))
	for _, p := range []string{"a.pdf", filepath.Join("sub", "b.txt"), ".hidden", filepath.Join("out", "a.txt")} {
		require.NoError(t, os.WriteFile(filepath.Join(root, p), []byte("x"), 0o644))
	}

	q := worker.NewQueue(4)
	w, err := NewRecursiveWatcher([]string{root}, out, q, nil)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, 2, w.ScanAll())
	assert.ElementsMatch(t, []string{filepath.Join(root, "a.pdf"), filepath.Join(root, "sub", "b.txt")}, drain(q))
}

func TestWatchQueuesNewFiles(t *testing.T) {
	root := t.TempDir()
	q := worker.NewQueue(4)
	w, err := NewRecursiveWatcher([]string{root}, filepath.Join(t.TempDir(), "out"), q, nil)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(root, "quick.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	select {
	case got := <-q.Chan():
		assert.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatal("file was not queued")
	}
}

func TestPausedWatcherIgnoresFiles(t *testing.T) {
	root := t.TempDir()
	q := worker.NewQueue(4)
	w, err := NewRecursiveWatcher([]string{root}, "", q, nil)
	require.NoError(t, err)
	defer w.Close()

	w.Pause()
	assert.True(t, w.Paused())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, q.Len())

	w.Resume()
	assert.False(t, w.Paused())
}
