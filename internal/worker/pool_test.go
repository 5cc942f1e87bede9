package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ah-its-andy/tengine/internal/db"
	"github.com/ah-its-andy/tengine/internal/engine"
	"github.com/ah-its-andy/tengine/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	mu   sync.Mutex
	reqs []transform.Request
	err  error
}

func (s *stubEngine) Transform(ctx context.Context, req transform.Request) (engine.Result, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	res := engine.Result{Transformer: "textextract", Executor: "textextract"}
	if s.err != nil {
		return res, s.err
	}
	return res, os.WriteFile(req.TargetFile, []byte("text"), 0o644)
}

func (s *stubEngine) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reqs)
}

func openDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestProcess(t *testing.T) {
	in, out := t.TempDir(), filepath.Join(t.TempDir(), "out")
	src := filepath.Join(in, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("some plain text\n"), 0o644))

	eng := &stubEngine{}
	database := openDB(t)
	p := NewPool(Options{
		OutputDir:        out,
		TargetMimetype:   "text/html",
		TransformOptions: map[string]string{"targetEncoding": "UTF-8"},
	}, eng, database, nil, NewQueue(1))

	target, err := p.Process(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "notes.html"), target)
	assert.FileExists(t, target)

	require.Len(t, eng.reqs, 1)
	assert.Equal(t, "text/plain", eng.reqs[0].SourceMimetype)
	assert.Equal(t, "text/html", eng.reqs[0].TargetMimetype)
	assert.Equal(t, "UTF-8", eng.reqs[0].Option("targetEncoding"))

	// Unchanged content is not transformed again.
	target, err = p.Process(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, target)
	assert.Equal(t, 1, eng.calls())

	require.NoError(t, os.WriteFile(src, []byte("changed text\n"), 0o644))
	_, err = p.Process(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, eng.calls())

	rows, total, err := database.ListTransformLogs(10, 0, db.StatusSuccess)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "watch", rows[0].Origin)
	assert.Equal(t, "textextract", rows[0].Transformer)
	assert.Equal(t, "targetEncoding=UTF-8", rows[0].Options)
	assert.Equal(t, int64(4), rows[0].TargetSize)
}

func TestProcessFailureIsRecorded(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	eng := &stubEngine{err: transform.Lookupf("engine", "no transformer for text/plain to image/png")}
	database := openDB(t)
	p := NewPool(Options{OutputDir: t.TempDir(), TargetMimetype: "image/png"}, eng, database, nil, NewQueue(1))

	_, err := p.Process(context.Background(), src)
	assert.True(t, errors.Is(err, transform.ErrLookup))

	rows, _, err := database.ListTransformLogs(10, 0, db.StatusFailed)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].ErrorMessage, "no transformer")

	// A failed file is retried on the next event.
	_, err = p.Process(context.Background(), src)
	assert.Error(t, err)
	assert.Equal(t, 2, eng.calls())
}

func TestProcessMissingFile(t *testing.T) {
	p := NewPool(Options{OutputDir: t.TempDir(), TargetMimetype: "text/plain"}, &stubEngine{}, nil, nil, NewQueue(1))
	_, err := p.Process(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestPoolRun(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	q := NewQueue(4)
	eng := &stubEngine{}
	p := NewPool(Options{Workers: 2, OutputDir: out, TargetMimetype: "text/plain"}, eng, nil, nil, q)

	ctx, cancel := context.WithCancel(context.Background())
	p.Run(ctx)
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		path := filepath.Join(in, name)
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
		require.True(t, q.Enqueue(path))
	}

	assert.Eventually(t, func() bool { return eng.calls() == 3 && q.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	p.Wait()
	assert.FileExists(t, filepath.Join(out, "b.txt"))
}
