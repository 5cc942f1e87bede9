package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/ah-its-andy/tengine/internal/metrics"
	"github.com/ah-its-andy/tengine/internal/utils"
	"github.com/ah-its-andy/tengine/internal/worker"
	"github.com/fsnotify/fsnotify"
)

// Watcher queues files created or written under its roots. Directories are
// followed recursively and the output directory is never watched.
type Watcher struct {
	queue     *worker.Queue
	metrics   *metrics.Metrics
	w         *fsnotify.Watcher
	roots     []string
	outputDir string
	mu        sync.Mutex
	paused    bool
}

func NewRecursiveWatcher(roots []string, outputDir string, q *worker.Queue, m *metrics.Metrics) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		if abs, err := filepath.Abs(outputDir); err == nil {
			outputDir = abs
		}
	}
	return &Watcher{queue: q, metrics: m, w: w, roots: roots, outputDir: outputDir}, nil
}

func (wr *Watcher) Start(ctx context.Context) error {
	for _, root := range wr.roots {
		wr.addTree(root)
	}
	log := logging.Named("watcher")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-wr.w.Events:
			if !ok {
				return nil
			}
			wr.handleEvent(ev)
		case err, ok := <-wr.w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		}
	}
}

func (wr *Watcher) Close() error { return wr.w.Close() }

func (wr *Watcher) Pause()       { wr.mu.Lock(); wr.paused = true; wr.mu.Unlock() }
func (wr *Watcher) Resume()      { wr.mu.Lock(); wr.paused = false; wr.mu.Unlock() }
func (wr *Watcher) Paused() bool { wr.mu.Lock(); defer wr.mu.Unlock(); return wr.paused }

func (wr *Watcher) addTree(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if wr.isOutput(path) {
			return filepath.SkipDir
		}
		if err := wr.w.Add(path); err != nil {
			logging.Named("watcher").Warn("cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (wr *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	fi, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if fi.IsDir() {
		if ev.Has(fsnotify.Create) {
			wr.addTree(ev.Name)
		}
		return
	}
	if wr.Paused() {
		return
	}
	wr.enqueue(ev.Name)
}

func (wr *Watcher) enqueue(path string) bool {
	if utils.IsTemp(path) || wr.isOutput(path) {
		return false
	}
	ok := wr.queue.Enqueue(path)
	if ok {
		logging.Named("watcher").Debug("queued", "path", path)
		wr.metrics.SetQueueDepth(wr.queue.Len())
	}
	return ok
}

func (wr *Watcher) isOutput(path string) bool {
	if wr.outputDir == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return abs == wr.outputDir || strings.HasPrefix(abs, wr.outputDir+string(filepath.Separator))
}

// ScanAll queues every regular file already present under the roots and
// returns how many were queued.
func (wr *Watcher) ScanAll() int {
	n := 0
	for _, root := range wr.roots {
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if wr.isOutput(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && wr.enqueue(path) {
				n++
			}
			return nil
		})
	}
	return n
}
