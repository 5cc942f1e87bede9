package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ah-its-andy/tengine/internal/db"
	"github.com/ah-its-andy/tengine/internal/engine"
	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/ah-its-andy/tengine/internal/metrics"
	"github.com/ah-its-andy/tengine/internal/transform"
	"github.com/ah-its-andy/tengine/internal/utils"
	"github.com/google/uuid"
)

// Transformer runs a single request. *engine.Engine satisfies it.
type Transformer interface {
	Transform(ctx context.Context, req transform.Request) (engine.Result, error)
}

// Options configures what the pool produces for each queued file.
type Options struct {
	Workers        int
	OutputDir      string
	TargetMimetype string
	// TransformOptions are passed unchanged to every request.
	TransformOptions map[string]string
	StabilityDelay   time.Duration
}

type Pool struct {
	opts    Options
	engine  Transformer
	db      *db.DB
	metrics *metrics.Metrics
	queue   *Queue
	wg      sync.WaitGroup

	mu   sync.Mutex
	done map[string]string // source path to checksum of the last transformed content
}

// NewPool builds a pool. database and m may be nil.
func NewPool(opts Options, eng Transformer, database *db.DB, m *metrics.Metrics, q *Queue) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Pool{opts: opts, engine: eng, db: database, metrics: m, queue: q, done: map[string]string{}}
}

// Run starts the workers. They stop when ctx is done; Wait blocks until then.
func (p *Pool) Run(ctx context.Context) {
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) worker(ctx context.Context, idx int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-p.queue.Chan():
			p.handle(ctx, idx, path)
		}
	}
}

func (p *Pool) handle(ctx context.Context, idx int, path string) {
	defer func() {
		p.queue.Dequeued(path)
		p.metrics.SetQueueDepth(p.queue.Len())
	}()
	if _, err := p.Process(ctx, path); err != nil {
		logging.Named("worker").Warn("transform failed", "worker", idx, "path", path, "error", err)
	}
}

// Process transforms the file at path into the output directory. It returns
// the target path, or "" when the file is unchanged since its last transform.
func (p *Pool) Process(ctx context.Context, path string) (string, error) {
	log := logging.Named("worker")
	if err := utils.WaitFileStable(path, p.opts.StabilityDelay); err != nil {
		return "", err
	}
	sum, err := utils.MD5File(path, 0)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	unchanged := p.done[path] == sum
	p.mu.Unlock()
	if unchanged {
		log.Debug("skipping unchanged file", "path", path)
		return "", nil
	}

	start := time.Now()
	entry := &db.TransformLog{
		RequestID:      uuid.NewString(),
		Origin:         "watch",
		TargetMimetype: p.opts.TargetMimetype,
		SourceFile:     path,
		Options:        db.FormatOptions(p.opts.TransformOptions),
		CreatedAt:      start,
	}
	defer p.record(entry, start)

	if fi, err := os.Stat(path); err == nil {
		entry.SourceSize = fi.Size()
	}
	source, err := transform.DetectMimetype(path)
	if err != nil {
		return "", p.fail(entry, err)
	}
	entry.SourceMimetype = source

	target := utils.TargetPath(path, p.opts.OutputDir, transform.TargetExtension(p.opts.TargetMimetype))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", p.fail(entry, err)
	}
	res, err := p.engine.Transform(ctx, transform.Request{
		SourceFile:     path,
		TargetFile:     target,
		SourceMimetype: source,
		TargetMimetype: p.opts.TargetMimetype,
		Options:        p.opts.TransformOptions,
	})
	entry.Transformer = res.Transformer
	if err != nil {
		return "", p.fail(entry, err)
	}
	if fi, err := os.Stat(target); err == nil {
		entry.TargetSize = fi.Size()
	}
	entry.Status = db.StatusSuccess

	p.mu.Lock()
	p.done[path] = sum
	p.mu.Unlock()
	log.Info("transformed", "path", path, "target", target, "transformer", res.Transformer, "duration", res.Duration)
	return target, nil
}

func (p *Pool) fail(entry *db.TransformLog, err error) error {
	entry.Status = db.StatusFailed
	entry.ErrorMessage = err.Error()
	return err
}

func (p *Pool) record(entry *db.TransformLog, start time.Time) {
	entry.DurationMs = time.Since(start).Milliseconds()
	if p.db == nil {
		return
	}
	if err := p.db.InsertTransformLog(entry); err != nil {
		logging.Named("worker").Warn("failed to record transform", "path", entry.SourceFile, "error", err)
	}
}
