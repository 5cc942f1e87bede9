package engine

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/ah-its-andy/tengine/internal/metrics"
	"github.com/ah-its-andy/tengine/internal/transform"
)

// Result describes a completed transform.
type Result struct {
	Transformer string
	Executor    string
	Duration    time.Duration
}

// Engine routes requests to executors according to a Config. It is
// immutable after New.
type Engine struct {
	cfg       *Config
	executors map[string]transform.Executor
	metrics   *metrics.Metrics
}

// New binds executors to cfg. Every transformer must name a registered
// executor. m may be nil.
func New(cfg *Config, m *metrics.Metrics, executors ...transform.Executor) (*Engine, error) {
	e := &Engine{cfg: cfg, executors: make(map[string]transform.Executor, len(executors)), metrics: m}
	for _, ex := range executors {
		e.executors[ex.ID()] = ex
	}
	for _, t := range cfg.Transformers {
		if _, ok := e.executors[t.Executor]; !ok {
			return nil, transform.Configurationf("engine", nil, "transformer %s uses unknown executor %q", t.TransformerName, t.Executor)
		}
	}
	return e, nil
}

// Config returns the engine config.
func (e *Engine) Config() *Config { return e.cfg }

// Resolve picks the transformer for req. An explicit transform name wins;
// otherwise the first transformer supporting the mimetype pair is used.
func (e *Engine) Resolve(req transform.Request) (Transformer, SourceTarget, transform.Executor, error) {
	const op = "engine"
	for _, t := range e.cfg.Transformers {
		if req.TransformName != "" && t.TransformerName != req.TransformName {
			continue
		}
		st, ok := t.Supports(req.SourceMimetype, req.TargetMimetype)
		if !ok {
			if req.TransformName != "" {
				return Transformer{}, SourceTarget{}, nil, transform.Lookupf(op, "transformer %s does not support %s to %s",
					t.TransformerName, req.SourceMimetype, req.TargetMimetype)
			}
			continue
		}
		return t, st, e.executors[t.Executor], nil
	}
	if req.TransformName != "" {
		return Transformer{}, SourceTarget{}, nil, transform.Lookupf(op, "no transformer named %s", req.TransformName)
	}
	return Transformer{}, SourceTarget{}, nil, transform.Lookupf(op, "no transformer for %s to %s", req.SourceMimetype, req.TargetMimetype)
}

// Transform resolves and runs req.
func (e *Engine) Transform(ctx context.Context, req transform.Request) (Result, error) {
	t, st, ex, err := e.Resolve(req)
	if err != nil {
		return Result{}, err
	}
	if err := e.checkRequest(t, st, req); err != nil {
		return Result{Transformer: t.TransformerName, Executor: ex.ID()}, err
	}
	req.TransformName = t.TransformerName

	start := time.Now()
	err = ex.Transform(ctx, req)
	res := Result{Transformer: t.TransformerName, Executor: ex.ID(), Duration: time.Since(start)}
	e.metrics.Observe(t.TransformerName, Status(err), res.Duration)

	log := logging.Named("engine")
	if err != nil {
		log.Warn("transform failed", "transformer", res.Transformer, "source", req.SourceMimetype,
			"target", req.TargetMimetype, "duration", res.Duration, "error", err)
		return res, err
	}
	log.Debug("transform complete", "transformer", res.Transformer, "duration", res.Duration)
	return res, nil
}

func (e *Engine) checkRequest(t Transformer, st SourceTarget, req transform.Request) error {
	for _, o := range e.cfg.Options(t) {
		if o.Required && strings.TrimSpace(req.Option(o.Name)) == "" {
			return transform.Validationf("engine", "option %s is required by %s", o.Name, t.TransformerName)
		}
	}
	if st.MaxSourceSizeBytes > 0 && req.SourceFile != "" {
		fi, err := os.Stat(req.SourceFile)
		if err != nil {
			return fmt.Errorf("stat source: %w", err)
		}
		if fi.Size() > st.MaxSourceSizeBytes {
			return transform.Validationf("engine", "source is %d bytes, %s accepts at most %d", fi.Size(), t.TransformerName, st.MaxSourceSizeBytes)
		}
	}
	return nil
}

// Check runs the version check of every executor that has one.
func (e *Engine) Check(ctx context.Context) (map[string]string, error) {
	ids := make([]string, 0, len(e.executors))
	for id := range e.executors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	versions := map[string]string{}
	for _, id := range ids {
		c, ok := e.executors[id].(transform.Checker)
		if !ok {
			continue
		}
		v, err := c.Check(ctx)
		if err != nil {
			return versions, err
		}
		versions[id] = v
	}
	return versions, nil
}

// Status labels err for metrics and the audit log.
func Status(err error) string {
	if err == nil {
		return "success"
	}
	return strings.ReplaceAll(transform.KindOf(err).String(), " ", "_")
}
