package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/ah-its-andy/tengine/internal/transform"
)

// DefaultTimeout applies when neither the caller nor the Config sets one.
const DefaultTimeout = 2 * time.Minute

// Config describes one external command.
type Config struct {
	// Name prefixes every error, e.g. "pdfrenderer transform".
	Name      string
	Templates []Template
	Defaults  Properties
	// FailureCodes lists exit codes treated as a tool failure. Any other exit
	// code is success.
	FailureCodes []int
	Timeout      time.Duration
	Runner       Runner
}

// Command is an immutable, concurrency-safe external command.
type Command struct {
	name      string
	templates []Template
	defaults  Properties
	failures  map[int]struct{}
	timeout   time.Duration
	runner    Runner
}

// Result describes a successful execution.
type Result struct {
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// New validates cfg and builds a Command.
func New(cfg Config) (*Command, error) {
	if len(cfg.Templates) == 0 {
		return nil, transform.Configurationf(cfg.Name, nil, "no command templates")
	}
	for i, t := range cfg.Templates {
		if t.Pattern == nil || len(t.Args) == 0 || t.Args[0] == "" {
			return nil, transform.Configurationf(cfg.Name, nil, "template %d is incomplete", i)
		}
	}
	c := &Command{
		name:      cfg.Name,
		templates: append([]Template(nil), cfg.Templates...),
		defaults:  Properties{},
		failures:  make(map[int]struct{}, len(cfg.FailureCodes)),
		timeout:   cfg.Timeout,
		runner:    cfg.Runner,
	}
	for k, v := range cfg.Defaults {
		c.defaults[k] = v
	}
	for _, code := range cfg.FailureCodes {
		c.failures[code] = struct{}{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.runner == nil {
		c.runner = OSRunner{}
	}
	return c, nil
}

// Args resolves the argument vector for key without running anything.
func (c *Command) Args(key string, props Properties) ([]string, error) {
	for _, t := range c.templates {
		if t.Pattern.MatchString(key) {
			return t.Expand(props, c.defaults), nil
		}
	}
	return nil, transform.Configurationf(c.name, nil, "no command template matches %q", key)
}

// Execute runs the command selected by key. A timeout of zero uses the
// command's default. The process is killed when the timeout expires.
func (c *Command) Execute(ctx context.Context, key string, props Properties, timeout time.Duration) (Result, error) {
	args, err := c.Args(key, props)
	if err != nil {
		return Result{}, err
	}
	if timeout <= 0 {
		timeout = c.timeout
	}

	log := logging.Named("command")
	log.Debug("executing", "name", c.name, "args", strings.Join(args, " "), "timeout", timeout)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, runErr := c.runner.Run(runCtx, args[0], args[1:])
	res := Result{
		Args:     args,
		Stdout:   string(out.Stdout),
		Stderr:   string(out.Stderr),
		ExitCode: out.ExitCode,
		Duration: time.Since(start),
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		log.Warn("killed after timeout", "name", c.name, "timeout", timeout)
		return res, transform.Timeoutf(c.name, "process did not finish within %s", timeout)
	}
	if runErr != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s: %w", c.name, ctx.Err())
		}
		return res, transform.ToolFailure(c.name, diagnostic(res), runErr)
	}
	if _, failed := c.failures[res.ExitCode]; failed {
		return res, transform.ToolFailure(c.name, diagnostic(res), fmt.Errorf("exit code %d", res.ExitCode))
	}
	return res, nil
}

func diagnostic(res Result) string {
	if s := strings.TrimSpace(res.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(res.Stdout)
}
