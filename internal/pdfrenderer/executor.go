package pdfrenderer

import (
	"context"
	"strings"
	"time"

	"github.com/ah-its-andy/tengine/internal/command"
	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/ah-its-andy/tengine/internal/transform"
)

// ID identifies this engine.
const ID = "pdfrenderer"

// DefaultExe is the renderer binary name looked up on PATH.
const DefaultExe = "alfresco-pdf-renderer"

// Config configures an Executor.
type Config struct {
	Exe     string
	Timeout time.Duration
	// Runner defaults to command.OSRunner.
	Runner command.Runner
}

// Executor renders PDF and Illustrator pages to PNG with an external renderer.
type Executor struct {
	exe       string
	transform *command.Command
	check     *command.Command
}

// New resolves the executable and builds the transform and version commands.
// It fails with a configuration error when exe is empty or cannot be found.
func New(cfg Config) (*Executor, error) {
	if strings.TrimSpace(cfg.Exe) == "" {
		return nil, transform.Configurationf(ID, nil, "renderer executable is not set")
	}
	runner := cfg.Runner
	if runner == nil {
		runner = command.OSRunner{}
	}
	exe, err := runner.LookPath(cfg.Exe)
	if err != nil {
		return nil, transform.Configurationf(ID, err, "renderer executable %q not found", cfg.Exe)
	}

	tc, err := command.New(command.Config{
		Name:         ID + " transform",
		Templates:    []command.Template{command.MustTemplate(".*", exe, "SPLIT:${options}", "${source}", "${target}")},
		Defaults:     command.Properties{"options": nil},
		FailureCodes: []int{1},
		Timeout:      cfg.Timeout,
		Runner:       runner,
	})
	if err != nil {
		return nil, err
	}
	cc, err := command.New(command.Config{
		Name:         ID + " check",
		Templates:    []command.Template{command.MustTemplate(".*", exe, "--version")},
		FailureCodes: []int{1},
		Timeout:      cfg.Timeout,
		Runner:       runner,
	})
	if err != nil {
		return nil, err
	}
	return &Executor{exe: exe, transform: tc, check: cc}, nil
}

func (e *Executor) ID() string { return ID }

// Transform renders req.SourceFile into req.TargetFile. The target is only
// created or replaced when the renderer exits successfully.
func (e *Executor) Transform(ctx context.Context, req transform.Request) error {
	log := logging.Named(ID)
	opts := OptionsFrom(req.Options).Build()
	timeout, err := transform.ParseTimeout(ID, req.Option(transform.OptTimeout))
	if err != nil {
		log.Debug("ignoring option", "option", transform.OptTimeout, "error", err)
		timeout = 0
	}
	log.Debug("transform options", "options", strings.Join(opts, " "),
		"source", req.SourceMimetype, "target", req.TargetMimetype)

	key := req.SourceMimetype + " " + req.TargetMimetype
	return command.WriteTarget(req.TargetFile, func(tmp string) error {
		_, err := e.transform.Execute(ctx, key, command.Properties{
			"options": opts,
			"source":  {req.SourceFile},
			"target":  {tmp},
		}, timeout)
		return err
	})
}

// Check returns the renderer's version string.
func (e *Executor) Check(ctx context.Context) (string, error) {
	res, err := e.check.Execute(ctx, "", nil, 0)
	if err != nil {
		return "", transform.Unavailable(ID, err)
	}
	version := strings.TrimSpace(res.Stdout)
	if version == "" {
		version = strings.TrimSpace(res.Stderr)
	}
	if version == "" {
		return "", transform.Unavailable(ID, nil)
	}
	return version, nil
}
