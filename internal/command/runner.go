package command

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Output is what a finished process left behind.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner starts processes. OSRunner is the production implementation; tests
// substitute their own.
type Runner interface {
	LookPath(file string) (string, error)
	// Run executes name with args and waits for it. A non-zero exit is reported
	// through Output.ExitCode, not as an error. The process must be killed when
	// ctx is done.
	Run(ctx context.Context, name string, args []string) (Output, error)
}

// OSRunner runs real processes via os/exec.
type OSRunner struct {
	// WaitDelay bounds how long Run waits for output pipes after the process
	// has been killed.
	WaitDelay time.Duration
}

func (OSRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (r OSRunner) Run(ctx context.Context, name string, args []string) (Output, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 2 * time.Second
	}
	setupProcess(cmd)

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		out.ExitCode = -1
		return out, err
	}
	return out, nil
}
