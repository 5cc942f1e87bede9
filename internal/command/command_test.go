package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ah-its-andy/tengine/internal/transform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	out   Output
	err   error
	block bool
	calls [][]string
}

func (f *fakeRunner) LookPath(file string) (string, error) { return file, nil }

func (f *fakeRunner) Run(ctx context.Context, name string, args []string) (Output, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.block {
		<-ctx.Done()
		return Output{ExitCode: -1}, ctx.Err()
	}
	return f.out, f.err
}

func newTestCommand(t *testing.T, r Runner) *Command {
	t.Helper()
	c, err := New(Config{
		Name:         "test transform",
		Templates:    []Template{MustTemplate(".*", "tool", "SPLIT:${options}", "${source}", "${target}")},
		Defaults:     Properties{"options": nil},
		FailureCodes: []int{1},
		Runner:       r,
	})
	require.NoError(t, err)
	return c
}

func TestExecuteSuccess(t *testing.T) {
	r := &fakeRunner{out: Output{Stdout: []byte("ok")}}
	c := newTestCommand(t, r)

	res, err := c.Execute(context.Background(), "", Properties{"source": {"a"}, "target": {"b"}}, 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Stdout)
	assert.Equal(t, [][]string{{"tool", "a", "b"}}, r.calls)
}

func TestExecuteExitCodeClassification(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		wantErr bool
	}{
		{name: "zero", code: 0},
		{name: "in failure set", code: 1, wantErr: true},
		{name: "outside failure set", code: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{out: Output{ExitCode: tt.code, Stderr: []byte("bad page\n")}}
			_, err := newTestCommand(t, r).Execute(context.Background(), "", nil, 0)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, transform.ErrToolFailure)
			var te *transform.Error
			require.ErrorAs(t, err, &te)
			assert.Equal(t, "bad page", te.Output)
		})
	}
}

func TestExecuteStartFailure(t *testing.T) {
	r := &fakeRunner{err: errors.New("exec: no such file"), out: Output{ExitCode: -1}}
	_, err := newTestCommand(t, r).Execute(context.Background(), "", nil, 0)
	assert.ErrorIs(t, err, transform.ErrToolFailure)
}

func TestExecuteTimeout(t *testing.T) {
	r := &fakeRunner{block: true}
	start := time.Now()
	_, err := newTestCommand(t, r).Execute(context.Background(), "", nil, 50*time.Millisecond)
	assert.ErrorIs(t, err, transform.ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestExecuteNoMatchingTemplate(t *testing.T) {
	c, err := New(Config{
		Name:      "test",
		Templates: []Template{MustTemplate("^application/pdf", "tool")},
		Runner:    &fakeRunner{},
	})
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), "image/png", nil, 0)
	assert.ErrorIs(t, err, transform.ErrConfiguration)
}

func TestNewRequiresTemplates(t *testing.T) {
	_, err := New(Config{Name: "empty"})
	assert.ErrorIs(t, err, transform.ErrConfiguration)
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not available on windows")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestOSRunnerKillsOnTimeout(t *testing.T) {
	script := writeScript(t, "sleep 30")
	c, err := New(Config{
		Name:      "sleeper",
		Templates: []Template{MustTemplate(".*", script)},
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Execute(context.Background(), "", nil, 200*time.Millisecond)
	assert.ErrorIs(t, err, transform.ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

// processGone reports whether pid has exited. A zombie counts as exited.
func processGone(pid int) bool {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return true
	}
	s := string(data)
	i := strings.LastIndexByte(s, ')')
	return i < 0 || i+2 >= len(s) || s[i+2] == 'Z'
}

func TestOSRunnerKillsChildrenOnTimeout(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("reads process state from /proc")
	}
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	script := writeScript(t, "sleep 30 &\necho $! > \"$1\"\nwait")
	c, err := New(Config{
		Name:      "parent",
		Templates: []Template{MustTemplate(".*", script, "${pidfile}")},
	})
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), "", Properties{"pidfile": {pidFile}}, 500*time.Millisecond)
	require.ErrorIs(t, err, transform.ErrTimeout)

	data, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return processGone(pid) }, 5*time.Second, 20*time.Millisecond,
		"background child %d still running", pid)
}

func TestOSRunnerReportsExitCode(t *testing.T) {
	script := writeScript(t, "echo broken >&2\nexit 1")
	c, err := New(Config{
		Name:         "failing",
		Templates:    []Template{MustTemplate(".*", script)},
		FailureCodes: []int{1},
	})
	require.NoError(t, err)

	res, err := c.Execute(context.Background(), "", nil, 0)
	require.ErrorIs(t, err, transform.ErrToolFailure)
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, err.Error(), "broken")
}
