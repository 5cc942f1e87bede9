package logging

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

// Options controls the process logger.
type Options struct {
	Level string
	JSON  bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

var def atomic.Value

func init() {
	def.Store(hclog.New(&hclog.LoggerOptions{
		Name:   "tengine",
		Level:  hclog.Info,
		Output: os.Stderr,
	}))
}

// Configure replaces the process logger.
func Configure(opts Options) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	def.Store(hclog.New(&hclog.LoggerOptions{
		Name:       "tengine",
		Level:      parseLevel(opts.Level),
		Output:     out,
		JSONFormat: opts.JSON,
	}))
}

func parseLevel(s string) hclog.Level {
	if l := hclog.LevelFromString(s); l != hclog.NoLevel {
		return l
	}
	return hclog.Info
}

// L returns the process logger.
func L() hclog.Logger {
	l, _ := def.Load().(hclog.Logger)
	return l
}

// Named returns a sub-logger of the process logger.
func Named(name string) hclog.Logger {
	return L().Named(name)
}
