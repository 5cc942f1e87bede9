package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "tengine dev\n", out)
}

func TestTransformCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "tengine.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
pdfrenderer:
  enabled: false
audit:
  enabled: true
  db_path: `+filepath.Join(dir, "audit.db")+`
log:
  level: error
`), 0o644))
	source := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(source, []byte("# Title\n\nSome *text*.\n"), 0o644))
	target := filepath.Join(dir, "notes.html")

	out, err := execute(t, "transform", source, target,
		"--config", cfg,
		"--source-mimetype", "text/markdown",
		"--target-mimetype", "text/html")
	require.NoError(t, err)
	assert.Contains(t, out, "textextract")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<h1>Title</h1>")
	assert.FileExists(t, filepath.Join(dir, "audit.db"))
}
