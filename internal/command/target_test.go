package command

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ah-its-andy/tengine/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTargetMovesOnSuccess(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.png")

	err := WriteTarget(target, func(tmp string) error {
		assert.Equal(t, ".png", filepath.Ext(tmp))
		assert.True(t, strings.HasPrefix(filepath.Base(tmp), utils.TempPrefix), tmp)
		assert.Equal(t, dir, filepath.Dir(tmp))
		return os.WriteFile(tmp, []byte("png"), 0o644)
	})
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assertOnlyFile(t, dir, "out.png")
}

func TestWriteTargetLeavesTargetOnFailure(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.png")
	require.NoError(t, os.WriteFile(target, []byte("previous"), 0o644))

	err := WriteTarget(target, func(tmp string) error {
		_ = os.WriteFile(tmp, []byte("partial"), 0o644)
		return errors.New("boom")
	})
	require.Error(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
	assertOnlyFile(t, dir, "out.png")
}

func TestWriteTargetNoOutput(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out.png")

	require.NoError(t, WriteTarget(target, func(string) error { return nil }))
	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err))
}

func assertOnlyFile(t *testing.T, dir, name string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, name, entries[0].Name())
}
