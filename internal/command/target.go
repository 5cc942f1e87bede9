package command

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ah-its-andy/tengine/internal/utils"
	"github.com/google/uuid"
)

// WriteTarget lets fn write to a temporary sibling of target and moves the
// result onto target only when fn succeeds. The temporary file never survives
// the call, so a failed transform leaves target untouched.
func WriteTarget(target string, fn func(tmp string) error) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}
	tmp := filepath.Join(dir, utils.TempPrefix+uuid.NewString()+filepath.Ext(target))
	defer os.Remove(tmp)

	if err := fn(tmp); err != nil {
		return err
	}
	if _, err := os.Stat(tmp); err != nil {
		// The tool exited cleanly without writing anything. Leave target as is
		// and let the caller decide whether an absent output is an error.
		return nil
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}
