package utils

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TempPrefix marks in-flight files written next to their final path.
const TempPrefix = ".tengine-"

// IsTemp reports whether path is a hidden or in-flight file.
func IsTemp(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}

func WaitFileStable(path string, delay time.Duration) error {
	// Wait for two consecutive identical sizes separated by delay
	var lastSize int64 = -1
	for i := 0; i < 5; i++ {
		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		sz := fi.Size()
		if lastSize == sz {
			return nil
		}
		lastSize = sz
		if delay <= 0 {
			return nil
		}
		time.Sleep(delay)
	}
	return nil
}

// TargetPath places the output for src in outDir with ext. An empty outDir
// means a "transformed" directory next to src.
func TargetPath(src, outDir, ext string) string {
	base := filepath.Base(src)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ext
	if outDir == "" {
		outDir = filepath.Join(filepath.Dir(src), "transformed")
	}
	return filepath.Join(outDir, name)
}
