package utils

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
)

const defaultChunkSize = 4 << 20

// MD5File hashes the file at path reading chunkSize bytes at a time.
func MD5File(path string, chunkSize int64) (string, error) {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, chunkSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
