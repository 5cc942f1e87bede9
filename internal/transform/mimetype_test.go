package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetExtension(t *testing.T) {
	assert.Equal(t, ".png", TargetExtension("image/png"))
	assert.Equal(t, ".txt", TargetExtension("text/plain"))
	assert.Equal(t, ".json", TargetExtension(MimetypeMetadataExtract))
	assert.Equal(t, "", TargetExtension(MimetypeMetadataEmbed))
	assert.Equal(t, "", TargetExtension("application/x-unknown-thing"))
}

func TestDetectMimetype(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain words\n"), 0o644))
	mt, err := DetectMimetype(txt)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mt)

	pdf := filepath.Join(dir, "a.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4\n%%EOF\n"), 0o644))
	mt, err = DetectMimetype(pdf)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", mt)

	_, err = DetectMimetype(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
