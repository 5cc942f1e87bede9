package transform

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// TargetExtension returns the file extension used for a target mimetype.
func TargetExtension(targetMimetype string) string {
	switch targetMimetype {
	case MimetypeMetadataExtract:
		return ".json"
	case MimetypeMetadataEmbed:
		return ""
	}
	if m := mimetype.Lookup(targetMimetype); m != nil {
		return m.Extension()
	}
	return ""
}

// DetectMimetype sniffs the media type of the file at path, without parameters.
func DetectMimetype(path string) (string, error) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	mt, _, _ := strings.Cut(m.String(), ";")
	return strings.TrimSpace(mt), nil
}
