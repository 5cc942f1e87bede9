package transform

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Option keys recognised by the engines. Any other key is ignored.
const (
	OptPage                    = "page"
	OptWidth                   = "width"
	OptHeight                  = "height"
	OptAllowPdfEnlargement     = "allowPdfEnlargement"
	OptMaintainPdfAspectRatio  = "maintainPdfAspectRatio"
	OptTimeout                 = "timeout"
	OptIncludeContents         = "includeContents"
	OptNotExtractBookmarksText = "notExtractBookmarksText"
	OptTargetEncoding          = "targetEncoding"
	OptTransformName           = "transformName"
)

// Target mimetypes that route a request to the metadata registry.
const (
	MimetypeMetadataExtract = "alfresco-metadata-extract"
	MimetypeMetadataEmbed   = "alfresco-metadata-embed"
)

// Request is a single transform invocation. It is not mutated by executors.
type Request struct {
	TransformName  string
	SourceFile     string
	TargetFile     string
	SourceMimetype string
	TargetMimetype string
	Options        map[string]string
}

// Option returns the named option, or "" when absent.
func (r Request) Option(key string) string {
	if r.Options == nil {
		return ""
	}
	return r.Options[key]
}

// Executor is implemented by every engine.
type Executor interface {
	// ID identifies the engine for logging and auditing.
	ID() string
	Transform(ctx context.Context, req Request) error
}

// Checker is implemented by engines that can report the version of the tool they wrap.
type Checker interface {
	Check(ctx context.Context) (string, error)
}

// ParseBool follows the lenient boolean rule of the engines: only a
// case-insensitive "true" is true, anything else (including "") is false.
func ParseBool(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

// ParseOptionalInt parses an integer option. ok is false when the option is absent.
func ParseOptionalInt(op, key, s string) (n int, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(s)
	if err != nil {
		return 0, false, Validationf(op, "option %s: %q is not an integer", key, s)
	}
	return n, true, nil
}

// ParseTimeout reads the timeout option, given in milliseconds. A Go duration
// string such as "30s" is also accepted. Absent or non-positive values return 0,
// which callers treat as "use the default".
func ParseTimeout(op, s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms <= 0 {
			return 0, nil
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, Validationf(op, "option %s: %q is not a duration", OptTimeout, s)
	}
	if d <= 0 {
		return 0, nil
	}
	return d, nil
}
