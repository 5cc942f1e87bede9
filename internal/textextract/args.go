package textextract

import (
	"path/filepath"
	"strings"

	"github.com/ah-its-andy/tengine/internal/transform"
)

// DefaultEncoding is used when the request names no target encoding.
const DefaultEncoding = "UTF-8"

const (
	flagContents         = "--contents"
	flagNotBookmarksText = "--notExtractBookmarksText"
	flagTargetMimetype   = "--targetMimetype="
	flagTargetEncoding   = "--targetEncoding="
)

// buildArgs returns the library argument list and a log line of the same
// shape with file paths replaced by their extensions.
func buildArgs(req transform.Request, source, target string) (args []string, logLine string) {
	encoding := req.Option(transform.OptTargetEncoding)
	if strings.TrimSpace(encoding) == "" {
		encoding = DefaultEncoding
	}

	flags := make([]string, 0, 4)
	if transform.ParseBool(req.Option(transform.OptIncludeContents)) {
		flags = append(flags, flagContents)
	}
	if transform.ParseBool(req.Option(transform.OptNotExtractBookmarksText)) {
		flags = append(flags, flagNotBookmarksText)
	}
	flags = append(flags,
		flagTargetMimetype+req.TargetMimetype,
		flagTargetEncoding+encoding,
	)

	args = append(append([]string{}, flags...), source, target)
	logArgs := append(append([]string{}, flags...), extension(source), extension(target))
	return args, strings.Join(logArgs, " ")
}

func extension(path string) string {
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		return ext
	}
	return "???"
}

// libraryArgs is the parsed form of a buildArgs list.
type libraryArgs struct {
	contents         bool
	notBookmarksText bool
	targetMimetype   string
	targetEncoding   string
	source           string
	target           string
}

func parseArgs(args []string) (libraryArgs, error) {
	const op = "textextract args"
	la := libraryArgs{targetEncoding: DefaultEncoding}
	var files []string
	for _, a := range args {
		switch {
		case a == flagContents:
			la.contents = true
		case a == flagNotBookmarksText:
			la.notBookmarksText = true
		case strings.HasPrefix(a, flagTargetMimetype):
			la.targetMimetype = strings.TrimPrefix(a, flagTargetMimetype)
		case strings.HasPrefix(a, flagTargetEncoding):
			la.targetEncoding = strings.TrimPrefix(a, flagTargetEncoding)
		case strings.HasPrefix(a, "--"):
			return la, transform.Validationf(op, "unknown argument %q", a)
		default:
			files = append(files, a)
		}
	}
	if len(files) != 2 {
		return la, transform.Validationf(op, "expected source and target, got %d paths", len(files))
	}
	la.source, la.target = files[0], files[1]
	return la, nil
}
