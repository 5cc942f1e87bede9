package pdfrenderer

import (
	"strconv"

	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/ah-its-andy/tengine/internal/transform"
)

const opBuild = "pdfrenderer options"

// OptionsBuilder turns raw request options into renderer flags. The flag order
// is fixed: --page, --width, --height, --allow-enlargement, --maintain-aspect-ratio.
type OptionsBuilder struct {
	page                string
	width               string
	height              string
	allowEnlargement    string
	maintainAspectRatio string
}

// NewOptionsBuilder returns an empty builder.
func NewOptionsBuilder() *OptionsBuilder {
	return &OptionsBuilder{}
}

// OptionsFrom fills a builder from a request option map.
func OptionsFrom(options map[string]string) *OptionsBuilder {
	return NewOptionsBuilder().
		WithPage(options[transform.OptPage]).
		WithWidth(options[transform.OptWidth]).
		WithHeight(options[transform.OptHeight]).
		WithAllowPdfEnlargement(options[transform.OptAllowPdfEnlargement]).
		WithMaintainPdfAspectRatio(options[transform.OptMaintainPdfAspectRatio])
}

func (b *OptionsBuilder) WithPage(v string) *OptionsBuilder {
	b.page = v
	return b
}

func (b *OptionsBuilder) WithWidth(v string) *OptionsBuilder {
	b.width = v
	return b
}

func (b *OptionsBuilder) WithHeight(v string) *OptionsBuilder {
	b.height = v
	return b
}

func (b *OptionsBuilder) WithAllowPdfEnlargement(v string) *OptionsBuilder {
	b.allowEnlargement = v
	return b
}

func (b *OptionsBuilder) WithMaintainPdfAspectRatio(v string) *OptionsBuilder {
	b.maintainAspectRatio = v
	return b
}

// Build returns the flag list. Absent options are omitted, and so are values
// that do not parse or are out of range. --maintain-aspect-ratio is dropped
// unless a width or height is also given.
func (b *OptionsBuilder) Build() []string {
	args := make([]string, 0, 5)

	page, hasPage := optionalInt(transform.OptPage, b.page, 0)
	width, hasWidth := optionalInt(transform.OptWidth, b.width, 1)
	height, hasHeight := optionalInt(transform.OptHeight, b.height, 1)

	if hasPage {
		args = append(args, "--page="+strconv.Itoa(page))
	}
	if hasWidth {
		args = append(args, "--width="+strconv.Itoa(width))
	}
	if hasHeight {
		args = append(args, "--height="+strconv.Itoa(height))
	}
	if transform.ParseBool(b.allowEnlargement) {
		args = append(args, "--allow-enlargement")
	}
	if transform.ParseBool(b.maintainAspectRatio) && (hasWidth || hasHeight) {
		args = append(args, "--maintain-aspect-ratio")
	}
	return args
}

// optionalInt parses an integer option no smaller than min. Anything else is
// treated as absent.
func optionalInt(key, v string, min int) (int, bool) {
	n, ok, err := transform.ParseOptionalInt(opBuild, key, v)
	if err != nil {
		logging.Named(ID).Debug("ignoring option", "option", key, "error", err)
		return 0, false
	}
	if ok && n < min {
		logging.Named(ID).Debug("ignoring option", "option", key, "value", n, "min", min)
		return 0, false
	}
	return n, ok
}
