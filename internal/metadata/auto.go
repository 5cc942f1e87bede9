package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// autoExtractor detects the source type and hands off to the matching extractor.
type autoExtractor struct {
	pdf, office, exif, mail Extractor
}

func newAutoExtractor(pdf, office, exif, mail Extractor) autoExtractor {
	return autoExtractor{pdf: pdf, office: office, exif: exif, mail: mail}
}

// delegate picks an extractor for mt, or nil when none applies.
func (a autoExtractor) delegate(mt string) Extractor {
	switch {
	case mt == "application/pdf" || mt == "application/illustrator":
		return a.pdf
	case strings.HasPrefix(mt, "application/vnd.openxmlformats-officedocument."):
		return a.office
	case mt == "image/jpeg" || mt == "image/tiff":
		return a.exif
	case mt == "message/rfc822":
		return a.mail
	}
	return nil
}

func (a autoExtractor) detect(sourceMimetype, source string) (string, error) {
	if sourceMimetype != "" && a.delegate(sourceMimetype) != nil {
		return sourceMimetype, nil
	}
	m, err := mimetype.DetectFile(source)
	if err != nil {
		return "", fmt.Errorf("detect mimetype: %w", err)
	}
	for p := m; p != nil; p = p.Parent() {
		if a.delegate(p.String()) != nil {
			return p.String(), nil
		}
	}
	return strings.SplitN(m.String(), ";", 2)[0], nil
}

func (a autoExtractor) Extract(ctx context.Context, sourceMimetype, source string) (Fields, error) {
	mt, err := a.detect(sourceMimetype, source)
	if err != nil {
		return nil, err
	}
	fields := Fields{}
	if ex := a.delegate(mt); ex != nil {
		if fields, err = ex.Extract(ctx, mt, source); err != nil {
			return nil, err
		}
	}
	fields["mimetype"] = mt
	return fields, nil
}

// Mapping covers only the detected type. Registry.Extract uses
// extractProperties so each delegate applies its own mapping.
func (a autoExtractor) Mapping() map[string][]string {
	return map[string][]string{"mimetype": {"cm:mimetype"}}
}

func (a autoExtractor) extractProperties(ctx context.Context, sourceMimetype, source string) (map[string]any, error) {
	mt, err := a.detect(sourceMimetype, source)
	if err != nil {
		return nil, err
	}
	props := map[string]any{"cm:mimetype": mt}
	ex := a.delegate(mt)
	if ex == nil {
		return props, nil
	}
	fields, err := ex.Extract(ctx, mt, source)
	if err != nil {
		return nil, err
	}
	for k, v := range MapFields(fields, ex.Mapping()) {
		props[k] = v
	}
	return props, nil
}
