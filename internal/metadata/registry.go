package metadata

import (
	"context"
	"os"
	"sort"

	"github.com/ah-its-andy/tengine/internal/command"
	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/ah-its-andy/tengine/internal/transform"
	jsoniter "github.com/json-iterator/go"
)

// Fields holds raw metadata read from a file, keyed by extractor-specific names.
type Fields map[string]any

// Extractor reads a bounded set of metadata fields from a source file.
type Extractor interface {
	Extract(ctx context.Context, sourceMimetype, source string) (Fields, error)
	// Mapping maps raw field names to the content model properties they populate.
	Mapping() map[string][]string
}

// propertyExtractor is implemented by extractors that pick the mapping per file.
type propertyExtractor interface {
	extractProperties(ctx context.Context, sourceMimetype, source string) (map[string]any, error)
}

// Embedder writes metadata into a file. None are registered; embedding is a
// legacy, best-effort operation.
type Embedder interface {
	Embed(ctx context.Context, sourceMimetype, source string, properties map[string]any, target string) error
}

// Registry resolves handlers by Kind. It is built once and never modified, so
// it is safe for concurrent use.
type Registry struct {
	extractors map[Kind]Extractor
	embedders  map[Kind]Embedder
}

// NewRegistry builds the registry with every built-in extractor.
func NewRegistry() *Registry {
	pdf := pdfExtractor{}
	office := officeExtractor{}
	exif := exifExtractor{}
	mail := mailExtractor{}
	return &Registry{
		extractors: map[Kind]Extractor{
			KindPDF:    pdf,
			KindOffice: office,
			KindExif:   exif,
			KindMail:   mail,
			KindAuto:   newAutoExtractor(pdf, office, exif, mail),
		},
		embedders: map[Kind]Embedder{},
	}
}

// Extractors lists the kinds with a registered extractor.
func (r *Registry) Extractors() []Kind {
	kinds := make([]Kind, 0, len(r.extractors))
	for k := range r.extractors {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Extract reads source with the extractor for kind and returns the mapped properties.
func (r *Registry) Extract(ctx context.Context, kind Kind, sourceMimetype, source string) (map[string]any, error) {
	ex, ok := r.extractors[kind]
	if !ok {
		return nil, transform.Lookupf("metadata extract", "no metadata extractor for %s", kind)
	}
	var props map[string]any
	var err error
	if pe, ok := ex.(propertyExtractor); ok {
		props, err = pe.extractProperties(ctx, sourceMimetype, source)
	} else {
		var fields Fields
		fields, err = ex.Extract(ctx, sourceMimetype, source)
		props = MapFields(fields, ex.Mapping())
	}
	if err != nil {
		if transform.KindOf(err) != transform.KindUnknown {
			return nil, err
		}
		return nil, transform.ToolFailure("metadata extract", "", err)
	}
	logging.Named("metadata").Debug("extracted", "kind", kind.String(), "properties", len(props))
	return props, nil
}

// ExtractTo runs Extract for req and writes the properties to req.TargetFile as JSON.
func (r *Registry) ExtractTo(ctx context.Context, kind Kind, req transform.Request) error {
	props, err := r.Extract(ctx, kind, req.SourceMimetype, req.SourceFile)
	if err != nil {
		return err
	}
	return WriteProperties(req.TargetFile, props)
}

// Embed writes properties into a copy of the source. No embedders are
// registered, so every call fails with a lookup error.
func (r *Registry) Embed(ctx context.Context, kind Kind, req transform.Request, properties map[string]any) error {
	em, ok := r.embedders[kind]
	if !ok {
		return transform.Lookupf("metadata embed", "no metadata embedder for %s", kind)
	}
	return command.WriteTarget(req.TargetFile, func(tmp string) error {
		return em.Embed(ctx, req.SourceMimetype, req.SourceFile, properties, tmp)
	})
}

// MapFields applies mapping to fields. Fields without a mapping and empty
// values are dropped.
func MapFields(fields Fields, mapping map[string][]string) map[string]any {
	out := make(map[string]any)
	for name, value := range fields {
		if isEmpty(value) {
			continue
		}
		for _, prop := range mapping[name] {
			out[prop] = value
		}
	}
	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	}
	return false
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteProperties writes props to target as a JSON object with sorted keys.
func WriteProperties(target string, props map[string]any) error {
	data, err := json.MarshalIndent(props, "", "  ")
	if err != nil {
		return err
	}
	return command.WriteTarget(target, func(tmp string) error {
		return os.WriteFile(tmp, data, 0o644)
	})
}
