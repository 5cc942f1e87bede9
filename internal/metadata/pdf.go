package metadata

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// pdfExtractor reads the document information dictionary.
type pdfExtractor struct{}

func (pdfExtractor) Extract(ctx context.Context, sourceMimetype, source string) (Fields, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pctx, err := api.ReadAndValidate(f, nil)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	fields := Fields{
		"title":     pctx.Title,
		"author":    pctx.Author,
		"subject":   pctx.Subject,
		"creator":   pctx.Creator,
		"producer":  pctx.Producer,
		"created":   pctx.XRefTable.CreationDate,
		"modified":  pctx.XRefTable.ModDate,
		"pageCount": pctx.PageCount,
	}
	if kw := splitKeywords(pctx.Keywords); len(kw) > 0 {
		fields["keywords"] = kw
	}
	return fields, nil
}

func (pdfExtractor) Mapping() map[string][]string {
	return map[string][]string{
		"title":     {"cm:title"},
		"author":    {"cm:author"},
		"subject":   {"cm:description"},
		"created":   {"cm:created"},
		"modified":  {"cm:modified"},
		"keywords":  {"cm:taggable"},
		"producer":  {"cm:generator"},
		"pageCount": {"cm:pageCount"},
	}
}

func splitKeywords(s string) []string {
	var out []string
	for _, k := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
