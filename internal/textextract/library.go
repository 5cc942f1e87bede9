package textextract

import (
	"archive/zip"
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ah-its-andy/tengine/internal/transform"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// Library performs an extraction described by an argument list of the form
// [--contents] [--notExtractBookmarksText] --targetMimetype=M --targetEncoding=E source target.
type Library interface {
	Transform(ctx context.Context, args []string) error
}

// maxEntrySize caps how much of a single archive entry is read for --contents.
const maxEntrySize = 8 << 20

// GoLibrary extracts text from PDF, plain text, Markdown and zip sources and
// writes text/plain or text/html in the requested encoding.
type GoLibrary struct{}

type document struct {
	blocks []string
	// body replaces blocks in HTML output when the source is already HTML-renderable.
	body string
}

func (GoLibrary) Transform(ctx context.Context, args []string) error {
	const op = "textextract"
	la, err := parseArgs(args)
	if err != nil {
		return err
	}
	if la.targetMimetype != "text/plain" && la.targetMimetype != "text/html" {
		return transform.Validationf(op, "unsupported target mimetype %q", la.targetMimetype)
	}
	enc, err := htmlindex.Get(la.targetEncoding)
	if err != nil {
		return transform.Validationf(op, "unsupported target encoding %q", la.targetEncoding)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	doc, err := readDocument(la)
	if err != nil {
		return err
	}

	var out string
	if la.targetMimetype == "text/html" {
		out = renderHTML(doc, la.targetEncoding)
	} else {
		out = strings.Join(doc.blocks, "\n\n")
	}
	encoded, err := encoding.ReplaceUnsupported(enc.NewEncoder()).String(out)
	if err != nil {
		return fmt.Errorf("encode target: %w", err)
	}
	if err := os.WriteFile(la.target, []byte(encoded), 0o644); err != nil {
		return fmt.Errorf("write target: %w", err)
	}
	return nil
}

func readDocument(la libraryArgs) (document, error) {
	m, err := mimetype.DetectFile(la.source)
	if err != nil {
		return document{}, fmt.Errorf("detect source type: %w", err)
	}
	switch {
	case m.Is("application/pdf"):
		return readPDF(la.source, !la.notBookmarksText)
	case m.Is("application/zip"):
		return readZip(la.source, la.contents)
	case isText(m):
		data, err := os.ReadFile(la.source)
		if err != nil {
			return document{}, err
		}
		if isMarkdown(la.source) && la.targetMimetype == "text/html" {
			var b strings.Builder
			if err := goldmark.Convert(data, &b); err != nil {
				return document{}, fmt.Errorf("render markdown: %w", err)
			}
			return document{blocks: []string{string(data)}, body: b.String()}, nil
		}
		return document{blocks: []string{string(data)}}, nil
	}
	return document{}, fmt.Errorf("unsupported source type %s", m.String())
}

func isText(m *mimetype.MIME) bool {
	for p := m; p != nil; p = p.Parent() {
		if p.Is("text/plain") {
			return true
		}
	}
	return false
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func readPDF(path string, bookmarks bool) (document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return document{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var doc document
	if bookmarks {
		doc.blocks = appendOutline(doc.blocks, r.Outline())
	}

	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := p.Font(name)
				fonts[name] = &font
			}
		}
		text, err := p.GetPlainText(fonts)
		if err != nil {
			return document{}, fmt.Errorf("read pdf page %d: %w", i, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			doc.blocks = append(doc.blocks, text)
		}
	}
	return doc, nil
}

func appendOutline(blocks []string, o pdf.Outline) []string {
	if t := strings.TrimSpace(o.Title); t != "" {
		blocks = append(blocks, t)
	}
	for _, c := range o.Child {
		blocks = appendOutline(blocks, c)
	}
	return blocks
}

func readZip(path string, contents bool) (document, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return document{}, fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	var doc document
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		block := zf.Name
		if contents {
			text, ok, err := zipEntryText(zf)
			if err != nil {
				return document{}, err
			}
			if ok {
				block += "\n" + text
			}
		}
		doc.blocks = append(doc.blocks, block)
	}
	return doc, nil
}

func zipEntryText(zf *zip.File) (string, bool, error) {
	rc, err := zf.Open()
	if err != nil {
		return "", false, fmt.Errorf("open %s: %w", zf.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize))
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", zf.Name, err)
	}
	if !isText(mimetype.Detect(data)) {
		return "", false, nil
	}
	return strings.TrimRight(string(data), "\r\n"), true, nil
}

func renderHTML(doc document, charset string) string {
	var b strings.Builder
	b.WriteString("<html><head>")
	fmt.Fprintf(&b, `<meta http-equiv="Content-Type" content="text/html; charset=%s">`, html.EscapeString(charset))
	b.WriteString("<title></title></head><body>\n")
	if doc.body != "" {
		b.WriteString(doc.body)
	} else {
		for _, block := range doc.blocks {
			b.WriteString("<p>")
			b.WriteString(strings.ReplaceAll(html.EscapeString(block), "\n", "<br/>\n"))
			b.WriteString("</p>\n")
		}
	}
	b.WriteString("</body></html>\n")
	return b.String()
}
