// Package fixture builds small documents for tests.
package fixture

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// PDF returns a single-page PDF showing text in Helvetica, with title and
// author in the information dictionary and one outline entry per bookmark.
func PDF(title, author, text string, bookmarks ...string) []byte {
	escape := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`).Replace
	content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", escape(text))

	objs := []string{
		"", // 1: catalog, filled below
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Title (%s) /Author (%s) /Producer (tengine fixture) >>", escape(title), escape(author)),
	}
	catalog := "<< /Type /Catalog /Pages 2 0 R >>"
	if len(bookmarks) > 0 {
		outlineID := len(objs) + 1
		first := outlineID + 1
		last := outlineID + len(bookmarks)
		catalog = fmt.Sprintf("<< /Type /Catalog /Pages 2 0 R /Outlines %d 0 R >>", outlineID)
		objs = append(objs, fmt.Sprintf("<< /Type /Outlines /First %d 0 R /Last %d 0 R /Count %d >>", first, last, len(bookmarks)))
		for i, b := range bookmarks {
			id := first + i
			entry := fmt.Sprintf("<< /Title (%s) /Parent %d 0 R /Dest [3 0 R /Fit]", escape(b), outlineID)
			if id > first {
				entry += fmt.Sprintf(" /Prev %d 0 R", id-1)
			}
			if id < last {
				entry += fmt.Sprintf(" /Next %d 0 R", id+1)
			}
			objs = append(objs, entry+" >>")
		}
	}
	objs[0] = catalog

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 6 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// Zip returns a zip archive holding files in the given order.
func Zip(files ...[2]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f[0])
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(f[1])); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Docx returns a minimal OOXML word package with core and app properties.
func Docx(title, creator, keywords string, pages int) []byte {
	core := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<dc:title>%s</dc:title><dc:creator>%s</dc:creator><cp:keywords>%s</cp:keywords>
<dcterms:created xsi:type="dcterms:W3CDTF">2024-03-01T10:00:00Z</dcterms:created>
</cp:coreProperties>`, title, creator, keywords)
	app := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties"><Application>Microsoft Office Word</Application><Pages>%d</Pages><Words>42</Words></Properties>`, pages)
	return Zip(
		[2]string{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`},
		[2]string{"docProps/core.xml", core},
		[2]string{"docProps/app.xml", app},
		[2]string{"word/document.xml", `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body/></w:document>`},
	)
}

// Photo describes the EXIF tags written by JPEG.
type Photo struct {
	Make        string
	Model       string
	Artist      string
	Orientation uint16
	// Taken uses the EXIF layout "2006:01:02 15:04:05".
	Taken string
}

type ifdEntry struct {
	tag  uint16
	typ  uint16
	data []byte
}

const (
	tiffASCII = 2
	tiffShort = 3
	tiffLong  = 4
)

// JPEG returns a JPEG stream holding only an APP1 EXIF segment for p. It has
// no image data, which is enough for EXIF readers.
func JPEG(p Photo) []byte {
	be := binary.BigEndian
	ascii := func(s string) []byte { return append([]byte(s), 0) }
	short := be.AppendUint16(nil, p.Orientation)

	ifd0 := []ifdEntry{
		{0x010F, tiffASCII, ascii(p.Make)},
		{0x0110, tiffASCII, ascii(p.Model)},
		{0x0112, tiffShort, short},
		{0x013B, tiffASCII, ascii(p.Artist)},
		{0x8769, tiffLong, nil}, // Exif IFD pointer, set below
	}
	exifIFD := []ifdEntry{{0x9003, tiffASCII, ascii(p.Taken)}}

	ifdSize := func(n int) int { return 2 + 12*n + 4 }
	exifOffset := 8 + ifdSize(len(ifd0))
	dataOffset := exifOffset + ifdSize(len(exifIFD))
	ifd0[4].data = be.AppendUint32(nil, uint32(exifOffset))

	var tiff, data bytes.Buffer
	tiff.WriteString("MM\x00*")
	tiff.Write(be.AppendUint32(nil, 8))
	writeIFD := func(entries []ifdEntry) {
		tiff.Write(be.AppendUint16(nil, uint16(len(entries))))
		for _, e := range entries {
			count := len(e.data)
			switch e.typ {
			case tiffShort:
				count /= 2
			case tiffLong:
				count /= 4
			}
			tiff.Write(be.AppendUint16(nil, e.tag))
			tiff.Write(be.AppendUint16(nil, e.typ))
			tiff.Write(be.AppendUint32(nil, uint32(count)))
			if len(e.data) <= 4 {
				v := make([]byte, 4)
				copy(v, e.data)
				tiff.Write(v)
				continue
			}
			tiff.Write(be.AppendUint32(nil, uint32(dataOffset+data.Len())))
			data.Write(e.data)
			if data.Len()%2 == 1 {
				data.WriteByte(0)
			}
		}
		tiff.Write(be.AppendUint32(nil, 0))
	}
	writeIFD(ifd0)
	writeIFD(exifIFD)
	tiff.Write(data.Bytes())

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	buf.Write(be.AppendUint16(nil, uint16(len(payload)+2)))
	buf.Write(payload)
	buf.Write([]byte{0xFF, 0xD9})
	return buf.Bytes()
}
