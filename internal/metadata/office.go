package metadata

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
)

// coreProperties is docProps/core.xml of an OOXML package.
type coreProperties struct {
	XMLName        xml.Name `xml:"coreProperties"`
	Title          string   `xml:"title"`
	Subject        string   `xml:"subject"`
	Creator        string   `xml:"creator"`
	Keywords       string   `xml:"keywords"`
	Description    string   `xml:"description"`
	LastModifiedBy string   `xml:"lastModifiedBy"`
	Created        string   `xml:"created"`
	Modified       string   `xml:"modified"`
}

// appProperties is docProps/app.xml of an OOXML package.
type appProperties struct {
	XMLName     xml.Name `xml:"Properties"`
	Application string   `xml:"Application"`
	Pages       int      `xml:"Pages"`
	Words       int      `xml:"Words"`
	Slides      int      `xml:"Slides"`
}

// officeExtractor reads the core and extended properties of docx, xlsx and pptx files.
type officeExtractor struct{}

func (officeExtractor) Extract(ctx context.Context, sourceMimetype, source string) (Fields, error) {
	zr, err := zip.OpenReader(source)
	if err != nil {
		return nil, fmt.Errorf("open office package: %w", err)
	}
	defer zr.Close()

	fields := Fields{}
	var core coreProperties
	found, err := readXMLPart(&zr.Reader, "docProps/core.xml", &core)
	if err != nil {
		return nil, err
	}
	if found {
		fields["title"] = core.Title
		fields["subject"] = core.Subject
		fields["author"] = core.Creator
		fields["keywords"] = splitKeywords(core.Keywords)
		fields["description"] = core.Description
		fields["lastAuthor"] = core.LastModifiedBy
		fields["created"] = core.Created
		fields["modified"] = core.Modified
	}

	var app appProperties
	found, err = readXMLPart(&zr.Reader, "docProps/app.xml", &app)
	if err != nil {
		return nil, err
	}
	if found {
		fields["application"] = app.Application
		if app.Pages > 0 {
			fields["pageCount"] = app.Pages
		}
		if app.Slides > 0 {
			fields["pageCount"] = app.Slides
		}
		if app.Words > 0 {
			fields["wordCount"] = app.Words
		}
	}
	return fields, nil
}

func (officeExtractor) Mapping() map[string][]string {
	return map[string][]string{
		"title":       {"cm:title"},
		"author":      {"cm:author"},
		"subject":     {"cm:subject"},
		"description": {"cm:description"},
		"keywords":    {"cm:taggable"},
		"lastAuthor":  {"cm:lastAuthor"},
		"created":     {"cm:created"},
		"modified":    {"cm:modified"},
		"application": {"cm:generator"},
		"pageCount":   {"cm:pageCount"},
		"wordCount":   {"cm:wordCount"},
	}
}

func readXMLPart(zr *zip.Reader, name string, v any) (bool, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return false, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return false, fmt.Errorf("read %s: %w", name, err)
		}
		if err := xml.Unmarshal(data, v); err != nil {
			return false, fmt.Errorf("parse %s: %w", name, err)
		}
		return true, nil
	}
	return false, nil
}
