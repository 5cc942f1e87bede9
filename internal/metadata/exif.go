package metadata

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

var exifFields = map[exif.FieldName]string{
	exif.Make:             "make",
	exif.Model:            "model",
	exif.Software:         "software",
	exif.Artist:           "artist",
	exif.Copyright:        "copyright",
	exif.ImageDescription: "description",
	exif.PixelXDimension:  "pixelXDimension",
	exif.PixelYDimension:  "pixelYDimension",
	exif.Orientation:      "orientation",
	exif.ExposureTime:     "exposureTime",
	exif.FNumber:          "fNumber",
	exif.FocalLength:      "focalLength",
	exif.ISOSpeedRatings:  "isoSpeedRatings",
	exif.Flash:            "flash",
}

// exifExtractor reads EXIF tags from JPEG and TIFF images.
type exifExtractor struct{}

func (exifExtractor) Extract(ctx context.Context, sourceMimetype, source string) (Fields, error) {
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode exif: %w", err)
	}

	fields := Fields{}
	for name, key := range exifFields {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		if v, ok := tagValue(tag); ok {
			fields[key] = v
		}
	}
	if dt, err := x.DateTime(); err == nil {
		fields["dateTimeOriginal"] = dt.Format("2006-01-02T15:04:05")
	}
	if lat, long, err := x.LatLong(); err == nil {
		fields["latitude"] = lat
		fields["longitude"] = long
	}
	return fields, nil
}

func tagValue(tag *tiff.Tag) (any, bool) {
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return nil, false
		}
		s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
		return s, s != ""
	case tiff.IntVal:
		n, err := tag.Int(0)
		return n, err == nil
	case tiff.RatVal:
		r, err := tag.Rat(0)
		if err != nil {
			return nil, false
		}
		f, _ := r.Float64()
		return f, true
	case tiff.FloatVal:
		f, err := tag.Float(0)
		return f, err == nil
	}
	return nil, false
}

func (exifExtractor) Mapping() map[string][]string {
	return map[string][]string{
		"make":             {"exif:manufacturer"},
		"model":            {"exif:model"},
		"software":         {"exif:software"},
		"artist":           {"cm:author"},
		"copyright":        {"cm:rights"},
		"description":      {"cm:description"},
		"pixelXDimension":  {"exif:pixelXDimension"},
		"pixelYDimension":  {"exif:pixelYDimension"},
		"orientation":      {"exif:orientation"},
		"exposureTime":     {"exif:exposureTime"},
		"fNumber":          {"exif:fNumber"},
		"focalLength":      {"exif:focalLength"},
		"isoSpeedRatings":  {"exif:isoSpeedRatings"},
		"flash":            {"exif:flash"},
		"dateTimeOriginal": {"exif:dateTimeOriginal"},
		"latitude":         {"cm:latitude"},
		"longitude":        {"cm:longitude"},
	}
}
