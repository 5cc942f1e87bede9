package metadata

import (
	"github.com/ah-its-andy/tengine/internal/transform"
)

// Kind enumerates the metadata handlers known to the engine.
type Kind int

const (
	KindPDF Kind = iota + 1
	KindOffice
	KindExif
	KindMail
	KindAuto
)

var kindNames = map[Kind]string{
	KindPDF:    "PdfBoxMetadataExtractor",
	KindOffice: "OfficeMetadataExtractor",
	KindExif:   "ExifMetadataExtractor",
	KindMail:   "MailMetadataExtractor",
	KindAuto:   "AutoMetadataExtractor",
}

// String returns the transform name that selects this kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UnknownMetadataExtractor"
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindPDF, KindOffice, KindExif, KindMail, KindAuto}
}

// ParseKind maps a transform name to its Kind.
func ParseKind(transformName string) (Kind, error) {
	for k, name := range kindNames {
		if name == transformName {
			return k, nil
		}
	}
	return 0, transform.Lookupf("metadata", "no metadata handler for transform %q", transformName)
}
