package convert

import (
	"fmt"

	"github.com/nghiado905/mineru-vietocr/pkg/annotation"
	"github.com/nghiado905/mineru-vietocr/pkg/gdocai"
	"github.com/nghiado905/mineru-vietocr/pkg/hocr"
	"github.com/nghiado905/mineru-vietocr/pkg/labelstudio"
)

// Format identifies a supported annotation bundle format.
type Format string

const (
	FormatLabelStudio Format = "labelstudio" // Label Studio JSON export
	FormatHOCR        Format = "hocr"        // hOCR HTML document
	FormatGDocAI      Format = "gdocai"      // Saved Google Document AI response
)

// Formats lists the supported format names for CLI help text.
func Formats() []Format {
	return []Format{FormatLabelStudio, FormatHOCR, FormatGDocAI}
}

// ParseBundle parses raw annotation data in the given format.
func ParseBundle(data []byte, format Format) (*annotation.Bundle, error) {
	switch format {
	case FormatLabelStudio:
		return labelstudio.ParseExport(data)
	case FormatHOCR:
		return hocr.ParseLines(data)
	case FormatGDocAI:
		doc, err := gdocai.ParseDocumentJSON(data)
		if err != nil {
			return nil, err
		}
		return gdocai.BundleFromDocument(doc)
	default:
		return nil, fmt.Errorf("unsupported annotation format %q (want one of %v)", format, Formats())
	}
}
