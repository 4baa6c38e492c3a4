// Package gdocai turns Google Document AI OCR output into text-region
// annotation bundles.
//
// Document AI's OCR processor segments pages into lines with bounding
// polygons and recognized text, which makes its output a ready source of
// pre-labeled regions: run the processor once over scanned pages, convert
// the response, and the resulting crops seed a training set that can then
// be corrected in an annotation tool.
//
// The package works from either a saved processor response (the JSON dump
// of a Document proto) or directly against the API:
//
// - ParseDocumentJSON: decodes a saved Document AI response
// - MarshalDocumentJSON: saves a response for later conversion
// - ProcessImage: sends image bytes to a configured processor
// - BundleFromDocument: converts a Document proto into a Bundle
//
// Usage Requirements (API path only):
//
// - Google Cloud project with Document AI API enabled
// - Document AI processor configured for OCR
// - Authentication via GOOGLE_APPLICATION_CREDENTIALS environment variable
package gdocai

import (
	"fmt"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/nghiado905/mineru-vietocr/pkg/annotation"
)

// ParseDocumentJSON decodes a saved Document AI response (as produced by
// protojson or the API's JSON transport) back into a Document proto.
// Unknown fields are discarded so dumps from newer API versions still load.
func ParseDocumentJSON(data []byte) (*documentaipb.Document, error) {
	doc := &documentaipb.Document{}
	opts := protojson.UnmarshalOptions{DiscardUnknown: true}
	if err := opts.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to decode Document AI JSON: %w", err)
	}
	return doc, nil
}

// MarshalDocumentJSON renders a Document proto as JSON in the form
// ParseDocumentJSON accepts, so a processor response can be saved once and
// converted again later without re-running OCR.
func MarshalDocumentJSON(doc *documentaipb.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("no document provided")
	}
	data, err := protojson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode Document AI JSON: %w", err)
	}
	return data, nil
}

// BundleFromDocument converts a Document AI response into an annotation
// bundle: one image per page, one region per detected line. Normalized
// vertices (0-1) become percent coordinates; plain vertices are taken as
// absolute pixels. Page dimensions are carried over as metadata only; the
// pipeline still normalizes against decoded image dimensions.
func BundleFromDocument(doc *documentaipb.Document) (*annotation.Bundle, error) {
	if doc == nil {
		return nil, fmt.Errorf("no document provided")
	}

	bundle := &annotation.Bundle{}
	for i, page := range doc.GetPages() {
		img := annotation.ImageAnnotation{
			ImageRef: pageRef(doc, i),
		}
		if dim := page.GetDimension(); dim != nil {
			img.Width = int(dim.GetWidth())
			img.Height = int(dim.GetHeight())
		}

		for j, line := range page.GetLines() {
			pts, unit, ok := polygonFromLayout(line.GetLayout())
			if !ok {
				continue
			}
			label := lineText(line.GetLayout(), doc.GetText())
			img.Regions = append(img.Regions, annotation.Region{
				ID:     fmt.Sprintf("page%d_line%d", i+1, j+1),
				Label:  label,
				Points: pts,
				Unit:   unit,
			})
		}
		bundle.Images = append(bundle.Images, img)
	}

	if len(bundle.Images) == 0 {
		return nil, fmt.Errorf("document contains no pages")
	}
	return bundle, nil
}

// pageRef derives an image reference for a page. Single-page documents use
// the document URI when present; otherwise pages get positional names that
// the pipeline resolves against the configured image directory.
func pageRef(doc *documentaipb.Document, index int) string {
	if uri := doc.GetUri(); uri != "" && len(doc.GetPages()) == 1 {
		return uri
	}
	return fmt.Sprintf("page_%d.png", index+1)
}

// polygonFromLayout extracts a polygon from a layout's bounding poly.
func polygonFromLayout(layout *documentaipb.Document_Page_Layout) ([]annotation.Point, annotation.Unit, bool) {
	poly := layout.GetBoundingPoly()
	if poly == nil {
		return nil, annotation.UnitPixel, false
	}
	if verts := poly.GetNormalizedVertices(); len(verts) >= 3 {
		pts := make([]annotation.Point, 0, len(verts))
		for _, v := range verts {
			pts = append(pts, annotation.Point{
				X: float64(v.GetX()) * 100,
				Y: float64(v.GetY()) * 100,
			})
		}
		return pts, annotation.UnitPercent, true
	}
	if verts := poly.GetVertices(); len(verts) >= 3 {
		pts := make([]annotation.Point, 0, len(verts))
		for _, v := range verts {
			pts = append(pts, annotation.Point{X: float64(v.GetX()), Y: float64(v.GetY())})
		}
		return pts, annotation.UnitPixel, true
	}
	return nil, annotation.UnitPixel, false
}
