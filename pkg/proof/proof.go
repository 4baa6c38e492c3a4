// Package proof renders a review PDF of converted training samples.
//
// A proof sheet lays each cropped line image above the label text that was
// written to the manifest, in manifest order. Skimming it is the quickest
// way to catch systematic conversion problems (unit mix-ups, clipped
// ascenders, swapped labels) before a multi-hour training run consumes the
// dataset.
package proof

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"codeberg.org/go-pdf/fpdf"
)

// Sample is one converted sample to render.
type Sample struct {
	Image []byte // Encoded image bytes (PNG/JPEG)
	Label string // Label text as written to the manifest
	Split string // Split name shown next to the sample
}

// Config holds the proof sheet layout options.
type Config struct {
	Title        string  // Heading on the first page
	FontSize     float64 // Label font size in points
	SampleHeight float64 // Display height of each crop in points
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Title:        "Dataset proof sheet",
		FontSize:     10,
		SampleHeight: 28,
	}
}

// Build renders the samples into a PDF document.
func Build(samples []Sample, cfg Config) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to render")
	}
	if cfg.SampleHeight <= 0 {
		cfg.SampleHeight = DefaultConfig().SampleHeight
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = DefaultConfig().FontSize
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()
	const margin = 36.0
	maxW := pageW - 2*margin

	pdf.SetMargins(margin, margin, margin)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", cfg.FontSize+4)
	pdf.CellFormat(maxW, cfg.FontSize+8, tr(cfg.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", cfg.FontSize)

	y := pdf.GetY() + 8
	for i, sample := range samples {
		imgW, imgH, imgType, err := imageGeometry(sample.Image)
		if err != nil {
			return nil, fmt.Errorf("sample %d has invalid image data: %w", i+1, err)
		}

		drawH := cfg.SampleHeight
		drawW := drawH * float64(imgW) / float64(imgH)
		if drawW > maxW {
			drawW = maxW
			drawH = drawW * float64(imgH) / float64(imgW)
		}

		rowH := drawH + cfg.FontSize + 12
		if y+rowH > pageH-margin {
			pdf.AddPage()
			y = margin
		}

		name := fmt.Sprintf("sample%d", i)
		opts := fpdf.ImageOptions{ReadDpi: false, ImageType: imgType}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(sample.Image))
		pdf.ImageOptions(name, margin, y, drawW, drawH, false, opts, 0, "")

		caption := sample.Label
		if sample.Split != "" {
			caption = fmt.Sprintf("[%s] %s", sample.Split, sample.Label)
		}
		pdf.SetXY(margin, y+drawH+2)
		pdf.CellFormat(maxW, cfg.FontSize+2, tr(caption), "", 0, "L", false, 0, "")

		y += rowH
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// imageGeometry decodes the image header for its pixel dimensions and the
// format name fpdf expects.
func imageGeometry(data []byte) (w, h int, imgType string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("failed to decode image config: %w", err)
	}
	if cfg.Width < 1 || cfg.Height < 1 {
		return 0, 0, "", fmt.Errorf("image has no pixels")
	}
	return cfg.Width, cfg.Height, strings.ToUpper(format), nil
}
