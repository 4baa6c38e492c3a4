// Package crop extracts rectangular text-line rasters from annotated images.
//
// Axis-aligned regions become plain sub-image copies. Rotated or otherwise
// non-rectangular quads are rectified: the crop is rendered by warping the
// quad onto a straight horizontal strip through a perspective transform,
// which keeps skewed text lines usable as OCR training samples where a
// naive bounding-box crop would bake the skew (and neighboring content)
// into the sample.
//
// The package performs no file I/O; it maps one decoded image plus one
// quad to one in-memory raster.
package crop

import (
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/nghiado905/mineru-vietocr/pkg/annotation"
)

// axisAlignTol is the corner deviation, in pixels, under which a quad is
// treated as an upright rectangle and cropped without rectification.
const axisAlignTol = 1.0

// Config holds the cropping options.
type Config struct {
	Padding      int  // Extra pixels around the crop, clamped to image bounds
	MinWidth     int  // Minimum crop width in pixels before padding
	MinHeight    int  // Minimum crop height in pixels before padding
	TargetHeight int  // Rescale crops to this line height (0 = keep original size)
	NoRectify    bool // Always crop the bounding box, even for rotated quads
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Padding:      0,
		MinWidth:     1,
		MinHeight:    1,
		TargetHeight: 0,
		NoRectify:    false,
	}
}

// Region crops one text region out of src. The quad must be in absolute
// pixel coordinates. Returns ErrDegenerateRegion for quads whose area is
// non-positive or whose extent is below the configured minimums; callers
// skip those and continue.
func Region(src image.Image, quad annotation.Quad, cfg Config) (*image.RGBA, error) {
	if quad.Area() <= 0 {
		return nil, fmt.Errorf("polygon area is zero: %w", annotation.ErrDegenerateRegion)
	}

	bounds := quad.Bounds()
	if bounds.Width() < float64(max(cfg.MinWidth, 1)) || bounds.Height() < float64(max(cfg.MinHeight, 1)) {
		return nil, fmt.Errorf("region %.0fx%.0f below minimum size %dx%d: %w",
			bounds.Width(), bounds.Height(), cfg.MinWidth, cfg.MinHeight,
			annotation.ErrDegenerateRegion)
	}

	var out *image.RGBA
	if cfg.NoRectify || quad.IsAxisAligned(axisAlignTol) {
		out = cropBounds(src, bounds, cfg.Padding)
	} else {
		out = rectify(src, quad, cfg.Padding)
	}
	if out == nil || out.Bounds().Dx() < 1 || out.Bounds().Dy() < 1 {
		return nil, fmt.Errorf("crop collapsed after clamping to image bounds: %w",
			annotation.ErrDegenerateRegion)
	}

	if cfg.TargetHeight > 0 && out.Bounds().Dy() != cfg.TargetHeight {
		out = resizeToHeight(out, cfg.TargetHeight)
	}
	return out, nil
}

// cropBounds copies the padded, bounds-clamped axis-aligned rectangle.
func cropBounds(src image.Image, b annotation.BoundingBox, padding int) *image.RGBA {
	rect := image.Rect(
		int(math.Round(b.X1))-padding,
		int(math.Round(b.Y1))-padding,
		int(math.Round(b.X2))+padding,
		int(math.Round(b.Y2))+padding,
	).Intersect(src.Bounds())
	if rect.Empty() {
		return nil
	}

	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	xdraw.Draw(out, out.Bounds(), src, rect.Min, xdraw.Src)
	return out
}

// resizeToHeight rescales a crop to a fixed line height, preserving aspect
// ratio. OCR training loaders normalize line height anyway; doing it here
// with a proper resampling kernel beats nearest-neighbor at load time.
func resizeToHeight(src *image.RGBA, height int) *image.RGBA {
	width := int(math.Round(float64(src.Bounds().Dx()) * float64(height) / float64(src.Bounds().Dy())))
	if width < 1 {
		width = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(out, out.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return out
}
