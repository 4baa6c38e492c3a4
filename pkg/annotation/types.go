package annotation

import "fmt"

// Unit identifies the coordinate convention a region's points use.
type Unit int

const (
	// UnitPixel means coordinates are absolute pixels in the source image.
	UnitPixel Unit = iota
	// UnitPercent means coordinates are percentages (0-100) of the image size.
	UnitPercent
)

// Bundle is a parsed annotation export: an ordered sequence of annotated images.
type Bundle struct {
	Images []ImageAnnotation // Annotated images in input record order
}

// ImageAnnotation is one source image and the text regions drawn on it.
type ImageAnnotation struct {
	ImageRef string   // Image reference as exported (local path, http(s) or s3 URL)
	Width    int      // Metadata-reported width in pixels (may be 0 or stale)
	Height   int      // Metadata-reported height in pixels (may be 0 or stale)
	Regions  []Region // Text regions in original annotation order
}

// Region is one labeled text region on an image.
type Region struct {
	ID     string  // Optional identifier from the annotation tool
	Label  string  // Transcribed text for the region
	Points []Point // Polygon vertices, at least 3 for a valid region
	Unit   Unit    // Coordinate convention of Points
}

// Point is a single polygon vertex.
type Point struct {
	X float64
	Y float64
}

// Validate checks the structural requirements for a region: a non-empty
// label and a polygon with at least 3 points. Geometric degeneracy (zero
// area, sub-minimum size) is only detectable after pixel normalization and
// is checked by the cropper instead.
func (r Region) Validate() error {
	if r.Label == "" {
		return fmt.Errorf("region %q has no label: %w", r.ID, ErrInvalidAnnotation)
	}
	if len(r.Points) < 3 {
		return fmt.Errorf("region %q has %d polygon points, need at least 3: %w",
			r.ID, len(r.Points), ErrInvalidAnnotation)
	}
	return nil
}

// PixelPolygon returns the region's polygon in absolute pixel coordinates
// for an image of the given decoded dimensions. Percent coordinates are
// scaled; pixel coordinates are returned as-is. The decoded dimensions must
// be used here, not the metadata-reported ones, since exports routinely
// carry stale or absent size metadata.
func (r Region) PixelPolygon(width, height int) []Point {
	pts := make([]Point, len(r.Points))
	if r.Unit == UnitPercent {
		for i, p := range r.Points {
			pts[i] = Point{
				X: p.X * float64(width) / 100,
				Y: p.Y * float64(height) / 100,
			}
		}
		return pts
	}
	copy(pts, r.Points)
	return pts
}

// RectRegion builds a 4-point pixel-or-percent rectangle region from the
// x/y/width/height form used by rectangle annotations.
func RectRegion(id, label string, x, y, w, h float64, unit Unit) Region {
	return Region{
		ID:    id,
		Label: label,
		Unit:  unit,
		Points: []Point{
			{X: x, Y: y},
			{X: x + w, Y: y},
			{X: x + w, Y: y + h},
			{X: x, Y: y + h},
		},
	}
}
