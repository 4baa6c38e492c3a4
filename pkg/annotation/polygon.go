package annotation

import "math"

// BoundingBox is an axis-aligned rectangle in pixel coordinates.
type BoundingBox struct {
	X1 float64 // Left coordinate
	Y1 float64 // Top coordinate
	X2 float64 // Right coordinate
	Y2 float64 // Bottom coordinate
}

// NewBoundingBox creates a bounding box from the top-left (x1, y1) and
// bottom-right (x2, y2) corners.
func NewBoundingBox(x1, y1, x2, y2 float64) BoundingBox {
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns the horizontal extent of the box.
func (b BoundingBox) Width() float64 { return b.X2 - b.X1 }

// Height returns the vertical extent of the box.
func (b BoundingBox) Height() float64 { return b.Y2 - b.Y1 }

// PolygonBounds returns the axis-aligned bounding box of a polygon.
func PolygonBounds(pts []Point) BoundingBox {
	if len(pts) == 0 {
		return BoundingBox{}
	}
	box := NewBoundingBox(pts[0].X, pts[0].Y, pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		box.X1 = math.Min(box.X1, p.X)
		box.Y1 = math.Min(box.Y1, p.Y)
		box.X2 = math.Max(box.X2, p.X)
		box.Y2 = math.Max(box.Y2, p.Y)
	}
	return box
}

// PolygonArea returns the absolute area of a polygon via the shoelace
// formula. Degenerate polygons (collinear points, <3 points) yield 0.
func PolygonArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	sum := 0.0
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(sum) / 2
}

// Quad is a four-corner polygon in a fixed order: top-left, top-right,
// bottom-right, bottom-left.
type Quad [4]Point

// QuadFromPolygon derives an ordered quad for cropping. A 4-point polygon
// is corner-ordered directly; any other polygon collapses to the corners of
// its axis-aligned bounding box.
func QuadFromPolygon(pts []Point) Quad {
	if len(pts) == 4 {
		return orderCorners([4]Point{pts[0], pts[1], pts[2], pts[3]})
	}
	b := PolygonBounds(pts)
	return Quad{
		{X: b.X1, Y: b.Y1},
		{X: b.X2, Y: b.Y1},
		{X: b.X2, Y: b.Y2},
		{X: b.X1, Y: b.Y2},
	}
}

// orderCorners sorts four points into TL, TR, BR, BL order. The top-left
// corner minimizes x+y and the bottom-right maximizes it; the remaining two
// are told apart by the sign of y-x.
func orderCorners(pts [4]Point) Quad {
	var q Quad
	minSum, maxSum := math.Inf(1), math.Inf(-1)
	minDiff, maxDiff := math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		if s := p.X + p.Y; s < minSum {
			minSum = s
			q[0] = p
		}
		if s := p.X + p.Y; s > maxSum {
			maxSum = s
			q[2] = p
		}
		if d := p.Y - p.X; d < minDiff {
			minDiff = d
			q[1] = p
		}
		if d := p.Y - p.X; d > maxDiff {
			maxDiff = d
			q[3] = p
		}
	}
	return q
}

// Bounds returns the axis-aligned bounding box of the quad.
func (q Quad) Bounds() BoundingBox {
	return PolygonBounds(q[:])
}

// Area returns the quad's area.
func (q Quad) Area() float64 {
	return PolygonArea(q[:])
}

// SideLengths returns the averaged opposite side lengths of the quad:
// width from the top and bottom edges, height from the left and right
// edges. These are the natural dimensions of the rectified crop.
func (q Quad) SideLengths() (width, height float64) {
	top := dist(q[0], q[1])
	bottom := dist(q[3], q[2])
	left := dist(q[0], q[3])
	right := dist(q[1], q[2])
	return (top + bottom) / 2, (left + right) / 2
}

// IsAxisAligned reports whether every corner lies on the quad's bounding
// box within tol pixels, i.e. the quad is an upright rectangle and a plain
// bounding-box crop loses nothing.
func (q Quad) IsAxisAligned(tol float64) bool {
	b := q.Bounds()
	onEdge := func(v, lo, hi float64) bool {
		return math.Abs(v-lo) <= tol || math.Abs(v-hi) <= tol
	}
	for _, p := range q {
		if !onEdge(p.X, b.X1, b.X2) || !onEdge(p.Y, b.Y1, b.Y2) {
			return false
		}
	}
	return true
}

func dist(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
