package crop

import (
	"image"
	"image/color"
	"math"

	"github.com/nghiado905/mineru-vietocr/pkg/annotation"
)

// rectify renders a rotated or general quad onto a straight horizontal
// strip. The strip dimensions come from the quad's averaged opposite side
// lengths, so the output aspect ratio follows the text line itself rather
// than its axis-aligned bounding box. Padding extends the strip outward in
// quad space; samples falling outside the source image clamp to its edge.
func rectify(src image.Image, quad annotation.Quad, padding int) *image.RGBA {
	wf, hf := quad.SideLengths()
	dstW := int(math.Round(wf))
	dstH := int(math.Round(hf))
	if dstW < 1 || dstH < 1 {
		return nil
	}

	h := homography(quad, float64(dstW), float64(dstH))

	out := image.NewRGBA(image.Rect(0, 0, dstW+2*padding, dstH+2*padding))
	rgba := toRGBA(src)
	for dy := 0; dy < out.Bounds().Dy(); dy++ {
		for dx := 0; dx < out.Bounds().Dx(); dx++ {
			// Destination coordinates relative to the unpadded strip;
			// pixel centers sampled at +0.5.
			u := float64(dx-padding) + 0.5
			v := float64(dy-padding) + 0.5
			sx, sy := h.apply(u, v)
			out.SetRGBA(dx, dy, bilinear(rgba, sx, sy))
		}
	}
	return out
}

// matrix3 is a 3x3 perspective transform in row-major order with the
// bottom-right element fixed at 1.
type matrix3 [8]float64

// apply maps destination coordinates through the homography.
func (m matrix3) apply(u, v float64) (float64, float64) {
	w := m[6]*u + m[7]*v + 1
	if w == 0 {
		return 0, 0
	}
	x := (m[0]*u + m[1]*v + m[2]) / w
	y := (m[3]*u + m[4]*v + m[5]) / w
	return x, y
}

// homography solves for the transform mapping the corners of a dstW x dstH
// rectangle onto the quad (TL, TR, BR, BL order) via the standard
// direct-linear-transform system of 8 equations in 8 unknowns.
func homography(quad annotation.Quad, dstW, dstH float64) matrix3 {
	dst := [4]annotation.Point{
		{X: 0, Y: 0},
		{X: dstW, Y: 0},
		{X: dstW, Y: dstH},
		{X: 0, Y: dstH},
	}

	var a [8][9]float64
	for i := 0; i < 4; i++ {
		u, v := dst[i].X, dst[i].Y
		x, y := quad[i].X, quad[i].Y
		a[2*i] = [9]float64{u, v, 1, 0, 0, 0, -x * u, -x * v, x}
		a[2*i+1] = [9]float64{0, 0, 0, u, v, 1, -y * u, -y * v, y}
	}
	solveInPlace(&a)

	var m matrix3
	for i := range m {
		m[i] = a[i][8]
	}
	return m
}

// solveInPlace runs Gaussian elimination with partial pivoting on an
// augmented 8x9 system, leaving the solution in column 8.
func solveInPlace(a *[8][9]float64) {
	for col := 0; col < 8; col++ {
		pivot := col
		for row := col + 1; row < 8; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		a[col], a[pivot] = a[pivot], a[col]
		if a[col][col] == 0 {
			continue
		}
		for row := col + 1; row < 8; row++ {
			f := a[row][col] / a[col][col]
			for k := col; k < 9; k++ {
				a[row][k] -= f * a[col][k]
			}
		}
	}
	for col := 7; col >= 0; col-- {
		if a[col][col] == 0 {
			continue
		}
		sum := a[col][8]
		for k := col + 1; k < 8; k++ {
			sum -= a[col][k] * a[k][8]
		}
		a[col][8] = sum / a[col][col]
	}
}

// bilinear samples src at a fractional position with edge clamping.
func bilinear(src *image.RGBA, x, y float64) color.RGBA {
	b := src.Bounds()
	x -= 0.5
	y -= 0.5

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	c00 := src.RGBAAt(clampInt(x0, b.Min.X, b.Max.X-1), clampInt(y0, b.Min.Y, b.Max.Y-1))
	c10 := src.RGBAAt(clampInt(x0+1, b.Min.X, b.Max.X-1), clampInt(y0, b.Min.Y, b.Max.Y-1))
	c01 := src.RGBAAt(clampInt(x0, b.Min.X, b.Max.X-1), clampInt(y0+1, b.Min.Y, b.Max.Y-1))
	c11 := src.RGBAAt(clampInt(x0+1, b.Min.X, b.Max.X-1), clampInt(y0+1, b.Min.Y, b.Max.Y-1))

	lerp2 := func(a, b, c, d uint8) uint8 {
		top := float64(a) + (float64(b)-float64(a))*fx
		bot := float64(c) + (float64(d)-float64(c))*fx
		return uint8(math.Round(top + (bot-top)*fy))
	}
	return color.RGBA{
		R: lerp2(c00.R, c10.R, c01.R, c11.R),
		G: lerp2(c00.G, c10.G, c01.G, c11.G),
		B: lerp2(c00.B, c10.B, c01.B, c11.B),
		A: lerp2(c00.A, c10.A, c01.A, c11.A),
	}
}

// toRGBA returns src as *image.RGBA, converting only when necessary.
func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(src.Bounds())
	for y := src.Bounds().Min.Y; y < src.Bounds().Max.Y; y++ {
		for x := src.Bounds().Min.X; x < src.Bounds().Max.X; x++ {
			out.Set(x, y, src.At(x, y))
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
