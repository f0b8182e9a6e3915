package process

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// BorderColor fills pixels uncovered by a transform. It matches the GL
// clear color (0.1, 0.1, 0.2).
var BorderColor = color.RGBA{R: 25, G: 25, B: 51, A: 255}

// affine returns the 2x3 matrix [a b c; d e f].
func affine(a, b, c, d, e, f float64) gocv.Mat {
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	m.SetDoubleAt(0, 0, a)
	m.SetDoubleAt(0, 1, b)
	m.SetDoubleAt(0, 2, c)
	m.SetDoubleAt(1, 0, d)
	m.SetDoubleAt(1, 1, e)
	m.SetDoubleAt(1, 2, f)
	return m
}

func warp(src gocv.Mat, dst *gocv.Mat, m gocv.Mat) {
	gocv.WarpAffineWithParams(src, dst, m, image.Pt(src.Cols(), src.Rows()),
		gocv.InterpolationLinear, gocv.BorderConstant, BorderColor)
}

// Translate shifts the image by (dx, dy) pixels.
func Translate(src gocv.Mat, dst *gocv.Mat, dx, dy float64) {
	m := affine(1, 0, dx, 0, 1, dy)
	defer m.Close()
	warp(src, dst, m)
}

// Scale scales the image by (sx, sy) about the pivot (px, py). A negative
// pivot coordinate selects the image center on that axis.
func Scale(src gocv.Mat, dst *gocv.Mat, sx, sy, px, py float64) {
	if px < 0 {
		px = float64(src.Cols()) / 2
	}
	if py < 0 {
		py = float64(src.Rows()) / 2
	}
	m := affine(sx, 0, (1-sx)*px, 0, sy, (1-sy)*py)
	defer m.Close()
	warp(src, dst, m)
}

// Rotate rotates the image counter-clockwise by deg degrees about its
// center.
func Rotate(src gocv.Mat, dst *gocv.Mat, deg float64) {
	cx := float64(src.Cols()) / 2
	cy := float64(src.Rows()) / 2
	rad := deg * math.Pi / 180
	a, b := math.Cos(rad), math.Sin(rad)

	m := affine(a, b, (1-a)*cx-b*cy, -b, a, b*cx+(1-a)*cy)
	defer m.Close()
	warp(src, dst, m)
}

// FlipForUpload flips the frame vertically so row 0 becomes the bottom
// texture row GL expects. It must run exactly once, after all CPU
// transforms.
func FlipForUpload(src gocv.Mat, dst *gocv.Mat) {
	gocv.Flip(src, dst, 0)
}
