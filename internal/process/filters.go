// Package process implements the CPU image filters and affine transforms
// applied to captured frames before upload.
package process

import (
	"image"

	"gocv.io/x/gocv"
)

// Filter parameters
const (
	CannyLow          = 50
	CannyHigh         = 150
	DefaultPixelBlock = 10
)

// Grayscale converts a BGR frame to gray and back to three channels so the
// result can be uploaded like any other frame.
func Grayscale(src gocv.Mat, dst *gocv.Mat) {
	gray := gocv.NewMat()
	defer gray.Close()

	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	gocv.CvtColor(gray, dst, gocv.ColorGrayToBGR)
}

// Edges runs Canny on the gray image and returns a three channel edge map.
func Edges(src gocv.Mat, dst *gocv.Mat) {
	gray := gocv.NewMat()
	defer gray.Close()
	edges := gocv.NewMat()
	defer edges.Close()

	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	gocv.Canny(gray, &edges, CannyLow, CannyHigh)
	gocv.CvtColor(edges, dst, gocv.ColorGrayToBGR)
}

// Pixelate replaces every block x block tile with its mean color. Tiles on
// the right and bottom edges are clipped to the image.
func Pixelate(src gocv.Mat, dst *gocv.Mat, block int) {
	if block <= 0 {
		block = DefaultPixelBlock
	}
	src.CopyTo(dst)

	rows, cols := dst.Rows(), dst.Cols()
	for y := 0; y < rows; y += block {
		for x := 0; x < cols; x += block {
			tile := image.Rect(x, y, min(x+block, cols), min(y+block, rows))
			roi := dst.Region(tile)
			roi.SetTo(roi.Mean())
			roi.Close()
		}
	}
}
