package calib

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

// Default marker settings
const (
	DefaultCols   = 9
	DefaultRows   = 6
	DefaultSquare = 0.025 // meters
)

// ErrInvalidMarker is returned for a marker grid that cannot be detected.
var ErrInvalidMarker = errors.New("invalid marker grid")

// Marker is a planar checkerboard described by its inner corners.
//
// Cols is the number of inner corners along a row and Rows the number of
// rows. The same Marker drives both detection (PatternSize) and pose
// solving (ObjectPoints), so corner order and object point order always
// agree.
type Marker struct {
	Cols   int     `json:"cols"`
	Rows   int     `json:"rows"`
	Square float64 `json:"square"`
}

// DefaultMarker returns the 9x6 board with 2.5 cm squares.
func DefaultMarker() Marker {
	return Marker{Cols: DefaultCols, Rows: DefaultRows, Square: DefaultSquare}
}

// ParseGrid parses a grid size such as "9x6" into a marker with the
// default square size.
func ParseGrid(s string) (Marker, error) {
	cols, rows, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return Marker{}, fmt.Errorf("%w: %q", ErrInvalidMarker, s)
	}
	c, err := strconv.Atoi(cols)
	if err != nil {
		return Marker{}, fmt.Errorf("%w: %q", ErrInvalidMarker, s)
	}
	r, err := strconv.Atoi(rows)
	if err != nil {
		return Marker{}, fmt.Errorf("%w: %q", ErrInvalidMarker, s)
	}
	m := Marker{Cols: c, Rows: r, Square: DefaultSquare}
	return m, m.Validate()
}

// Validate checks that the grid is large enough to detect and solve.
func (m Marker) Validate() error {
	if m.Cols < 2 || m.Rows < 2 || m.Square <= 0 {
		return fmt.Errorf("%w: %dx%d square=%g", ErrInvalidMarker, m.Cols, m.Rows, m.Square)
	}
	return nil
}

// Count returns the number of inner corners.
func (m Marker) Count() int {
	return m.Cols * m.Rows
}

// PatternSize returns the (points per row, rows) size for corner detection.
func (m Marker) PatternSize() image.Point {
	return image.Pt(m.Cols, m.Rows)
}

// Width returns the distance between the first and last corner of a row.
func (m Marker) Width() float64 {
	return float64(m.Cols-1) * m.Square
}

// Height returns the distance between the first and last corner of a column.
func (m Marker) Height() float64 {
	return float64(m.Rows-1) * m.Square
}

// Center returns the marker-local center of the corner grid.
func (m Marker) Center() Point3 {
	return Point3{X: m.Width() / 2, Y: m.Height() / 2}
}

// ObjectPoints enumerates the corners in marker-local coordinates, row by
// row, matching the order corners are returned by the detector.
func (m Marker) ObjectPoints() []Point3 {
	points := make([]Point3, 0, m.Count())
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			points = append(points, Point3{
				X: float64(c) * m.Square,
				Y: float64(r) * m.Square,
			})
		}
	}
	return points
}

// ObjectPointVector converts ObjectPoints to a gocv vector.
// The caller is responsible for closing the returned vector.
func (m Marker) ObjectPointVector() gocv.Point3fVector {
	points := m.ObjectPoints()
	pts := make([]gocv.Point3f, len(points))
	for i, p := range points {
		pts[i] = gocv.Point3f{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
	}
	return gocv.NewPoint3fVectorFromPoints(pts)
}

// String returns the grid size as "ColsxRows".
func (m Marker) String() string {
	return fmt.Sprintf("%dx%d", m.Cols, m.Rows)
}
