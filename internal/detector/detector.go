// Package detector finds the checkerboard marker in video frames.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/arcam/internal/calib"
)

// Detector defines the interface for marker detection implementations.
type Detector interface {
	// Detect looks for the marker in a BGR or gray frame. A marker that is
	// not visible is reported with found=false, not as an error.
	Detect(frame *gocv.Mat) (corners Corners, found bool)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for checkerboard detection.
type Config struct {
	// Marker is the board to look for.
	Marker calib.Marker

	// WindowSize is the half side of the sub-pixel search window.
	WindowSize int

	// MaxIterations and Epsilon terminate sub-pixel refinement.
	MaxIterations int
	Epsilon       float64

	// FastCheck rejects frames without a board before the full search.
	FastCheck bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Marker:        calib.DefaultMarker(),
		WindowSize:    11,
		MaxIterations: 30,
		Epsilon:       0.1,
		FastCheck:     true,
	}
}

// Corners are detected inner corners in pixels, row by row in the order of
// calib.Marker.ObjectPoints.
type Corners []calib.Point2

// Center returns the mean of the corners.
func (c Corners) Center() calib.Point2 {
	var center calib.Point2
	if len(c) == 0 {
		return center
	}
	for _, p := range c {
		center.X += p.X
		center.Y += p.Y
	}
	center.X /= float64(len(c))
	center.Y /= float64(len(c))
	return center
}

// Clone returns a copy that does not share the backing array.
func (c Corners) Clone() Corners {
	if c == nil {
		return nil
	}
	return append(Corners(nil), c...)
}
