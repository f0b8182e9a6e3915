package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/arcam/internal/calib"
	"github.com/ayusman/arcam/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	corners Corners
	found   bool
	calls   int
}

// NewMockDetector creates a new MockDetector that finds nothing.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetCorners makes Detect report the given corners as found.
func (m *MockDetector) SetCorners(corners Corners) {
	m.corners = corners
	m.found = true
}

// SetNotFound makes Detect report that no marker is visible.
func (m *MockDetector) SetNotFound() {
	m.corners = nil
	m.found = false
}

// Calls returns how many frames were passed to Detect.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured result.
func (m *MockDetector) Detect(frame *gocv.Mat) (Corners, bool) {
	m.calls++
	if !m.found {
		return nil, false
	}
	return m.corners.Clone(), true
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// ProjectedCorners returns the exact corners of marker m seen at pose p.
func ProjectedCorners(c calib.Calibration, m calib.Marker, p pose.Pose) Corners {
	return Corners(p.Project(c, m.ObjectPoints()))
}
