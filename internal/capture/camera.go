// Package capture provides frame sources: camera devices and video files
// through GoCV (OpenCV), recorded playback, and a synthetic marker scene.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrReadFailed is returned when the device reports a failed read. The
	// stream is considered finished.
	ErrReadFailed = errors.New("failed to read frame from camera")
	// ErrEmptyFrame is returned when the device produced an empty image.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Camera defines the interface for frame sources.
type Camera interface {
	Open() error
	Close() error
	// Read overwrites dst with the next frame.
	Read(dst *gocv.Mat) error
	// SetResolution requests a capture size. Zero values keep the device
	// default.
	SetResolution(width, height int)
	IsOpen() bool
}

// cameraImpl manages video capture from a device or file using GoCV.
type cameraImpl struct {
	source  interface{}
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	width   int
	height  int
}

// NewCamera creates a new Camera with the given device ID.
func NewCamera(deviceID int) Camera {
	return &cameraImpl{source: deviceID}
}

// NewVideoSource creates a Camera reading from a video file or stream URL.
func NewVideoSource(path string) Camera {
	return &cameraImpl{source: path}
}

// Open opens the device and applies the requested resolution.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.source)
	if err != nil {
		return fmt.Errorf("open capture %v: %w", c.source, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open capture %v: device not available", c.source)
	}

	c.capture = capture
	c.applyResolution()
	c.running = true

	return nil
}

func (c *cameraImpl) applyResolution() {
	if c.capture == nil || c.width <= 0 || c.height <= 0 {
		return
	}
	c.capture.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	c.capture.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// Read reads the next frame into dst.
func (c *cameraImpl) Read(dst *gocv.Mat) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return ErrCameraNotOpen
	}

	if ok := c.capture.Read(dst); !ok {
		return ErrReadFailed
	}
	if dst.Empty() {
		return ErrEmptyFrame
	}

	return nil
}

// SetResolution sets the requested capture size. The device may pick the
// nearest size it supports.
func (c *cameraImpl) SetResolution(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.width, c.height = width, height
	c.applyResolution()
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
