package interact

import (
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Key is a window-system independent key code.
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	Key1
	Key2
	Key3
	Key4
	KeyG
	KeyE
	KeyP
	KeyT
	KeyC
	KeyR
)

// Input tuning
const (
	RotateDegreesPerPixel = 0.35
	ZoomStep              = 1.1
	MinScale              = 0.05
	MaxScale              = 20.0
)

// Transform placement names used in benchmark rows.
const (
	TransformsOff = "off"
	TransformsCPU = "cpu"
	TransformsGPU = "gpu"
)

// Controller turns input events into view state. It is not safe for
// concurrent use.
type Controller struct {
	State             TransformState
	Filter            FilterMode
	TransformsEnabled bool
	TransformsOnGPU   bool

	frameW, frameH int
	dragging       bool
	lastX, lastY   float64
	closeRequested bool
}

// NewController returns a controller with the identity transform and no
// filter.
func NewController() *Controller {
	return &Controller{State: IdentityState()}
}

// SetFrameSize records the size of the captured frames.
func (c *Controller) SetFrameSize(w, h int) {
	c.frameW, c.frameH = w, h
}

// FrameSize returns the size set by SetFrameSize.
func (c *Controller) FrameSize() (int, int) {
	return c.frameW, c.frameH
}

// RequestClose asks the render loop to stop.
func (c *Controller) RequestClose() {
	c.closeRequested = true
}

// ShouldClose reports whether a close was requested.
func (c *Controller) ShouldClose() bool {
	return c.closeRequested
}

// CPUTransforms reports whether the CPU stage must warp the frame.
func (c *Controller) CPUTransforms() bool {
	return c.TransformsEnabled && !c.TransformsOnGPU && !c.State.IsIdentity()
}

// GPUTransforms reports whether the vertex shader must apply the transform.
func (c *Controller) GPUTransforms() bool {
	return c.TransformsEnabled && c.TransformsOnGPU
}

// TransformMode returns where transforms are applied.
func (c *Controller) TransformMode() string {
	switch {
	case !c.TransformsEnabled:
		return TransformsOff
	case c.TransformsOnGPU:
		return TransformsGPU
	default:
		return TransformsCPU
	}
}

// Reset restores the identity transform.
func (c *Controller) Reset() {
	c.State = IdentityState()
}

// KeyPressed handles a key press.
func (c *Controller) KeyPressed(k Key) {
	switch k {
	case KeyEscape:
		c.RequestClose()
		return
	case Key1:
		c.setFilter(FilterNone)
	case Key2:
		c.setFilter(FilterCPUGray)
	case Key3:
		c.setFilter(FilterCPUEdge)
	case Key4:
		c.setFilter(FilterCPUPixelate)
	case KeyG:
		c.setFilter(FilterGPUGray)
	case KeyE:
		c.setFilter(FilterGPUEdge)
	case KeyP:
		c.setFilter(FilterGPUPixelate)
	case KeyT:
		c.TransformsEnabled = !c.TransformsEnabled
		log.Printf("transforms: %s", c.TransformMode())
	case KeyC:
		c.TransformsOnGPU = !c.TransformsOnGPU
		log.Printf("transforms: %s", c.TransformMode())
	case KeyR:
		c.Reset()
		log.Println("transforms reset")
	}
}

func (c *Controller) setFilter(m FilterMode) {
	if c.Filter == m {
		return
	}
	c.Filter = m
	log.Printf("switched filter: %s", m)
}

// MouseButton handles a left button press or release at (x, y) in window
// coordinates.
func (c *Controller) MouseButton(pressed bool, x, y float64) {
	c.dragging = pressed
	c.lastX, c.lastY = x, y
}

// CursorMoved handles cursor motion. While dragging it translates the view,
// or rotates it when shift is held.
func (c *Controller) CursorMoved(x, y float64, shift bool, winW, winH int) {
	if !c.dragging {
		return
	}
	dx := x - c.lastX
	dy := y - c.lastY
	c.lastX, c.lastY = x, y

	if shift {
		c.State.Rotation += dx * RotateDegreesPerPixel
		return
	}
	if winW <= 0 || winH <= 0 {
		return
	}
	c.State.TranslateU += dx / float64(winW)
	c.State.TranslateV += dy / float64(winH)
}

// Scrolled zooms by ZoomStep per scroll step, keeping the content under the
// cursor at (x, y) fixed on screen.
func (c *Controller) Scrolled(dy, x, y float64, winW, winH int) {
	if winW <= 0 || winH <= 0 || dy == 0 {
		return
	}
	fw, fh := c.frameW, c.frameH
	if fw <= 0 || fh <= 0 {
		fw, fh = winW, winH
	}

	cursor := mgl32.Vec3{
		float32(x / float64(winW) * float64(fw)),
		float32(y / float64(winH) * float64(fh)),
		1,
	}
	q := c.State.PixelMatrix(fw, fh).Inv().Mul3x1(cursor)

	scale := c.State.Scale * math.Pow(ZoomStep, dy)
	c.State.Scale = math.Max(MinScale, math.Min(MaxScale, scale))
	c.State.PivotU = float64(q.X()) / float64(fw)
	c.State.PivotV = float64(q.Y()) / float64(fh)

	// The scale is anchored at q, so only the rotation moves it.
	rq := rotateAbout(float32(c.State.Rotation), float32(fw)/2, float32(fh)/2).Mul3x1(q)
	c.State.TranslateU = float64(cursor.X()-rq.X()) / float64(fw)
	c.State.TranslateV = float64(cursor.Y()-rq.Y()) / float64(fh)
}
