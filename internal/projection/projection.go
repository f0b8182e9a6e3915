// Package projection converts calibrated pinhole intrinsics into a GL
// clip-space projection matrix.
//
// Convention: the video texture is flipped vertically once on upload so the
// quad shows the camera image upright, the view matrix is identity, and
// marker poses enter eye space with their y and z axes negated (see
// pose.ModelMatrix). Under that convention a pixel (u, v) of the original
// image maps to NDC (2u/w - 1, 1 - 2v/h).
package projection

import (
	"errors"
	"fmt"

	"github.com/ayusman/arcam/internal/calib"
	"github.com/go-gl/mathgl/mgl32"
)

// Default clip planes in meters.
const (
	DefaultNear = 0.01
	DefaultFar  = 1000.0
)

// ErrInvalidParams is returned when the inputs cannot form a projection.
var ErrInvalidParams = errors.New("invalid projection parameters")

// Params are the inputs of Build.
type Params struct {
	Fx, Fy    float64
	Cx, Cy    float64
	Width     int
	Height    int
	Near, Far float64
}

// FromCalibration fills Params from a calibration and frame size.
func FromCalibration(c calib.Calibration, width, height int, near, far float64) Params {
	return Params{
		Fx:     c.Intrinsics.Fx,
		Fy:     c.Intrinsics.Fy,
		Cx:     c.Intrinsics.Cx,
		Cy:     c.Intrinsics.Cy,
		Width:  width,
		Height: height,
		Near:   near,
		Far:    far,
	}
}

// Validate reports whether the parameters describe a usable frustum.
func (p Params) Validate() error {
	switch {
	case p.Fx <= 0 || p.Fy <= 0:
		return fmt.Errorf("%w: fx=%g fy=%g", ErrInvalidParams, p.Fx, p.Fy)
	case p.Width <= 0 || p.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidParams, p.Width, p.Height)
	case p.Near <= 0 || p.Far <= p.Near:
		return fmt.Errorf("%w: near=%g far=%g", ErrInvalidParams, p.Near, p.Far)
	}
	return nil
}

// Build returns the column-major projection matrix for p.
func Build(p Params) (mgl32.Mat4, error) {
	if err := p.Validate(); err != nil {
		return mgl32.Mat4{}, err
	}

	w := float64(p.Width)
	h := float64(p.Height)
	n, f := p.Near, p.Far

	var m mgl32.Mat4
	m.Set(0, 0, float32(2*p.Fx/w))
	m.Set(1, 1, float32(2*p.Fy/h))
	m.Set(0, 2, float32(1-2*p.Cx/w))
	m.Set(1, 2, float32(2*p.Cy/h-1))
	m.Set(2, 2, float32(-(f+n)/(f-n)))
	m.Set(2, 3, float32(-2*f*n/(f-n)))
	m.Set(3, 2, -1)
	return m, nil
}

// ToNDC projects an eye-space point and performs the perspective divide.
func ToNDC(proj mgl32.Mat4, eye mgl32.Vec3) mgl32.Vec3 {
	clip := proj.Mul4x1(eye.Vec4(1))
	return clip.Vec3().Mul(1 / clip.W())
}

// NDCToPixel maps NDC x/y to image pixels with a top-left origin.
func NDCToPixel(ndc mgl32.Vec3, width, height int) calib.Point2 {
	return calib.Point2{
		X: float64((ndc.X() + 1) / 2 * float32(width)),
		Y: float64((1 - ndc.Y()) / 2 * float32(height)),
	}
}
