// Package calib holds the fixed camera calibration and marker geometry used
// for pose estimation.
package calib

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidIntrinsics is returned when a focal length is not positive.
var ErrInvalidIntrinsics = errors.New("focal lengths must be positive")

// Point2 is an image-space point in pixels.
type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point3 is a 3D point in meters.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Intrinsics are the pinhole parameters of the 3x3 camera matrix.
type Intrinsics struct {
	Fx float64 `json:"fx"`
	Fy float64 `json:"fy"`
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
}

// Distortion holds the coefficients k1, k2, p1, p2, k3 in OpenCV order.
type Distortion [5]float64

// Calibration is the immutable camera model for the process lifetime.
type Calibration struct {
	Intrinsics Intrinsics `json:"intrinsics"`
	Distortion Distortion `json:"distortion"`
}

// Default returns the hard-coded calibration of the demo camera
// (1920x1080 sensor).
func Default() Calibration {
	return Calibration{
		Intrinsics: Intrinsics{
			Fx: 2218.397864043568,
			Fy: 2218.397864043568,
			Cx: 959.5,
			Cy: 539.5,
		},
		Distortion: Distortion{
			-0.17611576780242291,
			1.7357972971751359,
			0,
			0,
			-5.4837634455342661,
		},
	}
}

// Validate checks the calibration invariants.
func (c Calibration) Validate() error {
	if c.Intrinsics.Fx <= 0 || c.Intrinsics.Fy <= 0 {
		return fmt.Errorf("%w: fx=%g fy=%g", ErrInvalidIntrinsics, c.Intrinsics.Fx, c.Intrinsics.Fy)
	}
	return nil
}

// WithoutDistortion returns a copy with all distortion coefficients zeroed.
func (c Calibration) WithoutDistortion() Calibration {
	c.Distortion = Distortion{}
	return c
}

// K returns the camera matrix as a dense 3x3 matrix.
func (c Calibration) K() *mat.Dense {
	in := c.Intrinsics
	return mat.NewDense(3, 3, []float64{
		in.Fx, 0, in.Cx,
		0, in.Fy, in.Cy,
		0, 0, 1,
	})
}

// CameraMatrix returns the camera matrix as a CV_64F Mat.
// The caller is responsible for closing the returned Mat.
func (c Calibration) CameraMatrix() gocv.Mat {
	k := c.K()
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	for r := 0; r < 3; r++ {
		for col := 0; col < 3; col++ {
			m.SetDoubleAt(r, col, k.At(r, col))
		}
	}
	return m
}

// DistCoeffs returns the distortion coefficients as a 5x1 CV_64F Mat.
// The caller is responsible for closing the returned Mat.
func (c Calibration) DistCoeffs() gocv.Mat {
	m := gocv.NewMatWithSize(5, 1, gocv.MatTypeCV64F)
	for i, v := range c.Distortion {
		m.SetDoubleAt(i, 0, v)
	}
	return m
}
