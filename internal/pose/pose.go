// Package pose estimates and represents the rigid transform from a planar
// marker to the camera.
package pose

import (
	"math"

	"github.com/ayusman/arcam/internal/calib"
	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/mat"
)

// Pose is a rotation and translation taking marker-local points into the
// camera frame of the un-flipped image (x right, y down, z forward).
type Pose struct {
	R [3][3]float64 `json:"r"`
	T [3]float64    `json:"t"`
}

// Identity returns the pose with no rotation and no translation.
func Identity() Pose {
	return Pose{R: [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}}
}

// FromAxisAngle builds a pose from a Rodrigues rotation vector and a
// translation.
func FromAxisAngle(rvec, t [3]float64) Pose {
	theta := math.Sqrt(rvec[0]*rvec[0] + rvec[1]*rvec[1] + rvec[2]*rvec[2])
	if theta < 1e-12 {
		p := Identity()
		p.T = t
		return p
	}

	kx, ky, kz := rvec[0]/theta, rvec[1]/theta, rvec[2]/theta
	c := math.Cos(theta)
	s := math.Sin(theta)
	v := 1 - c

	return Pose{
		R: [3][3]float64{
			{c + kx*kx*v, kx*ky*v - kz*s, kx*kz*v + ky*s},
			{ky*kx*v + kz*s, c + ky*ky*v, ky*kz*v - kx*s},
			{kz*kx*v - ky*s, kz*ky*v + kx*s, c + kz*kz*v},
		},
		T: t,
	}
}

// Apply transforms a marker-local point into camera coordinates.
func (p Pose) Apply(pt calib.Point3) calib.Point3 {
	return calib.Point3{
		X: p.R[0][0]*pt.X + p.R[0][1]*pt.Y + p.R[0][2]*pt.Z + p.T[0],
		Y: p.R[1][0]*pt.X + p.R[1][1]*pt.Y + p.R[1][2]*pt.Z + p.T[1],
		Z: p.R[2][0]*pt.X + p.R[2][1]*pt.Y + p.R[2][2]*pt.Z + p.T[2],
	}
}

// Project maps marker-local points to pixels with the given calibration.
func (p Pose) Project(c calib.Calibration, points []calib.Point3) []calib.Point2 {
	return c.Project(points, p.R, p.T)
}

// Distance returns the distance from the camera to the marker origin.
func (p Pose) Distance() float64 {
	return math.Sqrt(p.T[0]*p.T[0] + p.T[1]*p.T[1] + p.T[2]*p.T[2])
}

func (p Pose) rotation() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		p.R[0][0], p.R[0][1], p.R[0][2],
		p.R[1][0], p.R[1][1], p.R[1][2],
		p.R[2][0], p.R[2][1], p.R[2][2],
	})
}

// AngleBetween returns the geodesic angle in radians between the rotations
// of a and b.
func AngleBetween(a, b Pose) float64 {
	var rel mat.Dense
	rel.Mul(a.rotation().T(), b.rotation())

	cos := (mat.Trace(&rel) - 1) / 2
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos)
}

// ModelMatrix returns the marker-to-eye transform for the GL renderer.
// The GL eye looks down -z with y up, so the camera y and z rows are
// negated.
func (p Pose) ModelMatrix() mgl32.Mat4 {
	row := func(i int, sign float64) mgl32.Vec4 {
		return mgl32.Vec4{
			float32(sign * p.R[i][0]),
			float32(sign * p.R[i][1]),
			float32(sign * p.R[i][2]),
			float32(sign * p.T[i]),
		}
	}
	return mgl32.Mat4FromRows(
		row(0, 1),
		row(1, -1),
		row(2, -1),
		mgl32.Vec4{0, 0, 0, 1},
	)
}
