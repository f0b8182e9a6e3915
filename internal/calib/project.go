package calib

import "gonum.org/v1/gonum/mat"

// Project maps marker-local points through the rigid transform (R, t) and
// the calibrated pinhole + Brown-Conrady distortion model to pixels.
// Points must lie in front of the camera.
func (c Calibration) Project(points []Point3, r [3][3]float64, t [3]float64) []Point2 {
	rot := mat.NewDense(3, 3, []float64{
		r[0][0], r[0][1], r[0][2],
		r[1][0], r[1][1], r[1][2],
		r[2][0], r[2][1], r[2][2],
	})
	trans := mat.NewVecDense(3, t[:])

	out := make([]Point2, len(points))
	var cam mat.VecDense
	for i, p := range points {
		cam.MulVec(rot, mat.NewVecDense(3, []float64{p.X, p.Y, p.Z}))
		cam.AddVec(&cam, trans)
		out[i] = c.ProjectCamera(Point3{X: cam.AtVec(0), Y: cam.AtVec(1), Z: cam.AtVec(2)})
	}
	return out
}

// ProjectCamera maps a point already in camera coordinates to pixels.
func (c Calibration) ProjectCamera(p Point3) Point2 {
	z := p.Z
	if z == 0 {
		z = 1e-12
	}
	x := p.X / z
	y := p.Y / z

	k1, k2, p1, p2, k3 := c.Distortion[0], c.Distortion[1], c.Distortion[2], c.Distortion[3], c.Distortion[4]
	r2 := x*x + y*y
	radial := 1 + k1*r2 + k2*r2*r2 + k3*r2*r2*r2
	xd := x*radial + 2*p1*x*y + p2*(r2+2*x*x)
	yd := y*radial + p1*(r2+2*y*y) + 2*p2*x*y

	in := c.Intrinsics
	return Point2{
		X: in.Fx*xd + in.Cx,
		Y: in.Fy*yd + in.Cy,
	}
}
