package pose

import (
	"errors"
	"fmt"

	"github.com/ayusman/arcam/internal/calib"
	"gocv.io/x/gocv"
)

// MinCorrespondences is the smallest point set solvePnP accepts.
const MinCorrespondences = 4

// solvePnPIterative selects the Levenberg-Marquardt reprojection solver.
const solvePnPIterative = 0

var (
	// ErrTooFewPoints is returned when the correspondence sets are too small
	// or differ in length.
	ErrTooFewPoints = errors.New("not enough point correspondences")
	// ErrSolveFailed is returned when OpenCV reports no solution.
	ErrSolveFailed = errors.New("pose solver found no solution")
)

// Solver computes marker poses for a fixed calibration.
type Solver struct {
	calib  calib.Calibration
	camera gocv.Mat
	dist   gocv.Mat
}

// NewSolver creates a Solver and caches the calibration matrices.
// Call Close to release them.
func NewSolver(c calib.Calibration) (*Solver, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Solver{
		calib:  c,
		camera: c.CameraMatrix(),
		dist:   c.DistCoeffs(),
	}, nil
}

// Calibration returns the calibration the solver was built with.
func (s *Solver) Calibration() calib.Calibration {
	return s.calib
}

// Solve finds the pose minimizing reprojection error of object onto image.
// object[i] must correspond to image[i].
func (s *Solver) Solve(object []calib.Point3, image []calib.Point2) (Pose, error) {
	if len(object) != len(image) || len(object) < MinCorrespondences {
		return Pose{}, fmt.Errorf("%w: %d object, %d image", ErrTooFewPoints, len(object), len(image))
	}

	obj := make([]gocv.Point3f, len(object))
	for i, p := range object {
		obj[i] = gocv.Point3f{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
	}
	img := make([]gocv.Point2f, len(image))
	for i, p := range image {
		img[i] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
	}

	objVec := gocv.NewPoint3fVectorFromPoints(obj)
	defer objVec.Close()
	imgVec := gocv.NewPoint2fVectorFromPoints(img)
	defer imgVec.Close()

	rvec := gocv.NewMat()
	defer rvec.Close()
	tvec := gocv.NewMat()
	defer tvec.Close()

	if ok := gocv.SolvePnP(objVec, imgVec, s.camera, s.dist, &rvec, &tvec, false, solvePnPIterative); !ok {
		return Pose{}, ErrSolveFailed
	}

	rmat := gocv.NewMat()
	defer rmat.Close()
	gocv.Rodrigues(rvec, &rmat)

	if rmat.Rows() != 3 || rmat.Cols() != 3 || tvec.Total() != 3 {
		return Pose{}, ErrSolveFailed
	}

	var p Pose
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			p.R[i][j] = rmat.GetDoubleAt(i, j)
		}
		p.T[i] = tvec.GetDoubleAt(i, 0)
	}
	return p, nil
}

// Close releases the cached calibration matrices.
func (s *Solver) Close() error {
	if err := s.camera.Close(); err != nil {
		return err
	}
	return s.dist.Close()
}
