package pose

import (
	"errors"
	"math"
	"testing"

	"github.com/ayusman/arcam/internal/calib"
)

func TestNewSolver_InvalidCalibration(t *testing.T) {
	_, err := NewSolver(calib.Calibration{})
	if !errors.Is(err, calib.ErrInvalidIntrinsics) {
		t.Errorf("NewSolver() error = %v, want ErrInvalidIntrinsics", err)
	}
}

func TestSolver_TooFewPoints(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	s, err := NewSolver(calib.Default())
	if err != nil {
		t.Fatalf("NewSolver() error = %v", err)
	}
	defer s.Close()

	tests := []struct {
		name   string
		object []calib.Point3
		image  []calib.Point2
	}{
		{name: "empty"},
		{name: "three points", object: make([]calib.Point3, 3), image: make([]calib.Point2, 3)},
		{name: "mismatched", object: make([]calib.Point3, 6), image: make([]calib.Point2, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Solve(tt.object, tt.image); !errors.Is(err, ErrTooFewPoints) {
				t.Errorf("Solve() error = %v, want ErrTooFewPoints", err)
			}
		})
	}
}

func TestSolver_RecoversSyntheticPose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	tests := []struct {
		name string
		c    calib.Calibration
		want Pose
	}{
		{
			name: "default calibration",
			c:    calib.Default(),
			want: FromAxisAngle([3]float64{0.2, -0.3, 0.1}, [3]float64{-0.1, -0.05, 0.6}),
		},
		{
			name: "no distortion, tilted",
			c:    calib.Default().WithoutDistortion(),
			want: FromAxisAngle([3]float64{-0.5, 0.1, 0.05}, [3]float64{-0.08, -0.06, 0.9}),
		},
	}

	marker := calib.DefaultMarker()
	object := marker.ObjectPoints()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSolver(tt.c)
			if err != nil {
				t.Fatalf("NewSolver() error = %v", err)
			}
			defer s.Close()

			image := tt.want.Project(tt.c, object)

			got, err := s.Solve(object, image)
			if err != nil {
				t.Fatalf("Solve() error = %v", err)
			}

			if angle := AngleBetween(got, tt.want); angle > 1e-3 {
				t.Errorf("rotation differs by %g rad", angle)
			}
			for i := 0; i < 3; i++ {
				if math.Abs(got.T[i]-tt.want.T[i]) > 1e-3 {
					t.Errorf("T[%d] = %g, want %g", i, got.T[i], tt.want.T[i])
				}
			}
		})
	}
}
