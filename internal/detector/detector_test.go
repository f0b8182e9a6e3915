package detector

import (
	"errors"
	"math"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/arcam/internal/calib"
	"github.com/ayusman/arcam/internal/capture"
	"github.com/ayusman/arcam/internal/pose"
)

func TestNewChessboard_InvalidMarker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Marker = calib.Marker{Cols: 1, Rows: 6, Square: 0.025}

	if _, err := NewChessboard(cfg); !errors.Is(err, calib.ErrInvalidMarker) {
		t.Errorf("NewChessboard() error = %v, want ErrInvalidMarker", err)
	}
}

func TestNewChessboard_FillsDefaults(t *testing.T) {
	d, err := NewChessboard(Config{Marker: calib.DefaultMarker()})
	if err != nil {
		t.Fatalf("NewChessboard() error = %v", err)
	}
	defer d.Close()

	cfg := d.Config()
	if cfg.WindowSize != 11 || cfg.MaxIterations != 30 || cfg.Epsilon != 0.1 {
		t.Errorf("Config() = %+v, want window 11, 30 iterations, epsilon 0.1", cfg)
	}
}

func TestCorners_Center(t *testing.T) {
	tests := []struct {
		name    string
		corners Corners
		want    calib.Point2
	}{
		{name: "empty", want: calib.Point2{}},
		{name: "single", corners: Corners{{X: 3, Y: 4}}, want: calib.Point2{X: 3, Y: 4}},
		{name: "square", corners: Corners{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 2}}, want: calib.Point2{X: 1, Y: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.corners.Center(); got != tt.want {
				t.Errorf("Center() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMockDetector(t *testing.T) {
	m := NewMockDetector()

	if _, found := m.Detect(nil); found {
		t.Error("new MockDetector should find nothing")
	}

	want := ProjectedCorners(calib.Default(), calib.DefaultMarker(),
		pose.FromAxisAngle([3]float64{}, [3]float64{-0.1, -0.06, 0.5}))
	m.SetCorners(want)

	got, found := m.Detect(nil)
	if !found || len(got) != calib.DefaultMarker().Count() {
		t.Fatalf("Detect() = %d corners, found %v", len(got), found)
	}
	got[0].X = -1
	if again, _ := m.Detect(nil); again[0].X == -1 {
		t.Error("Detect() results share storage")
	}

	m.SetNotFound()
	if _, found := m.Detect(nil); found {
		t.Error("Detect() after SetNotFound() found a marker")
	}
	if m.Calls() != 4 {
		t.Errorf("Calls() = %d, want 4", m.Calls())
	}
}

func TestChessboard_BlankFrame(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires OpenCV calib3d")
	}

	d, err := NewChessboard(DefaultConfig())
	if err != nil {
		t.Fatalf("NewChessboard() error = %v", err)
	}
	defer d.Close()

	blank := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), 480, 640, gocv.MatTypeCV8UC3)
	defer blank.Close()

	if corners, found := d.Detect(&blank); found || corners != nil {
		t.Errorf("Detect(blank) = %d corners, found %v", len(corners), found)
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if _, found := d.Detect(&empty); found {
		t.Error("Detect(empty) found a marker")
	}
}

func TestChessboard_SyntheticBoard(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires OpenCV calib3d")
	}

	c := calib.Default().WithoutDistortion()
	m := calib.DefaultMarker()

	tests := []struct {
		name string
		rvec [3]float64
		z    float64
	}{
		{name: "frontal", rvec: [3]float64{0, 0, 0}, z: 0.5},
		{name: "tilted", rvec: [3]float64{0.3, -0.2, 0.1}, z: 0.6},
		{name: "far", rvec: [3]float64{-0.2, 0.1, 0}, z: 1.0},
	}

	d, err := NewChessboard(DefaultConfig())
	if err != nil {
		t.Fatalf("NewChessboard() error = %v", err)
	}
	defer d.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := capture.CenteredPose(m, tt.rvec, tt.z)

			frame := gocv.NewMat()
			defer frame.Close()
			if err := capture.RenderCheckerboard(&frame, c, m, p, 1920, 1080); err != nil {
				t.Fatalf("RenderCheckerboard() error = %v", err)
			}

			corners, found := d.Detect(&frame)
			if !found {
				t.Fatal("Detect() did not find the rendered board")
			}
			if len(corners) != m.Count() {
				t.Fatalf("len(corners) = %d, want %d", len(corners), m.Count())
			}

			truth := ProjectedCorners(c, m, p)
			forward := maxDistance(corners, truth, false)
			reversed := maxDistance(corners, truth, true)
			if best := math.Min(forward, reversed); best > 0.5 {
				t.Errorf("corners deviate from projection by %.3f px", best)
			}
		})
	}
}

// maxDistance returns the largest distance between matching corners, with b
// optionally walked backwards.
func maxDistance(a, b Corners, reverse bool) float64 {
	worst := 0.0
	for i := range a {
		j := i
		if reverse {
			j = len(b) - 1 - i
		}
		worst = math.Max(worst, math.Hypot(a[i].X-b[j].X, a[i].Y-b[j].Y))
	}
	return worst
}
