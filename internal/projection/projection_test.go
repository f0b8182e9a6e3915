package projection

import (
	"errors"
	"math"
	"testing"

	"github.com/ayusman/arcam/internal/calib"
	"github.com/ayusman/arcam/internal/pose"
	"github.com/go-gl/mathgl/mgl32"
)

func TestBuild_PrincipalAxisMapsToCenter(t *testing.T) {
	tests := []struct {
		name      string
		w, h      int
		near, far float64
		depth     float32
	}{
		{name: "1080p", w: 1920, h: 1080, near: 0.01, far: 1000, depth: 0.5},
		{name: "vga", w: 640, h: 480, near: 0.1, far: 100, depth: 3},
		{name: "portrait", w: 720, h: 1280, near: 0.05, far: 20, depth: 10},
		{name: "tiny", w: 3, h: 2, near: 1, far: 2, depth: 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Build(Params{
				Fx: 800, Fy: 800,
				Cx: float64(tt.w) / 2, Cy: float64(tt.h) / 2,
				Width: tt.w, Height: tt.h,
				Near: tt.near, Far: tt.far,
			})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}

			ndc := ToNDC(m, mgl32.Vec3{0, 0, -tt.depth})
			if math.Abs(float64(ndc.X())) > 1e-6 || math.Abs(float64(ndc.Y())) > 1e-6 {
				t.Errorf("principal axis maps to (%g, %g), want (0, 0)", ndc.X(), ndc.Y())
			}
			if ndc.Z() < -1 || ndc.Z() > 1 {
				t.Errorf("depth %g inside frustum maps outside NDC: %g", tt.depth, ndc.Z())
			}
		})
	}
}

func TestBuild_Terms(t *testing.T) {
	p := Params{Fx: 1000, Fy: 900, Cx: 300, Cy: 260, Width: 640, Height: 480, Near: 0.1, Far: 10}
	m, err := Build(p)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	checks := []struct {
		name     string
		row, col int
		want     float64
	}{
		{"x scale", 0, 0, 2 * 1000.0 / 640},
		{"y scale", 1, 1, 2 * 900.0 / 480},
		{"x offset", 0, 2, 1 - 2*300.0/640},
		{"y offset", 1, 2, 2*260.0/480 - 1},
		{"depth scale", 2, 2, -(10 + 0.1) / (10 - 0.1)},
		{"depth offset", 2, 3, -2 * 10 * 0.1 / (10 - 0.1)},
		{"perspective row", 3, 2, -1},
		{"bottom right", 3, 3, 0},
	}
	for _, c := range checks {
		if got := float64(m.At(c.row, c.col)); math.Abs(got-c.want) > 1e-6 {
			t.Errorf("%s: m[%d][%d] = %g, want %g", c.name, c.row, c.col, got, c.want)
		}
	}

	// Column-major storage: element (row 3, col 2) lives at index 2*4+3.
	if m[11] != -1 {
		t.Errorf("m[11] = %g, want -1 (column-major perspective term)", m[11])
	}
}

func TestBuild_MatchesPinholeProjection(t *testing.T) {
	c := calib.Default().WithoutDistortion()
	const w, h = 1920, 1080

	proj, err := Build(FromCalibration(c, w, h, DefaultNear, DefaultFar))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	p := pose.FromAxisAngle([3]float64{0.3, -0.2, 0.1}, [3]float64{-0.05, 0.02, 0.8})
	points := []calib.Point3{{}, {X: 0.1}, {Y: 0.1}, {X: 0.2, Y: 0.125}}
	want := p.Project(c, points)
	model := p.ModelMatrix()

	for i, pt := range points {
		eye := model.Mul4x1(mgl32.Vec4{float32(pt.X), float32(pt.Y), float32(pt.Z), 1}).Vec3()
		got := NDCToPixel(ToNDC(proj, eye), w, h)

		if math.Abs(got.X-want[i].X) > 0.5 || math.Abs(got.Y-want[i].Y) > 0.5 {
			t.Errorf("point %d: GL pixel (%.2f, %.2f), pinhole (%.2f, %.2f)", i, got.X, got.Y, want[i].X, want[i].Y)
		}
	}
}

func TestBuild_InvalidParams(t *testing.T) {
	base := Params{Fx: 1, Fy: 1, Width: 10, Height: 10, Near: 0.1, Far: 1}

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"zero fx", func(p *Params) { p.Fx = 0 }},
		{"negative fy", func(p *Params) { p.Fy = -1 }},
		{"zero width", func(p *Params) { p.Width = 0 }},
		{"zero height", func(p *Params) { p.Height = 0 }},
		{"zero near", func(p *Params) { p.Near = 0 }},
		{"far before near", func(p *Params) { p.Far = 0.05 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			if _, err := Build(p); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("Build() error = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestNDCToPixel(t *testing.T) {
	tests := []struct {
		ndc  mgl32.Vec3
		want calib.Point2
	}{
		{mgl32.Vec3{-1, 1, 0}, calib.Point2{X: 0, Y: 0}},
		{mgl32.Vec3{1, -1, 0}, calib.Point2{X: 640, Y: 480}},
		{mgl32.Vec3{0, 0, 0}, calib.Point2{X: 320, Y: 240}},
	}
	for _, tt := range tests {
		if got := NDCToPixel(tt.ndc, 640, 480); got != tt.want {
			t.Errorf("NDCToPixel(%v) = %+v, want %+v", tt.ndc, got, tt.want)
		}
	}
}
