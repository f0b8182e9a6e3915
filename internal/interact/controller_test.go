package interact

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestController_Keys(t *testing.T) {
	tests := []struct {
		name string
		keys []Key
		want FilterMode
	}{
		{name: "default", want: FilterNone},
		{name: "cpu gray", keys: []Key{Key2}, want: FilterCPUGray},
		{name: "cpu edge", keys: []Key{Key3}, want: FilterCPUEdge},
		{name: "cpu pixelate", keys: []Key{Key4}, want: FilterCPUPixelate},
		{name: "gpu gray", keys: []Key{KeyG}, want: FilterGPUGray},
		{name: "gpu edge", keys: []Key{KeyE}, want: FilterGPUEdge},
		{name: "gpu pixelate", keys: []Key{KeyP}, want: FilterGPUPixelate},
		{name: "back to none", keys: []Key{KeyG, Key1}, want: FilterNone},
		{name: "unknown ignored", keys: []Key{Key3, KeyUnknown}, want: FilterCPUEdge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController()
			for _, k := range tt.keys {
				c.KeyPressed(k)
			}
			if c.Filter != tt.want {
				t.Errorf("Filter = %v, want %v", c.Filter, tt.want)
			}
		})
	}
}

func TestController_TransformToggles(t *testing.T) {
	c := NewController()
	if c.TransformMode() != TransformsOff {
		t.Fatalf("TransformMode() = %q, want off", c.TransformMode())
	}

	c.KeyPressed(KeyT)
	if c.TransformMode() != TransformsCPU {
		t.Errorf("after T: TransformMode() = %q, want cpu", c.TransformMode())
	}
	if c.CPUTransforms() {
		t.Error("CPUTransforms() should be false for the identity state")
	}

	c.State.Scale = 2
	if !c.CPUTransforms() {
		t.Error("CPUTransforms() = false with a scaled state")
	}

	c.KeyPressed(KeyC)
	if c.TransformMode() != TransformsGPU || !c.GPUTransforms() || c.CPUTransforms() {
		t.Errorf("after C: mode %q gpu=%v cpu=%v", c.TransformMode(), c.GPUTransforms(), c.CPUTransforms())
	}

	c.KeyPressed(KeyR)
	if !c.State.IsIdentity() {
		t.Errorf("after R: state %+v, want identity", c.State)
	}

	c.KeyPressed(KeyEscape)
	if !c.ShouldClose() {
		t.Error("Escape should request close")
	}
}

func TestController_Drag(t *testing.T) {
	c := NewController()

	c.CursorMoved(50, 50, false, 100, 100)
	if !c.State.IsIdentity() {
		t.Fatal("cursor motion without a pressed button changed the state")
	}

	c.MouseButton(true, 10, 20)
	c.CursorMoved(30, 10, false, 100, 200)
	if math.Abs(c.State.TranslateU-0.2) > 1e-9 || math.Abs(c.State.TranslateV+0.05) > 1e-9 {
		t.Errorf("translate = (%g, %g), want (0.2, -0.05)", c.State.TranslateU, c.State.TranslateV)
	}

	c.CursorMoved(40, 10, true, 100, 200)
	if math.Abs(c.State.Rotation-10*RotateDegreesPerPixel) > 1e-9 {
		t.Errorf("Rotation = %g, want %g", c.State.Rotation, 10*RotateDegreesPerPixel)
	}

	c.MouseButton(false, 40, 10)
	before := c.State
	c.CursorMoved(90, 90, false, 100, 200)
	if c.State != before {
		t.Error("cursor motion after release changed the state")
	}
}

func TestController_ScrollKeepsCursorFixed(t *testing.T) {
	tests := []struct {
		name   string
		start  TransformState
		scroll []float64
		x, y   float64
	}{
		{name: "zoom in at center", start: IdentityState(), scroll: []float64{1}, x: 400, y: 300},
		{name: "zoom in at corner", start: IdentityState(), scroll: []float64{2}, x: 10, y: 590},
		{name: "zoom out", start: IdentityState(), scroll: []float64{-3}, x: 700, y: 100},
		{
			name:   "rotated and translated",
			start:  TransformState{TranslateU: 0.1, TranslateV: -0.05, Scale: 1.3, Rotation: 25, PivotU: 0.2, PivotV: 0.7},
			scroll: []float64{1, 1, -1},
			x:      250, y: 420,
		},
	}

	const winW, winH = 800, 600
	const fw, fh = 1280, 720

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController()
			c.SetFrameSize(fw, fh)
			c.State = tt.start

			cursor := mgl32.Vec3{float32(tt.x / winW * fw), float32(tt.y / winH * fh), 1}
			content := c.State.PixelMatrix(fw, fh).Inv().Mul3x1(cursor)

			for _, dy := range tt.scroll {
				c.Scrolled(dy, tt.x, tt.y, winW, winH)
			}

			got := c.State.PixelMatrix(fw, fh).Mul3x1(content)
			if !got.ApproxEqualThreshold(cursor, 0.05) {
				t.Errorf("content under cursor moved from %v to %v", cursor, got)
			}

			steps := 0.0
			for _, dy := range tt.scroll {
				steps += dy
			}
			want := tt.start.Scale * math.Pow(ZoomStep, steps)
			if math.Abs(c.State.Scale-want) > 1e-9 {
				t.Errorf("Scale = %g, want %g", c.State.Scale, want)
			}
		})
	}
}

func TestController_ScrollClampsScale(t *testing.T) {
	c := NewController()
	for i := 0; i < 200; i++ {
		c.Scrolled(1, 10, 10, 100, 100)
	}
	if c.State.Scale != MaxScale {
		t.Errorf("Scale = %g, want %g", c.State.Scale, MaxScale)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name, backend string
		want          FilterMode
		wantErr       bool
	}{
		{"none", "cpu", FilterNone, false},
		{"", "", FilterNone, false},
		{"gray", "cpu", FilterCPUGray, false},
		{"grayscale", "gpu", FilterGPUGray, false},
		{"edge", "", FilterCPUEdge, false},
		{"Edges", "GPU", FilterGPUEdge, false},
		{"pixelate", "gpu", FilterGPUPixelate, false},
		{"blur", "cpu", FilterNone, true},
		{"gray", "tpu", FilterNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.backend, func(t *testing.T) {
			got, err := ParseFilter(tt.name, tt.backend)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFilter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownFilter) {
				t.Errorf("error %v does not wrap ErrUnknownFilter", err)
			}
			if got != tt.want {
				t.Errorf("ParseFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterMode_Names(t *testing.T) {
	if got := FilterGPUEdge.String(); got != "gpu edge" {
		t.Errorf("String() = %q", got)
	}
	if got := FilterCPUPixelate.Name(); got != "pixelate" {
		t.Errorf("Name() = %q", got)
	}
	if FilterNone.Backend() != "cpu" || FilterGPUGray.Backend() != "gpu" {
		t.Error("unexpected backend names")
	}
}
