package app

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"gocv.io/x/gocv"

	"github.com/ayusman/arcam/internal/bench"
	"github.com/ayusman/arcam/internal/calib"
	"github.com/ayusman/arcam/internal/capture"
	"github.com/ayusman/arcam/internal/detector"
	"github.com/ayusman/arcam/internal/pose"
	"github.com/ayusman/arcam/internal/process"
	"github.com/ayusman/arcam/internal/server"
)

var axisColors = [3]color.RGBA{
	{R: 255, A: 255}, // x
	{G: 255, A: 255}, // y
	{B: 255, A: 255}, // z
}

// Run executes the render loop until the window or controller asks to
// close, the benchmark frame budget is reached, or the camera fails.
//
// Each iteration captures, detects, solves, composes the overlay, filters
// and transforms, uploads, draws, swaps and polls input. An empty frame
// skips everything up to the upload and redraws the previous texture.
func (a *App) Run() error {
	for !a.display.ShouldClose() && !a.ctrl.ShouldClose() {
		if err := a.Step(); err != nil {
			return err
		}
		if a.recorder != nil && a.recorder.Done() {
			log.Printf("benchmark complete: captured %d frames", a.recorder.Count())
			return nil
		}
	}
	return nil
}

// Step runs one loop iteration. It returns an error only when the camera
// can no longer deliver frames.
func (a *App) Step() error {
	var timing bench.Frame
	start := time.Now()

	err := a.camera.Read(&a.frame)
	timing.Capture = time.Since(start)

	empty := errors.Is(err, capture.ErrEmptyFrame)
	if err != nil && !empty {
		return fmt.Errorf("camera read: %w", err)
	}

	var (
		tracked bool
		p       pose.Pose
	)
	if !empty {
		a.frames++
		w, h := a.frame.Cols(), a.frame.Rows()
		timing.Width, timing.Height = w, h
		if w != a.width || h != a.height {
			log.Printf("frame size changed to %dx%d", w, h)
			if err := a.resize(w, h); err != nil {
				return err
			}
		}

		var corners detector.Corners
		corners, tracked = a.detector.Detect(&a.frame)
		if tracked {
			p, err = a.solver.Solve(a.object, corners)
			if err != nil {
				log.Printf("pose: %v", err)
				tracked = false
			}
		}
		a.setTracking(tracked)

		if tracked && a.config.DrawAxes {
			a.drawAxes(p)
		}

		t := a.stage.Apply(&a.frame, a.ctrl.Filter, a.ctrl.State, a.ctrl.CPUTransforms())
		timing.Process, timing.Transform = t.Process, t.Transform

		a.publish(tracked, corners, p)

		upload := time.Now()
		process.FlipForUpload(a.frame, &a.flipped)
		if err := a.display.Upload(a.flipped); err != nil {
			log.Printf("upload: %v", err)
		}
		timing.Upload = time.Since(upload)
	}

	draw := time.Now()
	a.display.Draw(a.scene(tracked, p))
	a.display.Swap()
	timing.Draw = time.Since(draw)
	timing.Total = time.Since(start)

	a.display.PollEvents()

	if a.recorder != nil {
		if err := a.recorder.Record(timing); err != nil {
			log.Printf("benchmark: %v", err)
		}
	}
	return nil
}

func (a *App) setTracking(found bool) {
	if found == a.tracking {
		return
	}
	a.tracking = found
	if found {
		log.Println("pattern found")
	} else {
		log.Println("pattern lost")
	}
}

// scene assembles the draw state for the current controller settings.
func (a *App) scene(tracked bool, p pose.Pose) Scene {
	s := Scene{
		Filter:           a.ctrl.Filter,
		TextureTransform: mgl32.Ident3(),
		OverlayTransform: mgl32.Ident4(),
		Projection:       a.projection,
	}

	if a.ctrl.TransformsEnabled {
		// Overlays follow the image whichever side transforms it.
		s.OverlayTransform = a.ctrl.State.NDCMatrix(a.width, a.height)
	}
	if a.ctrl.GPUTransforms() {
		s.TextureTransform = a.ctrl.State.TextureMatrix(a.width, a.height)
	}

	if tracked && a.config.DrawCube {
		model := CubeModel(p, a.config.Marker)
		s.Cube = &model
	}
	return s
}

// CubeModel places the unit cube on the board center, CubeSquares squares
// wide, rising toward the camera.
func CubeModel(p pose.Pose, m calib.Marker) mgl32.Mat4 {
	c := m.Center()
	size := float32(CubeSquares * m.Square)
	return p.ModelMatrix().
		Mul4(mgl32.Translate3D(float32(c.X), float32(c.Y), float32(c.Z))).
		Mul4(mgl32.Scale3D(size, size, size))
}

// AxisPoints returns the origin and the ends of the x, y and z axes in
// marker coordinates. The z axis points toward the camera.
func AxisPoints(m calib.Marker) []calib.Point3 {
	l := AxisSquares * m.Square
	return []calib.Point3{{}, {X: l}, {Y: l}, {Z: -l}}
}

// drawAxes draws the marker axes onto the frame before any filter runs.
func (a *App) drawAxes(p pose.Pose) {
	pts := p.Project(a.config.Calibration, AxisPoints(a.config.Marker))
	origin := toPoint(pts[0])
	for i := 1; i < len(pts); i++ {
		gocv.Line(&a.frame, origin, toPoint(pts[i]), axisColors[i-1], AxisWidth)
	}
}

func toPoint(p calib.Point2) image.Point {
	return image.Pt(int(p.X+0.5), int(p.Y+0.5))
}

// publish hands the processed frame to the monitor server when one is
// attached and its interval has elapsed.
func (a *App) publish(tracked bool, corners detector.Corners, p pose.Pose) {
	if a.feed == nil || !a.feed.Due(time.Now()) {
		return
	}
	update := server.PoseUpdate{
		Frame:  a.frames,
		Found:  tracked,
		Filter: a.ctrl.Filter.String(),
	}
	if tracked {
		update.Corners = corners
		update.Pose = &p
	}
	if err := a.feed.Publish(a.frame, update); err != nil {
		log.Printf("monitor: %v", err)
	}
}
