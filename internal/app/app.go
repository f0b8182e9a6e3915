// Package app runs the capture, detect, process and draw loop that
// composites marker overlays onto the camera image.
package app

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl32"
	"gocv.io/x/gocv"

	"github.com/ayusman/arcam/internal/bench"
	"github.com/ayusman/arcam/internal/calib"
	"github.com/ayusman/arcam/internal/capture"
	"github.com/ayusman/arcam/internal/detector"
	"github.com/ayusman/arcam/internal/interact"
	"github.com/ayusman/arcam/internal/pose"
	"github.com/ayusman/arcam/internal/process"
	"github.com/ayusman/arcam/internal/projection"
	"github.com/ayusman/arcam/internal/server"
)

// Overlay geometry in marker squares.
const (
	CubeSquares = 2
	AxisSquares = 3
	AxisWidth   = 5
)

// Scene is everything the display needs to draw one frame.
type Scene struct {
	Filter interact.FilterMode
	// TextureTransform maps output texture coordinates to sampled ones.
	TextureTransform mgl32.Mat3
	// OverlayTransform is applied to overlay clip space so overlays follow
	// the transformed image.
	OverlayTransform mgl32.Mat4
	Projection       mgl32.Mat4
	// Cube is the cube model matrix, or nil when no marker is tracked.
	Cube *mgl32.Mat4
}

// Display is the window the loop draws into. All methods are called on
// the loop's thread.
type Display interface {
	// Setup creates the window and GPU resources for width x height frames.
	Setup(width, height int) error
	// Upload replaces the video texture with a frame already flipped for GL.
	Upload(frame gocv.Mat) error
	Draw(scene Scene)
	Swap()
	// PollEvents runs input callbacks.
	PollEvents()
	ShouldClose() bool
	Close() error
}

// Config holds configuration options for the application.
type Config struct {
	Calibration calib.Calibration
	Marker      calib.Marker
	// Width and Height request a capture size; zero keeps the native one.
	Width, Height int
	Filter        interact.FilterMode
	// Transforms is "off", "cpu" or "gpu".
	Transforms string
	// Preset is the transform state applied when transforms are enabled.
	Preset   interact.TransformState
	DrawCube bool
	DrawAxes bool
}

// Deps are the collaborators of App. Recorder and Feed are optional. The
// App takes ownership and closes everything but Feed and Controller.
type Deps struct {
	Camera     capture.Camera
	Detector   detector.Detector
	Display    Display
	Controller *interact.Controller
	Recorder   *bench.Recorder
	Feed       *server.Feed
}

// App is the render orchestrator. It is single threaded: Start, Run and
// Close must be called from the thread that owns the GL context.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	display  Display
	ctrl     *interact.Controller
	recorder *bench.Recorder
	feed     *server.Feed

	solver *pose.Solver
	stage  *process.Stage
	object []calib.Point3

	frame   gocv.Mat
	flipped gocv.Mat

	width, height int
	projection    mgl32.Mat4
	frames        int
	tracking      bool
	started       bool
	closed        bool
}

// New creates a new App. It fails if the calibration or marker is invalid.
func New(config Config, deps Deps) (*App, error) {
	if deps.Camera == nil || deps.Detector == nil || deps.Display == nil {
		return nil, errors.New("app: camera, detector and display are required")
	}
	if err := config.Marker.Validate(); err != nil {
		return nil, err
	}
	solver, err := pose.NewSolver(config.Calibration)
	if err != nil {
		return nil, err
	}
	if deps.Controller == nil {
		deps.Controller = interact.NewController()
	}

	return &App{
		config:   config,
		camera:   deps.Camera,
		detector: deps.Detector,
		display:  deps.Display,
		ctrl:     deps.Controller,
		recorder: deps.Recorder,
		feed:     deps.Feed,
		solver:   solver,
		stage:    process.NewStage(),
		object:   config.Marker.ObjectPoints(),
		frame:    gocv.NewMat(),
		flipped:  gocv.NewMat(),
	}, nil
}

// Controller returns the input controller.
func (a *App) Controller() *interact.Controller {
	return a.ctrl
}

// Frames returns the number of loop iterations that captured a frame.
func (a *App) Frames() int {
	return a.frames
}

// Projection returns the current projection matrix.
func (a *App) Projection() mgl32.Mat4 {
	return a.projection
}

// Start opens the camera, reads the first frame and prepares the display
// and projection from its size. Any failure is fatal for the program.
func (a *App) Start() error {
	if a.config.Width > 0 && a.config.Height > 0 {
		a.camera.SetResolution(a.config.Width, a.config.Height)
	}
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	a.started = true
	log.Println("camera opened")

	if err := a.camera.Read(&a.frame); err != nil {
		return fmt.Errorf("read first frame: %w", err)
	}
	w, h := a.frame.Cols(), a.frame.Rows()

	if err := a.resize(w, h); err != nil {
		return err
	}
	if err := a.display.Setup(w, h); err != nil {
		return fmt.Errorf("display setup: %w", err)
	}

	a.ctrl.Filter = a.config.Filter
	a.ctrl.TransformsEnabled = a.config.Transforms == interact.TransformsCPU || a.config.Transforms == interact.TransformsGPU
	a.ctrl.TransformsOnGPU = a.config.Transforms == interact.TransformsGPU
	if a.ctrl.TransformsEnabled {
		a.ctrl.State = a.config.Preset
	}

	log.Printf("frame size %dx%d, filter: %s, transforms: %s", w, h, a.ctrl.Filter, a.ctrl.TransformMode())
	return nil
}

// resize rebuilds the projection for a new frame size.
func (a *App) resize(w, h int) error {
	proj, err := projection.Build(projection.FromCalibration(a.config.Calibration, w, h, projection.DefaultNear, projection.DefaultFar))
	if err != nil {
		return fmt.Errorf("build projection: %w", err)
	}
	a.projection = proj
	a.width, a.height = w, h
	a.ctrl.SetFrameSize(w, h)
	return nil
}

// Close releases every resource in reverse order of acquisition. It is
// safe to call after a failed Start.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error

	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close recorder: %w", err))
		}
	}
	if err := a.display.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close display: %w", err))
	}
	if err := a.detector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close detector: %w", err))
	}
	if a.started {
		if err := a.camera.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close camera: %w", err))
		}
		a.started = false
	}

	a.stage.Close()
	a.solver.Close()
	a.frame.Close()
	a.flipped.Close()

	log.Println("closed")
	return errors.Join(errs...)
}
