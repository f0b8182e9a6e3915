package capture

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/ayusman/arcam/internal/calib"
	"github.com/ayusman/arcam/internal/pose"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"
)

// Synthetic scene defaults
const (
	SyntheticWidth  = 1920
	SyntheticHeight = 1080
	boardPixels     = 40 // pixels per square in the board texture
	boardMargin     = 1  // white squares around the checker area
)

// SyntheticBackground is the color outside the rendered board.
var SyntheticBackground = color.RGBA{R: 96, G: 96, B: 96, A: 255}

// Script returns the marker pose for a frame index.
type Script func(frame int) pose.Pose

// CenteredPose returns a pose that rotates the marker by rvec about its
// center and places that center on the optical axis at the given depth.
func CenteredPose(m calib.Marker, rvec [3]float64, depth float64) pose.Pose {
	p := pose.FromAxisAngle(rvec, [3]float64{})
	c := p.Apply(m.Center())
	p.T = [3]float64{-c.X, -c.Y, depth - c.Z}
	return p
}

// Wobble is the default script: the board tilts back and forth half a
// meter in front of the camera.
func Wobble(m calib.Marker) Script {
	return func(frame int) pose.Pose {
		phase := math.Sin(2 * math.Pi * float64(frame) / 120)
		return CenteredPose(m, [3]float64{0.3 * phase, 0.2 * phase, 0.05}, 0.5)
	}
}

// SyntheticCamera renders a checkerboard through an ideal pinhole camera at
// the pose given by a script. Lens distortion is not simulated, so the
// calibration used to solve against it should have no distortion either.
type SyntheticCamera struct {
	calib  calib.Calibration
	marker calib.Marker
	script Script

	mu      sync.Mutex
	running bool
	width   int
	height  int
	frame   int
	last    pose.Pose
	board   gocv.Mat
}

// NewSyntheticCamera creates a synthetic source. A nil script uses Wobble.
func NewSyntheticCamera(c calib.Calibration, m calib.Marker, script Script) *SyntheticCamera {
	if script == nil {
		script = Wobble(m)
	}
	return &SyntheticCamera{
		calib:  c.WithoutDistortion(),
		marker: m,
		script: script,
		width:  SyntheticWidth,
		height: SyntheticHeight,
	}
}

func (c *SyntheticCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	if err := c.marker.Validate(); err != nil {
		return err
	}
	c.board = RenderBoard(c.marker)
	c.frame = 0
	c.running = true
	return nil
}

func (c *SyntheticCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.running = false
	return c.board.Close()
}

// Read renders the next scripted frame into dst.
func (c *SyntheticCamera) Read(dst *gocv.Mat) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return ErrCameraNotOpen
	}

	p := c.script(c.frame)
	c.frame++
	c.last = p

	return warpBoard(c.board, dst, c.calib, c.marker, p, c.width, c.height)
}

// SetResolution changes the rendered frame size.
func (c *SyntheticCamera) SetResolution(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
}

func (c *SyntheticCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// LastPose returns the ground truth pose of the most recent frame.
func (c *SyntheticCamera) LastPose() pose.Pose {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// RenderBoard draws the flat checkerboard texture for m, including a white
// quiet zone. The caller is responsible for closing the returned Mat.
func RenderBoard(m calib.Marker) gocv.Mat {
	squaresX := m.Cols + 1 + 2*boardMargin
	squaresY := m.Rows + 1 + 2*boardMargin

	board := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0),
		squaresY*boardPixels, squaresX*boardPixels, gocv.MatTypeCV8UC3)

	black := color.RGBA{A: 255}
	for j := 0; j <= m.Rows; j++ {
		for i := 0; i <= m.Cols; i++ {
			if (i+j)%2 != 0 {
				continue
			}
			x := (i + boardMargin) * boardPixels
			y := (j + boardMargin) * boardPixels
			// Rectangle corners are inclusive.
			gocv.Rectangle(&board, image.Rect(x, y, x+boardPixels-1, y+boardPixels-1), black, -1)
		}
	}
	return board
}

// boardToMarker maps board texture pixels to marker plane coordinates
// (x, y, 1). Inner corner (0, 0) sits on the pixel boundary after the first
// checker square.
func boardToMarker(m calib.Marker) *mat.Dense {
	s := m.Square / boardPixels
	off := (0.5/boardPixels - float64(boardMargin+1)) * m.Square
	return mat.NewDense(3, 3, []float64{
		s, 0, off,
		0, s, off,
		0, 0, 1,
	})
}

// Homography returns the board-texture-to-image homography K [r1 r2 t] A.
func Homography(c calib.Calibration, m calib.Marker, p pose.Pose) *mat.Dense {
	rt := mat.NewDense(3, 3, []float64{
		p.R[0][0], p.R[0][1], p.T[0],
		p.R[1][0], p.R[1][1], p.T[1],
		p.R[2][0], p.R[2][1], p.T[2],
	})

	var krt, h mat.Dense
	krt.Mul(c.K(), rt)
	h.Mul(&krt, boardToMarker(m))
	return &h
}

func warpBoard(board gocv.Mat, dst *gocv.Mat, c calib.Calibration, m calib.Marker, p pose.Pose, w, h int) error {
	if p.T[2] <= 0 {
		return fmt.Errorf("%w: marker behind camera", ErrEmptyFrame)
	}

	hd := Homography(c, m, p)
	hm := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer hm.Close()
	for r := 0; r < 3; r++ {
		for col := 0; col < 3; col++ {
			hm.SetDoubleAt(r, col, hd.At(r, col))
		}
	}

	gocv.WarpPerspectiveWithParams(board, dst, hm, image.Pt(w, h),
		gocv.InterpolationLinear, gocv.BorderConstant, SyntheticBackground)
	return nil
}

// RenderCheckerboard renders m at pose p into dst as a w x h frame.
func RenderCheckerboard(dst *gocv.Mat, c calib.Calibration, m calib.Marker, p pose.Pose, w, h int) error {
	board := RenderBoard(m)
	defer board.Close()
	return warpBoard(board, dst, c, m, p, w, h)
}
