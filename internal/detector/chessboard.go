package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Chessboard detects a checkerboard with OpenCV and refines the corners to
// sub-pixel accuracy. It reuses its buffers between frames and is not safe
// for concurrent use.
type Chessboard struct {
	config  Config
	gray    gocv.Mat
	corners gocv.Mat
}

// NewChessboard creates a checkerboard detector.
func NewChessboard(config Config) (*Chessboard, error) {
	if err := config.Marker.Validate(); err != nil {
		return nil, err
	}
	def := DefaultConfig()
	if config.WindowSize <= 0 {
		config.WindowSize = def.WindowSize
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = def.MaxIterations
	}
	if config.Epsilon <= 0 {
		config.Epsilon = def.Epsilon
	}

	return &Chessboard{
		config:  config,
		gray:    gocv.NewMat(),
		corners: gocv.NewMat(),
	}, nil
}

// Config returns the detector configuration.
func (d *Chessboard) Config() Config {
	return d.config
}

func (d *Chessboard) flags() gocv.CalibCBFlag {
	flags := gocv.CalibCBAdaptiveThresh | gocv.CalibCBNormalizeImage
	if d.config.FastCheck {
		flags |= gocv.CalibCBFastCheck
	}
	return flags
}

// Detect finds the marker corners in frame.
func (d *Chessboard) Detect(frame *gocv.Mat) (Corners, bool) {
	if frame == nil || frame.Empty() {
		return nil, false
	}

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &d.gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&d.gray)
	}

	marker := d.config.Marker
	if !gocv.FindChessboardCorners(d.gray, marker.PatternSize(), &d.corners, d.flags()) {
		return nil, false
	}

	win := image.Pt(d.config.WindowSize, d.config.WindowSize)
	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, d.config.MaxIterations, d.config.Epsilon)
	gocv.CornerSubPix(d.gray, &d.corners, win, image.Pt(-1, -1), criteria)

	// A partial grid cannot be matched to the object points.
	if d.corners.Rows()*d.corners.Cols() != marker.Count() {
		return nil, false
	}

	corners := make(Corners, marker.Count())
	for i := range corners {
		v := d.corners.GetVecfAt(i, 0)
		corners[i].X = float64(v[0])
		corners[i].Y = float64(v[1])
	}
	return corners, true
}

// Close releases the detector buffers.
func (d *Chessboard) Close() error {
	if err := d.gray.Close(); err != nil {
		return err
	}
	return d.corners.Close()
}
