package process

import (
	"time"

	"github.com/ayusman/arcam/internal/interact"
	"gocv.io/x/gocv"
)

// Timings are the durations of one Apply call.
type Timings struct {
	Process   time.Duration
	Transform time.Duration
}

// Stage runs the CPU filter and transforms on a frame, reusing one scratch
// buffer across frames.
type Stage struct {
	Block   int
	scratch gocv.Mat
}

// NewStage creates a Stage. Call Close to release its buffer.
func NewStage() *Stage {
	return &Stage{Block: DefaultPixelBlock, scratch: gocv.NewMat()}
}

// Apply filters frame in place for CPU filter modes and, when cpuTransforms
// is set, scales about the pivot, rotates about the center and translates.
// GPU modes leave the frame untouched. The Mat header behind frame may be
// exchanged with the stage's scratch buffer.
func (s *Stage) Apply(frame *gocv.Mat, mode interact.FilterMode, state interact.TransformState, cpuTransforms bool) Timings {
	var t Timings

	start := time.Now()
	switch mode {
	case interact.FilterCPUGray:
		Grayscale(*frame, &s.scratch)
		s.swap(frame)
	case interact.FilterCPUEdge:
		Edges(*frame, &s.scratch)
		s.swap(frame)
	case interact.FilterCPUPixelate:
		Pixelate(*frame, &s.scratch, s.Block)
		s.swap(frame)
	}
	t.Process = time.Since(start)

	if !cpuTransforms {
		return t
	}

	start = time.Now()
	w, h := frame.Cols(), frame.Rows()
	if state.HasScale() {
		px, py := state.PivotPixels(w, h)
		Scale(*frame, &s.scratch, state.Scale, state.Scale, px, py)
		s.swap(frame)
	}
	if state.HasRotation() {
		Rotate(*frame, &s.scratch, state.Rotation)
		s.swap(frame)
	}
	if state.HasTranslation() {
		dx, dy := state.TranslationPixels(w, h)
		Translate(*frame, &s.scratch, dx, dy)
		s.swap(frame)
	}
	t.Transform = time.Since(start)
	return t
}

func (s *Stage) swap(frame *gocv.Mat) {
	*frame, s.scratch = s.scratch, *frame
}

// Close releases the scratch buffer.
func (s *Stage) Close() error {
	return s.scratch.Close()
}
