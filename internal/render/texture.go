package render

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v3.3-core/gl"
	"gocv.io/x/gocv"
)

// ErrUnsupportedFrame is returned for frames that are not 8-bit BGR.
var ErrUnsupportedFrame = errors.New("frame must be 8-bit BGR")

// Texture holds the video frame on the GPU.
type Texture struct {
	id            uint32
	width, height int
}

// NewTexture allocates a texture for width x height BGR frames.
func NewTexture(width, height int) *Texture {
	t := &Texture{}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	t.allocate(width, height)
	return t
}

func (t *Texture) allocate(width, height int) {
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGB8, int32(width), int32(height), 0, gl.BGR, gl.UNSIGNED_BYTE, nil)
	t.width, t.height = width, height
}

// Size returns the allocated texture size.
func (t *Texture) Size() (int, int) {
	return t.width, t.height
}

// Update uploads frame, reallocating storage if its size changed. The
// frame must already be flipped for GL.
func (t *Texture) Update(frame gocv.Mat) error {
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: type %v", ErrUnsupportedFrame, frame.Type())
	}
	if !frame.IsContinuous() {
		frame = frame.Clone()
		defer frame.Close()
	}
	data, err := frame.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("frame data: %w", err)
	}

	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	if frame.Cols() != t.width || frame.Rows() != t.height {
		t.allocate(frame.Cols(), frame.Rows())
	}
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(t.width), int32(t.height), gl.BGR, gl.UNSIGNED_BYTE, gl.Ptr(data))
	return nil
}

// Bind binds the texture to the given texture unit.
func (t *Texture) Bind(unit uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
}

// Delete releases the texture.
func (t *Texture) Delete() {
	gl.DeleteTextures(1, &t.id)
}
