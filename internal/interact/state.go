// Package interact holds the interactive view transform and the input
// handlers that mutate it.
//
// Everything here runs on the render thread: input handlers are invoked
// synchronously while the window polls events, and the render loop reads
// the state once per frame. No locking is used.
package interact

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// TransformState is the user-controlled view transform in screen UV space
// (origin top-left, U right, V down). Content is scaled about the pivot,
// rotated about the image center, then translated.
type TransformState struct {
	TranslateU float64 `json:"translate_u"`
	TranslateV float64 `json:"translate_v"`
	Scale      float64 `json:"scale"`
	Rotation   float64 `json:"rotation"` // degrees, counter-clockwise on screen
	PivotU     float64 `json:"pivot_u"`
	PivotV     float64 `json:"pivot_v"`
}

// IdentityState returns the transform that leaves the frame unchanged.
func IdentityState() TransformState {
	return TransformState{Scale: 1, PivotU: 0.5, PivotV: 0.5}
}

const stateEpsilon = 1e-6

// IsIdentity reports whether applying the state would change nothing.
func (s TransformState) IsIdentity() bool {
	return !s.HasScale() && !s.HasRotation() && !s.HasTranslation()
}

// HasScale reports whether the scale differs from 1.
func (s TransformState) HasScale() bool {
	return math.Abs(s.Scale-1) > stateEpsilon
}

// HasRotation reports whether the rotation is non-zero.
func (s TransformState) HasRotation() bool {
	return math.Abs(s.Rotation) > stateEpsilon
}

// HasTranslation reports whether the translation is non-zero.
func (s TransformState) HasTranslation() bool {
	return math.Abs(s.TranslateU) > stateEpsilon || math.Abs(s.TranslateV) > stateEpsilon
}

// PivotPixels returns the scale pivot in pixels of a w x h frame.
func (s TransformState) PivotPixels(w, h int) (float64, float64) {
	return s.PivotU * float64(w), s.PivotV * float64(h)
}

// TranslationPixels returns the translation in pixels of a w x h frame.
func (s TransformState) TranslationPixels(w, h int) (float64, float64) {
	return s.TranslateU * float64(w), s.TranslateV * float64(h)
}

// scaleAbout returns the affine scale about (px, py).
func scaleAbout(sc, px, py float32) mgl32.Mat3 {
	return mgl32.Translate2D(px, py).
		Mul3(mgl32.Scale2D(sc, sc)).
		Mul3(mgl32.Translate2D(-px, -py))
}

// rotateAbout returns a rotation about (cx, cy) that appears
// counter-clockwise in y-down pixel coordinates.
func rotateAbout(deg, cx, cy float32) mgl32.Mat3 {
	return mgl32.Translate2D(cx, cy).
		Mul3(mgl32.HomogRotate2D(-mgl32.DegToRad(deg))).
		Mul3(mgl32.Translate2D(-cx, -cy))
}

// PixelMatrix maps content pixels to screen pixels for a w x h frame.
func (s TransformState) PixelMatrix(w, h int) mgl32.Mat3 {
	px, py := s.PivotPixels(w, h)
	tx, ty := s.TranslationPixels(w, h)
	cx, cy := float32(w)/2, float32(h)/2

	return mgl32.Translate2D(float32(tx), float32(ty)).
		Mul3(rotateAbout(float32(s.Rotation), cx, cy)).
		Mul3(scaleAbout(float32(s.Scale), float32(px), float32(py)))
}

// textureToPixel maps GL texture coordinates (bottom-left origin) of the
// flipped upload to pixels of the original frame.
func textureToPixel(w, h int) mgl32.Mat3 {
	return mgl32.Mat3FromRows(
		mgl32.Vec3{float32(w), 0, 0},
		mgl32.Vec3{0, -float32(h), float32(h)},
		mgl32.Vec3{0, 0, 1},
	)
}

// TextureMatrix maps an output texture coordinate on the video quad to the
// texture coordinate that must be sampled there. It is the GPU counterpart
// of applying PixelMatrix to the frame on the CPU.
func (s TransformState) TextureMatrix(w, h int) mgl32.Mat3 {
	b := textureToPixel(w, h)
	return b.Inv().Mul3(s.PixelMatrix(w, h).Inv()).Mul3(b)
}

// ndcToPixel maps NDC x/y to pixels of the frame.
func ndcToPixel(w, h int) mgl32.Mat3 {
	return mgl32.Mat3FromRows(
		mgl32.Vec3{float32(w) / 2, 0, float32(w) / 2},
		mgl32.Vec3{0, -float32(h) / 2, float32(h) / 2},
		mgl32.Vec3{0, 0, 1},
	)
}

// NDCMatrix applies the transform in clip space so overlays follow the
// transformed video.
func (s TransformState) NDCMatrix(w, h int) mgl32.Mat4 {
	e := ndcToPixel(w, h)
	a := e.Inv().Mul3(s.PixelMatrix(w, h)).Mul3(e)

	return mgl32.Mat4FromRows(
		mgl32.Vec4{a.At(0, 0), a.At(0, 1), 0, a.At(0, 2)},
		mgl32.Vec4{a.At(1, 0), a.At(1, 1), 0, a.At(1, 2)},
		mgl32.Vec4{0, 0, 1, 0},
		mgl32.Vec4{0, 0, 0, 1},
	)
}
