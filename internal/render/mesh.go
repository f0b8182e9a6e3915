package render

import (
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Renderable is anything the renderer can place with a model-view-projection
// matrix and draw.
type Renderable interface {
	Bind()
	SetMVP(mvp mgl32.Mat4)
	Draw()
}

// quadVertices is the full-screen quad: x, y, u, v. The texture coordinate
// origin is bottom-left, matching the flipped upload.
var quadVertices = []float32{
	-1, -1, 0, 0,
	1, -1, 1, 0,
	1, 1, 1, 1,
	-1, 1, 0, 1,
}

var quadIndices = []uint32{0, 1, 2, 2, 3, 0}

// cubeVertices is a unit cube centered on the marker plane in x and y that
// rises from z=0 to z=-1, toward the camera: x, y, z, r, g, b.
var cubeVertices = []float32{
	-0.5, -0.5, 0, 1, 0, 0,
	0.5, -0.5, 0, 0, 1, 0,
	0.5, 0.5, 0, 0, 0, 1,
	-0.5, 0.5, 0, 1, 1, 0,
	-0.5, -0.5, -1, 1, 0, 1,
	0.5, -0.5, -1, 0, 1, 1,
	0.5, 0.5, -1, 1, 1, 1,
	-0.5, 0.5, -1, 0.2, 0.2, 0.2,
}

var cubeIndices = []uint32{
	0, 1, 2, 2, 3, 0, // base
	4, 5, 6, 6, 7, 4, // top
	0, 1, 5, 5, 4, 0,
	1, 2, 6, 6, 5, 1,
	2, 3, 7, 7, 6, 2,
	3, 0, 4, 4, 7, 3,
}

// Mesh is indexed geometry drawn with one program.
type Mesh struct {
	program       *Program
	vao, vbo, ebo uint32
	count         int32
}

// newMesh uploads interleaved vertices whose attributes have the given
// component counts, bound to locations 0, 1, ...
func newMesh(program *Program, vertices []float32, indices []uint32, layout ...int32) *Mesh {
	m := &Mesh{program: program, count: int32(len(indices))}

	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)

	var stride int32
	for _, n := range layout {
		stride += n * 4
	}
	var offset uintptr
	for i, n := range layout {
		gl.VertexAttribPointerWithOffset(uint32(i), n, gl.FLOAT, false, stride, offset)
		gl.EnableVertexAttribArray(uint32(i))
		offset += uintptr(n * 4)
	}

	gl.BindVertexArray(0)
	return m
}

// NewQuad creates the video background quad.
func NewQuad(program *Program) *Mesh {
	return newMesh(program, quadVertices, quadIndices, 2, 2)
}

// NewCube creates the vertex-colored marker cube.
func NewCube(program *Program) *Mesh {
	return newMesh(program, cubeVertices, cubeIndices, 3, 3)
}

// SetProgram switches the program used by Bind.
func (m *Mesh) SetProgram(p *Program) {
	m.program = p
}

// Program returns the current program.
func (m *Mesh) Program() *Program {
	return m.program
}

func (m *Mesh) Bind() {
	m.program.Use()
	gl.BindVertexArray(m.vao)
}

func (m *Mesh) SetMVP(mvp mgl32.Mat4) {
	m.program.SetMat4("uMVP", mvp)
}

func (m *Mesh) Draw() {
	gl.DrawElements(gl.TRIANGLES, m.count, gl.UNSIGNED_INT, nil)
}

// Delete releases the GPU buffers.
func (m *Mesh) Delete() {
	gl.DeleteBuffers(1, &m.ebo)
	gl.DeleteBuffers(1, &m.vbo)
	gl.DeleteVertexArrays(1, &m.vao)
}
