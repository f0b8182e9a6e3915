// Package render draws the video background and overlays with OpenGL 3.3
// in a GLFW window. Every function must be called on the thread that owns
// the GL context.
package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrShaderNotFound is returned when a shader file does not exist.
	ErrShaderNotFound = errors.New("shader file not found")
	// ErrEmptyShader is returned when a shader file has no source.
	ErrEmptyShader = errors.New("shader file is empty")
	// ErrShaderCompile is returned when compiling or linking fails.
	ErrShaderCompile = errors.New("shader compile failed")
)

// readShader loads GLSL source from path.
func readShader(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrShaderNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("read shader %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyShader, path)
	}
	return string(data), nil
}

// Program is a linked shader program with cached uniform locations.
type Program struct {
	id       uint32
	name     string
	uniforms map[string]int32
}

// LoadProgram compiles dir/vert and dir/frag into a program.
func LoadProgram(dir, vert, frag string) (*Program, error) {
	vsrc, err := readShader(filepath.Join(dir, vert))
	if err != nil {
		return nil, err
	}
	fsrc, err := readShader(filepath.Join(dir, frag))
	if err != nil {
		return nil, err
	}

	vs, err := compileShader(vsrc, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", vert, err)
	}
	defer gl.DeleteShader(vs)
	fs, err := compileShader(fsrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", frag, err)
	}
	defer gl.DeleteShader(fs)

	id := gl.CreateProgram()
	gl.AttachShader(id, vs)
	gl.AttachShader(id, fs)
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		msg := programLog(id)
		gl.DeleteProgram(id)
		return nil, fmt.Errorf("%w: link %s+%s: %s", ErrShaderCompile, vert, frag, msg)
	}

	return &Program{id: id, name: frag, uniforms: make(map[string]int32)}, nil
}

func compileShader(source string, kind uint32) (uint32, error) {
	shader := gl.CreateShader(kind)

	csrc, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var length int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &length)
		msg := strings.Repeat("\x00", int(length+1))
		gl.GetShaderInfoLog(shader, length, nil, gl.Str(msg))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%w: %s", ErrShaderCompile, strings.TrimRight(msg, "\x00"))
	}
	return shader, nil
}

func programLog(id uint32) string {
	var length int32
	gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &length)
	msg := strings.Repeat("\x00", int(length+1))
	gl.GetProgramInfoLog(id, length, nil, gl.Str(msg))
	return strings.TrimRight(msg, "\x00")
}

// Use makes the program current.
func (p *Program) Use() {
	gl.UseProgram(p.id)
}

func (p *Program) location(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

// SetMat4 sets a mat4 uniform. The program must be in use.
func (p *Program) SetMat4(name string, m mgl32.Mat4) {
	gl.UniformMatrix4fv(p.location(name), 1, false, &m[0])
}

// SetMat3 sets a mat3 uniform. The program must be in use.
func (p *Program) SetMat3(name string, m mgl32.Mat3) {
	gl.UniformMatrix3fv(p.location(name), 1, false, &m[0])
}

// SetInt sets an int or sampler uniform. The program must be in use.
func (p *Program) SetInt(name string, v int32) {
	gl.Uniform1i(p.location(name), v)
}

// SetFloat sets a float uniform. The program must be in use.
func (p *Program) SetFloat(name string, v float32) {
	gl.Uniform1f(p.location(name), v)
}

// SetVec2 sets a vec2 uniform. The program must be in use.
func (p *Program) SetVec2(name string, x, y float32) {
	gl.Uniform2f(p.location(name), x, y)
}

// Delete releases the program.
func (p *Program) Delete() {
	gl.DeleteProgram(p.id)
}
