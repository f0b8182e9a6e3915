package render

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"gocv.io/x/gocv"

	"github.com/ayusman/arcam/internal/app"
	"github.com/ayusman/arcam/internal/interact"
)

// Renderer defaults
const (
	DefaultTitle         = "arcam"
	DefaultMaxWidth      = 1280
	DefaultMaxHeight     = 720
	DefaultEdgeThreshold = 0.2
	DefaultPixelBlock    = 10
)

var clearColor = mgl32.Vec3{0.1, 0.1, 0.2}

// Options configures the window and the GPU filters.
type Options struct {
	Title     string
	ShaderDir string
	// MaxWidth and MaxHeight bound the initial window size. The window
	// keeps the frame aspect ratio.
	MaxWidth, MaxHeight int
	VSync               bool
	EdgeThreshold       float32
	PixelBlock          float32
}

func (o *Options) setDefaults() {
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.ShaderDir == "" {
		o.ShaderDir = "shaders"
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = DefaultMaxHeight
	}
	if o.EdgeThreshold <= 0 {
		o.EdgeThreshold = DefaultEdgeThreshold
	}
	if o.PixelBlock <= 0 {
		o.PixelBlock = DefaultPixelBlock
	}
}

// Renderer is the GLFW window implementing app.Display. Input callbacks
// feed the shared controller during PollEvents.
type Renderer struct {
	opts Options
	ctrl *interact.Controller

	window  *glfw.Window
	glfwUp  bool
	video   *Program
	filters map[interact.FilterMode]*Program
	color   *Program
	quad    *Mesh
	cube    *Mesh
	texture *Texture

	frameW, frameH int
}

var _ app.Display = (*Renderer)(nil)

// NewRenderer creates a renderer. Nothing touches GL until Setup.
func NewRenderer(opts Options, ctrl *interact.Controller) *Renderer {
	opts.setDefaults()
	if ctrl == nil {
		ctrl = interact.NewController()
	}
	return &Renderer{opts: opts, ctrl: ctrl}
}

// Setup creates the window and context, loads the shaders and allocates the
// video texture for width x height frames.
func (r *Renderer) Setup(width, height int) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	r.glfwUp = true

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	ww, wh := FitWindow(width, height, r.opts.MaxWidth, r.opts.MaxHeight)
	window, err := glfw.CreateWindow(ww, wh, r.opts.Title, nil, nil)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	r.window = window
	window.MakeContextCurrent()
	if r.opts.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	if err := gl.Init(); err != nil {
		return fmt.Errorf("gl init: %w", err)
	}
	log.Printf("opengl %s", gl.GoStr(gl.GetString(gl.VERSION)))

	r.bindInput()

	if err := r.loadPrograms(); err != nil {
		return err
	}
	r.quad = NewQuad(r.video)
	r.cube = NewCube(r.color)
	r.texture = NewTexture(width, height)
	r.frameW, r.frameH = width, height

	fw, fh := window.GetFramebufferSize()
	gl.Viewport(0, 0, int32(fw), int32(fh))
	gl.ClearColor(clearColor[0], clearColor[1], clearColor[2], 0)
	return nil
}

func (r *Renderer) loadPrograms() error {
	var err error
	dir := r.opts.ShaderDir
	if r.video, err = LoadProgram(dir, "video.vert", "video.frag"); err != nil {
		return err
	}
	if r.color, err = LoadProgram(dir, "color.vert", "color.frag"); err != nil {
		return err
	}

	r.filters = make(map[interact.FilterMode]*Program)
	for mode, frag := range map[interact.FilterMode]string{
		interact.FilterGPUGray:     "gpu_grayscale.frag",
		interact.FilterGPUEdge:     "gpu_edge.frag",
		interact.FilterGPUPixelate: "gpu_pixelate.frag",
	} {
		p, err := LoadProgram(dir, "video.vert", frag)
		if err != nil {
			return err
		}
		r.filters[mode] = p
	}
	return nil
}

func (r *Renderer) bindInput() {
	r.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		if k := MapKey(key); k != interact.KeyUnknown {
			r.ctrl.KeyPressed(k)
		}
	})
	r.window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		x, y := w.GetCursorPos()
		r.ctrl.MouseButton(action == glfw.Press, x, y)
	})
	r.window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		shift := w.GetKey(glfw.KeyLeftShift) == glfw.Press || w.GetKey(glfw.KeyRightShift) == glfw.Press
		ww, wh := w.GetSize()
		r.ctrl.CursorMoved(x, y, shift, ww, wh)
	})
	r.window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		x, y := w.GetCursorPos()
		ww, wh := w.GetSize()
		r.ctrl.Scrolled(yoff, x, y, ww, wh)
	})
	r.window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		gl.Viewport(0, 0, int32(width), int32(height))
	})
}

// Upload replaces the video texture. The frame must already be flipped.
func (r *Renderer) Upload(frame gocv.Mat) error {
	if r.texture == nil {
		return errors.New("render: upload before setup")
	}
	if err := r.texture.Update(frame); err != nil {
		return err
	}
	r.frameW, r.frameH = r.texture.Size()
	return nil
}

// videoProgram returns the program that draws the background for a filter.
// CPU filters have already been applied to the frame.
func (r *Renderer) videoProgram(mode interact.FilterMode) *Program {
	if p, ok := r.filters[mode]; ok {
		return p
	}
	return r.video
}

// Draw renders the video quad and, when tracked, the cube.
func (r *Renderer) Draw(scene app.Scene) {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	gl.Disable(gl.DEPTH_TEST)
	program := r.videoProgram(scene.Filter)
	r.quad.SetProgram(program)
	r.texture.Bind(0)
	drawQuad(r.quad, program, scene.TextureTransform, r.frameW, r.frameH, r.opts)

	if scene.Cube == nil {
		return
	}
	gl.Enable(gl.DEPTH_TEST)
	Render(r.cube, CubeMVP(scene))
}

func drawQuad(quad *Mesh, p *Program, transform mgl32.Mat3, w, h int, opts Options) {
	quad.Bind()
	p.SetInt("uTexture", 0)
	p.SetMat3("uTransform", transform)
	if w > 0 && h > 0 {
		p.SetVec2("uTexelSize", 1/float32(w), 1/float32(h))
	}
	p.SetFloat("uEdgeThreshold", opts.EdgeThreshold)
	p.SetFloat("uPixelBlock", opts.PixelBlock)
	quad.SetMVP(mgl32.Ident4())
	quad.Draw()
}

// Render binds r, sets its matrix and draws it.
func Render(r Renderable, mvp mgl32.Mat4) {
	r.Bind()
	r.SetMVP(mvp)
	r.Draw()
}

// CubeMVP composes the cube matrix: the overlay transform is applied in
// clip space after projection.
func CubeMVP(scene app.Scene) mgl32.Mat4 {
	if scene.Cube == nil {
		return mgl32.Ident4()
	}
	return scene.OverlayTransform.Mul4(scene.Projection).Mul4(*scene.Cube)
}

// Swap presents the back buffer.
func (r *Renderer) Swap() {
	r.window.SwapBuffers()
}

// PollEvents processes pending window events and runs input callbacks.
func (r *Renderer) PollEvents() {
	glfw.PollEvents()
}

// ShouldClose reports whether the window was closed or Esc was pressed.
func (r *Renderer) ShouldClose() bool {
	if r.ctrl.ShouldClose() {
		return true
	}
	return r.window != nil && r.window.ShouldClose()
}

// Close releases GL resources, the window and GLFW.
func (r *Renderer) Close() error {
	if r.texture != nil {
		r.texture.Delete()
		r.texture = nil
	}
	if r.cube != nil {
		r.cube.Delete()
		r.cube = nil
	}
	if r.quad != nil {
		r.quad.Delete()
		r.quad = nil
	}
	for mode, p := range r.filters {
		p.Delete()
		delete(r.filters, mode)
	}
	if r.color != nil {
		r.color.Delete()
		r.color = nil
	}
	if r.video != nil {
		r.video.Delete()
		r.video = nil
	}
	if r.window != nil {
		r.window.Destroy()
		r.window = nil
	}
	if r.glfwUp {
		glfw.Terminate()
		r.glfwUp = false
	}
	return nil
}

// FitWindow scales a frame size down to fit within maxW x maxH, keeping its
// aspect ratio. Frames that already fit are returned unchanged.
func FitWindow(frameW, frameH, maxW, maxH int) (int, int) {
	if frameW <= 0 || frameH <= 0 {
		return maxW, maxH
	}
	if frameW <= maxW && frameH <= maxH {
		return frameW, frameH
	}
	scale := min(float64(maxW)/float64(frameW), float64(maxH)/float64(frameH))
	w := int(float64(frameW)*scale + 0.5)
	h := int(float64(frameH)*scale + 0.5)
	return max(w, 1), max(h, 1)
}

var keyMap = map[glfw.Key]interact.Key{
	glfw.KeyEscape: interact.KeyEscape,
	glfw.Key1:      interact.Key1,
	glfw.Key2:      interact.Key2,
	glfw.Key3:      interact.Key3,
	glfw.Key4:      interact.Key4,
	glfw.KeyG:      interact.KeyG,
	glfw.KeyE:      interact.KeyE,
	glfw.KeyP:      interact.KeyP,
	glfw.KeyT:      interact.KeyT,
	glfw.KeyC:      interact.KeyC,
	glfw.KeyR:      interact.KeyR,
}

// MapKey converts a GLFW key to a controller key.
func MapKey(k glfw.Key) interact.Key {
	if key, ok := keyMap[k]; ok {
		return key
	}
	return interact.KeyUnknown
}
