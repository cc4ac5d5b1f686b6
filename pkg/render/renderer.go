// Package render drives the window, the ray-march shader, and the
// GPU-resident brickmap's buffer uploads — the teacher's chunk-mesh
// renderer adapted from a per-chunk multidraw-indirect pipeline into a
// single full-screen ray march over the §6 binding contract.
package render

import (
	"fmt"

	"openglhelper"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelsmith/brickmap/pkg/camera"
)

// Renderer owns the GLFW window and GL context, the fullscreen
// ray-march shader, and the camera; the GPU-resident brickmap buffers
// it draws against live in a GPUWriter created alongside it and handed
// to gpubrickmap.New. The window/input-state fields below are folded
// in directly from the teacher's standalone openglhelper.Window, since
// this renderer is the window's only owner.
type Renderer struct {
	glfwWindow    *glfw.Window
	width         int
	height        int
	mouseCaptured bool

	camera   *camera.Camera
	shader   *openglhelper.Shader
	emptyVAO *openglhelper.VertexArrayObject

	lastFrameTime float64
	deltaTime     float32

	isClosed bool
}

// NewRenderer creates the GLFW window and GL context, the camera, and
// the ray-march shader. The caller is responsible for constructing the
// GPUWriter with the same GL context and wiring it into gpubrickmap.New
// before the first frame.
func NewRenderer(width, height int, title string) (*Renderer, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("render: init GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	glfwWindow, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("render: create window: %w", err)
	}

	glfwWindow.MakeContextCurrent()
	glfw.SwapInterval(0) // the ray-march shader paces itself against the streaming budget, not vsync

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("render: init OpenGL: %w", err)
	}
	fmt.Printf("OpenGL version: %s\n", gl.GoStr(gl.GetString(gl.VERSION)))

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	cam := camera.NewCamera(mgl32.Vec3{0, 0, 0})
	cam.UpdateProjectionMatrix(width, height)

	shader, err := openglhelper.LoadShaderFromFiles("pkg/render/shaders/vert.glsl", "pkg/render/shaders/frag.glsl")
	if err != nil {
		return nil, fmt.Errorf("render: load shader: %w", err)
	}

	r := &Renderer{
		glfwWindow: glfwWindow,
		width:      width,
		height:     height,
		camera:     cam,
		shader:     shader,
		emptyVAO:   openglhelper.NewVAO(),
	}

	glfwWindow.SetKeyCallback(r.keyCallback)
	glfwWindow.SetCursorPosCallback(r.cursorPosCallback)
	glfwWindow.SetScrollCallback(r.scrollCallback)
	glfwWindow.SetFramebufferSizeCallback(r.framebufferSizeCallback)

	return r, nil
}

// Camera exposes the navigation camera so main can pull the streaming
// position for the Streaming Controller each frame.
func (r *Renderer) Camera() *camera.Camera { return r.camera }

// ShouldClose reports whether the window wants to close.
func (r *Renderer) ShouldClose() bool { return r.glfwWindow.ShouldClose() }

// BeginFrame advances timing, processes keyboard input, and returns the
// frame's delta time in seconds.
func (r *Renderer) BeginFrame() float32 {
	currentTime := glfw.GetTime()
	r.deltaTime = float32(currentTime - r.lastFrameTime)
	r.lastFrameTime = currentTime

	r.camera.ProcessKeyboardInput(r.deltaTime, r.glfwWindow)
	return r.deltaTime
}

// DrawFrame issues the single full-screen triangle that drives the ray
// march fragment shader, then swaps buffers and polls input events.
func (r *Renderer) DrawFrame() {
	gl.ClearColor(0.02, 0.02, 0.05, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	r.shader.Use()
	view := r.camera.ViewMatrix()
	projection := r.camera.ProjectionMatrix()
	r.shader.SetMat4("inv_view", view.Inv())
	r.shader.SetMat4("inv_projection", projection.Inv())
	r.shader.SetVec3("camera_pos", r.camera.Position())

	r.emptyVAO.Bind()
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	r.emptyVAO.Unbind()

	r.glfwWindow.SwapBuffers()
	glfw.PollEvents()
}

// Cleanup releases the window and shader; the GPUWriter owns the
// brickmap buffers and is cleaned up separately by the caller.
func (r *Renderer) Cleanup() {
	if r.isClosed {
		return
	}
	r.shader.Delete()
	r.emptyVAO.Delete()
	glfw.Terminate()
	r.isClosed = true
}

// setMouseCaptured captures or releases the cursor, toggled by the C key.
func (r *Renderer) setMouseCaptured(captured bool) {
	r.mouseCaptured = captured
	if captured {
		r.glfwWindow.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		r.glfwWindow.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
}

func (r *Renderer) keyCallback(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if key == camera.KeyEscape && action == camera.Press {
		r.glfwWindow.SetShouldClose(true)
	}
	if key == glfw.KeyC && action == camera.Press {
		r.setMouseCaptured(!r.mouseCaptured)
		r.camera.ResetMouseState()
	}
}

func (r *Renderer) cursorPosCallback(_ *glfw.Window, xpos, ypos float64) {
	if r.mouseCaptured {
		r.camera.HandleMouseMovement(xpos, ypos)
	}
}

func (r *Renderer) scrollCallback(_ *glfw.Window, _ float64, yoffset float64) {
	r.camera.HandleMouseScroll(yoffset)
}

func (r *Renderer) framebufferSizeCallback(_ *glfw.Window, width, height int) {
	r.width = width
	r.height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.camera.UpdateProjectionMatrix(width, height)
}
