package engine

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"visuals/internal/logger"
	"visuals/pkg/config"
	"visuals/pkg/geometry"
	"visuals/pkg/media"
	"visuals/pkg/shader"
)

// Attribute locations shared with the GLSL sources.
const (
	attrPosition = 0
	attrNormal   = 1
	attrUV       = 2
	attrColor    = 3
)

// program is a linked shader program with cached uniform locations.
type program struct {
	id        uint32
	locations map[string]int32
}

func newProgram(vertexSource, fragmentSource string) (*program, error) {
	id, err := createShaderProgram(vertexSource, fragmentSource)
	if err != nil {
		return nil, err
	}
	return &program{id: id, locations: make(map[string]int32)}, nil
}

func (p *program) loc(name string) int32 {
	if l, ok := p.locations[name]; ok {
		return l
	}
	l := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locations[name] = l
	return l
}

func (p *program) use(projection, view, model mgl32.Mat4) {
	gl.UseProgram(p.id)
	gl.UniformMatrix4fv(p.loc("projection"), 1, false, &projection[0])
	gl.UniformMatrix4fv(p.loc("view"), 1, false, &view[0])
	gl.UniformMatrix4fv(p.loc("model"), 1, false, &model[0])
}

// attribute is one float vertex stream bound to a location.
type attribute struct {
	location uint32
	size     int32
	data     []float32
	usage    uint32
}

// mesh is a VAO with one VBO per attribute and an index buffer.
type mesh struct {
	vao   uint32
	vbos  []uint32
	ebo   uint32
	count int32
	mode  uint32
}

func uploadMesh(mode uint32, indices []uint32, attrs ...attribute) *mesh {
	m := &mesh{mode: mode, count: int32(len(indices)), vbos: make([]uint32, len(attrs))}

	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	for i, a := range attrs {
		gl.GenBuffers(1, &m.vbos[i])
		gl.BindBuffer(gl.ARRAY_BUFFER, m.vbos[i])
		gl.BufferData(gl.ARRAY_BUFFER, len(a.data)*4, gl.Ptr(a.data), a.usage)
		gl.VertexAttribPointer(a.location, a.size, gl.FLOAT, false, 0, gl.PtrOffset(0))
		gl.EnableVertexAttribArray(a.location)
	}

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	return m
}

// update replaces the contents of attribute buffer i; the size must not change.
func (m *mesh) update(i int, data []float32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbos[i])
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data)*4, gl.Ptr(data))
}

func (m *mesh) draw() {
	gl.BindVertexArray(m.vao)
	gl.DrawElements(m.mode, m.count, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

func (m *mesh) delete() {
	gl.DeleteVertexArrays(1, &m.vao)
	gl.DeleteBuffers(int32(len(m.vbos)), &m.vbos[0])
	gl.DeleteBuffers(1, &m.ebo)
}

// streamTexture mirrors the newest frame of a media slot.
type streamTexture struct {
	name    string
	logger  *logger.Logger
	id      uint32
	width   int
	height  int
	seq     uint64
	flipped []byte
}

func newStreamTexture(name string, log *logger.Logger) *streamTexture {
	t := &streamTexture{name: name, logger: log}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	// neutral grey until the first frame arrives
	grey := []byte{128, 128, 128, 255}
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, 1, 1, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(grey))
	return t
}

// sync uploads the slot's frame if it changed since the last call.
func (t *streamTexture) sync(slot *media.Slot) {
	if slot == nil || slot.Seq() == t.seq {
		return
	}
	frame, ok := slot.Latest()
	if !ok || frame.Width == 0 || frame.Height == 0 {
		t.logger.Debugf("%s frame %d (%s) skipped: empty", t.name, frame.Seq, frame.TraceID)
		t.seq = frame.Seq
		return
	}

	size := frame.Width * frame.Height * 4
	if len(t.flipped) != size {
		t.flipped = make([]byte, size)
	}
	flipRows(t.flipped, frame.Pix, frame.Width*4, frame.Height)

	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	if frame.Width != t.width || frame.Height != t.height {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(frame.Width), int32(frame.Height), 0,
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(t.flipped))
		t.logger.Debugf("%s texture %dx%d -> %dx%d at frame %d (%s)", t.name,
			t.width, t.height, frame.Width, frame.Height, frame.Seq, frame.TraceID)
		t.width, t.height = frame.Width, frame.Height
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(frame.Width), int32(frame.Height),
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(t.flipped))
	}
	t.seq = frame.Seq
}

func (t *streamTexture) delete() {
	gl.DeleteTextures(1, &t.id)
}

// Renderer draws the plane, its wireframe, the window frame, the video
// pane and the camera overlay.
type Renderer struct {
	graphics config.GraphicsConfig
	layout   Layout
	logger   *logger.Logger

	planeProgram   *program
	lineProgram    *program
	frameProgram   *program
	paneProgram    *program
	overlayProgram *program

	plane     *mesh
	wireframe *mesh
	box       *mesh
	overlay   *mesh

	videoTexture  *streamTexture
	cameraTexture *streamTexture
	video         *media.Slot
	camera        *media.Slot

	projection mgl32.Mat4
	view       mgl32.Mat4
}

// NewRenderer compiles the programs and uploads the static meshes. It must
// run on the thread that owns the GL context.
func NewRenderer(cfg *config.Config, grid *geometry.Grid, video, camera *media.Slot, log *logger.Logger) (*Renderer, error) {
	r := &Renderer{
		graphics: cfg.Graphics,
		layout:   NewLayout(cfg.Scene),
		logger:   log,
		video:    video,
		camera:   camera,
		view:     View(cfg.Graphics),
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.ClearColor(BackgroundColor[0], BackgroundColor[1], BackgroundColor[2], 1.0)

	var err error
	sources := []struct {
		dst          **program
		name         string
		vertex, frag string
	}{
		{&r.planeProgram, "plane", shader.PlaneVertex, shader.PlaneFragment},
		{&r.lineProgram, "line", shader.LineVertex, shader.LineFragment},
		{&r.frameProgram, "frame", shader.FrameVertex, shader.FrameFragment},
		{&r.paneProgram, "pane", shader.PaneVertex, shader.PaneFragment},
		{&r.overlayProgram, "overlay", shader.OverlayVertex, shader.OverlayFragment},
	}
	for _, s := range sources {
		if *s.dst, err = newProgram(s.vertex, s.frag); err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to build %s program: %w", s.name, err)
		}
	}

	r.plane = uploadMesh(gl.TRIANGLES, grid.Indices,
		attribute{attrPosition, 3, grid.Position, gl.DYNAMIC_DRAW},
		attribute{attrColor, 3, grid.Colors, gl.STATIC_DRAW},
	)

	// the wireframe keeps its own copy of the flat positions
	flat := append([]float32(nil), grid.Position...)
	r.wireframe = uploadMesh(gl.LINES, geometry.Wireframe(grid),
		attribute{attrPosition, 3, flat, gl.STATIC_DRAW},
	)

	box := geometry.Box(1, 1, 1)
	r.box = uploadMesh(gl.TRIANGLES, box.Indices,
		attribute{attrPosition, 3, box.Position, gl.STATIC_DRAW},
		attribute{attrNormal, 3, box.Normal, gl.STATIC_DRAW},
		attribute{attrUV, 2, box.UV, gl.STATIC_DRAW},
	)

	quad, err := geometry.NewPlane(r.layout.OverlayWidth, r.layout.OverlayHeight, 1, 1)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to build overlay quad: %w", err)
	}
	r.overlay = uploadMesh(gl.TRIANGLES, quad.Indices,
		attribute{attrPosition, 3, quad.Position, gl.STATIC_DRAW},
		attribute{attrUV, 2, quad.UV, gl.STATIC_DRAW},
	)

	r.videoTexture = newStreamTexture("video", log)
	r.cameraTexture = newStreamTexture("camera", log)

	r.Resize(cfg.Graphics.Width, cfg.Graphics.Height)
	return r, nil
}

// Resize updates the viewport and recomputes the projection.
func (r *Renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	gl.Viewport(0, 0, int32(width), int32(height))
	r.projection = Projection(r.graphics, width, height)
	r.logger.Debugf("Framebuffer resized to %dx%d", width, height)
}

// Draw renders one frame.
func (r *Renderer) Draw(fc *FrameContext) error {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	if fc.Grid != nil && fc.Grid.TakeDirty() {
		r.plane.update(0, fc.Grid.Position)
	}
	r.videoTexture.sync(r.video)

	// plane, double sided
	r.planeProgram.use(r.projection, r.view, r.layout.Plane)
	r.plane.draw()

	r.lineProgram.use(r.projection, r.view, r.layout.Wireframe)
	gl.Uniform3fv(r.lineProgram.loc("lineColor"), 1, &WireframeColor[0])
	r.wireframe.draw()

	r.frameProgram.use(r.projection, r.view, mgl32.Ident4())
	gl.Uniform3fv(r.frameProgram.loc("baseColor"), 1, &FrameColor[0])
	gl.Uniform3fv(r.frameProgram.loc("emissive"), 1, &FrameEmissive[0])
	gl.Uniform1f(r.frameProgram.loc("ambient"), AmbientIntensity)
	gl.Uniform3fv(r.frameProgram.loc("lightDir"), 2, &LightDirections[0][0])
	gl.Uniform1fv(r.frameProgram.loc("lightIntensity"), 2, &LightIntensities[0])
	for _, model := range r.layout.Frame {
		gl.UniformMatrix4fv(r.frameProgram.loc("model"), 1, false, &model[0])
		r.box.draw()
	}

	r.paneProgram.use(r.projection, r.view, r.layout.Pane)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.videoTexture.id)
	gl.Uniform1i(r.paneProgram.loc("videoTexture"), 0)
	r.box.draw()

	if fc.OverlayEnabled {
		r.drawOverlay(fc.Overlay)
	}

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("gl error 0x%x", code)
	}
	return nil
}

func (r *Renderer) drawOverlay(un shader.Uniforms) {
	r.cameraTexture.sync(r.camera)

	p := r.overlayProgram
	p.use(r.projection, r.view, r.layout.Overlay)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.cameraTexture.id)
	gl.Uniform1i(p.loc(shader.UniformCameraTexture), 0)
	gl.Uniform1f(p.loc(shader.UniformOpacity), float32(un.Opacity))
	gl.Uniform1f(p.loc(shader.UniformUVScaleX), float32(un.UVScaleX))
	gl.Uniform1f(p.loc(shader.UniformUVScaleY), float32(un.UVScaleY))
	gl.Uniform1f(p.loc(shader.UniformTime), float32(un.Time))
	gl.Uniform2f(p.loc(shader.UniformTexelSize), float32(un.TexelX), float32(un.TexelY))
	gl.Uniform1f(p.loc(shader.UniformPosterizeLevels), float32(un.PosterizeLevels))
	gl.Uniform1f(p.loc(shader.UniformGrainAmount), float32(un.GrainAmount))
	gl.Uniform1f(p.loc(shader.UniformEdgeLow), float32(un.EdgeLow))
	gl.Uniform1f(p.loc(shader.UniformEdgeHigh), float32(un.EdgeHigh))

	// transparent: test against the pane but leave depth untouched
	gl.DepthMask(false)
	r.overlay.draw()
	gl.DepthMask(true)
}

// Close releases all OpenGL resources.
func (r *Renderer) Close() {
	for _, m := range []*mesh{r.plane, r.wireframe, r.box, r.overlay} {
		if m != nil {
			m.delete()
		}
	}
	for _, t := range []*streamTexture{r.videoTexture, r.cameraTexture} {
		if t != nil {
			t.delete()
		}
	}
	for _, p := range []*program{r.planeProgram, r.lineProgram, r.frameProgram, r.paneProgram, r.overlayProgram} {
		if p != nil {
			gl.DeleteProgram(p.id)
		}
	}
}

// createShaderProgram compiles and links a shader program from source
func createShaderProgram(vertexSource, fragmentSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}

	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))

		gl.DeleteProgram(program)
		gl.DeleteShader(vertexShader)
		gl.DeleteShader(fragmentShader)

		return 0, fmt.Errorf("shader program linking failed: %v", log)
	}

	// shaders are no longer needed once linked
	gl.DetachShader(program, vertexShader)
	gl.DetachShader(program, fragmentShader)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	return program, nil
}

// compileShader compiles a shader from source
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))

		gl.DeleteShader(shader)

		return 0, fmt.Errorf("shader compilation failed: %v", log)
	}

	return shader, nil
}
