package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"visuals/internal/logger"
	"visuals/pkg/audio"
	"visuals/pkg/capability"
	"visuals/pkg/config"
	"visuals/pkg/geometry"
	"visuals/pkg/media"
	"visuals/pkg/shader"
)

// Engine owns the window, the media inputs and the frame loop.
type Engine struct {
	window   *glfw.Window
	config   *config.Config
	logger   *logger.Logger
	renderer *Renderer
	bridge   *audio.Bridge
	video    *media.Stream
	camera   *media.Stream
	loop     *Loop
}

// NewEngine opens the window, acquires the microphone, the background
// video and the camera, and prepares the scene. Denied inputs are logged
// and switch their feature off; only window and GL failures are fatal.
func NewEngine(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Engine, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	var monitor *glfw.Monitor
	if cfg.Graphics.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
	}

	window, err := glfw.CreateWindow(cfg.Graphics.Width, cfg.Graphics.Height, "Visuals", monitor, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	log.Infof("OpenGL %s", gl.GoStr(gl.GetString(gl.VERSION)))

	if cfg.Graphics.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	e := &Engine{
		window: window,
		config: cfg,
		logger: log,
	}

	var caps capability.Set
	e.bridge, caps.Audio = audio.Acquire(cfg.Audio, log.Named("audio"))

	var videoSlot, cameraSlot *media.Slot
	e.video, _, caps.Video = media.AcquireVideo(ctx, cfg.Media, log.Named("video"))
	if e.video != nil {
		videoSlot = e.video.Slot()
	}

	overlay := shader.UniformsFromConfig(cfg.Overlay, OverlayFit(cfg.Scene, 0))
	var first media.Frame
	e.camera, first, caps.Camera = media.AcquireCamera(ctx, cfg.Media, log.Named("camera"))
	if e.camera != nil {
		cameraSlot = e.camera.Slot()
		overlay = shader.UniformsFromConfig(cfg.Overlay, OverlayFit(cfg.Scene, first.Aspect()))
		if cfg.Overlay.TexelFromTexture {
			overlay.UseTextureTexels(first.Width, first.Height)
		}
	}

	for _, line := range caps.Summary() {
		log.Info(line)
	}

	grid, err := geometry.NewPlane(cfg.Scene.PlaneWidth, cfg.Scene.PlaneHeight, cfg.Scene.PlaneSegments, cfg.Scene.PlaneSegments)
	if err != nil {
		e.cleanup()
		return nil, fmt.Errorf("failed to build plane: %w", err)
	}

	e.renderer, err = NewRenderer(cfg, grid, videoSlot, cameraSlot, log.Named("renderer"))
	if err != nil {
		e.cleanup()
		return nil, fmt.Errorf("failed to initialize renderer: %w", err)
	}

	width, height := window.GetFramebufferSize()
	e.renderer.Resize(width, height)
	window.SetFramebufferSizeCallback(e.resizeCallback)

	fc := NewFrameContext(grid, e.bridge, overlay, caps)
	fc.DisplaceWithoutAudio = cfg.Scene.DisplaceWithoutAudio
	fc.TimeStep = cfg.Overlay.TimeStep

	sched := newWindowScheduler(window, cfg.Graphics, log.Named("window"))
	e.loop = NewLoop(fc, SystemClock, e.renderer, sched, cfg.Loop.MaxTicks, log.Named("loop"))

	return e, nil
}

// Run drives the frame loop until the window closes, ctx is cancelled or
// the tick budget is spent, then releases every resource.
func (e *Engine) Run(ctx context.Context) error {
	defer e.cleanup()
	return e.loop.Run(ctx)
}

// Frame exposes the loop state, mainly for reporting after Run.
func (e *Engine) Frame() *FrameContext {
	return e.loop.Context()
}

func (e *Engine) resizeCallback(_ *glfw.Window, width int, height int) {
	e.renderer.Resize(width, height)
}

// cleanup performs necessary cleanup before exiting
func (e *Engine) cleanup() {
	e.logger.Info("Shutting down engine...")

	if e.renderer != nil {
		e.renderer.Close()
		e.renderer = nil
	}
	if e.bridge != nil {
		if err := e.bridge.Close(); err != nil {
			e.logger.Warnf("Audio shutdown: %v", err)
		}
		e.bridge = nil
	}
	for _, s := range []*media.Stream{e.video, e.camera} {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil {
			e.logger.Warnf("%s shutdown: %v", s.Name(), err)
		}
	}
	e.video, e.camera = nil, nil

	if e.window != nil {
		e.window.Destroy()
		e.window = nil
	}
	glfw.Terminate()
}

// windowScheduler presents the frame, polls input and caps the frame rate.
// Escape closes the window, F toggles fullscreen.
type windowScheduler struct {
	window    *glfw.Window
	input     *InputHandler
	frameRate int
	last      time.Time
	logger    *logger.Logger

	// windowed geometry restored when leaving fullscreen
	windowed [4]int
}

func newWindowScheduler(window *glfw.Window, gc config.GraphicsConfig, log *logger.Logger) *windowScheduler {
	return &windowScheduler{
		window:    window,
		input:     NewInputHandler(window, glfw.KeyEscape, glfw.KeyF),
		frameRate: gc.FrameRate,
		last:      time.Now(),
		logger:    log,
		windowed:  [4]int{64, 64, gc.Width, gc.Height},
	}
}

func (s *windowScheduler) Next(ctx context.Context) (bool, error) {
	s.window.SwapBuffers()
	glfw.PollEvents()
	s.input.Update()

	if s.input.IsKeyPressed(glfw.KeyEscape) {
		s.window.SetShouldClose(true)
	}
	if s.window.ShouldClose() {
		return false, nil
	}
	if s.input.IsKeyPressed(glfw.KeyF) {
		s.toggleFullscreen()
	}

	if s.frameRate > 0 {
		target := time.Second / time.Duration(s.frameRate)
		if elapsed := time.Since(s.last); elapsed < target {
			select {
			case <-time.After(target - elapsed):
			case <-ctx.Done():
			}
		}
	}
	s.last = time.Now()
	return true, nil
}

func (s *windowScheduler) toggleFullscreen() {
	if s.window.GetMonitor() != nil {
		w := s.windowed
		s.window.SetMonitor(nil, w[0], w[1], w[2], w[3], 0)
		s.logger.Debug("Left fullscreen")
		return
	}

	monitor := glfw.GetPrimaryMonitor()
	if monitor == nil {
		return
	}
	x, y := s.window.GetPos()
	w, h := s.window.GetSize()
	s.windowed = [4]int{x, y, w, h}

	mode := monitor.GetVideoMode()
	s.window.SetMonitor(monitor, 0, 0, mode.Width, mode.Height, mode.RefreshRate)
	s.logger.Debugf("Fullscreen at %dx%d", mode.Width, mode.Height)
}
