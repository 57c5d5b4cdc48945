package engine

import (
	"github.com/go-gl/mathgl/mgl32"

	"visuals/pkg/config"
	"visuals/pkg/shader"
)

// Colours of the installation.
var (
	BackgroundColor = HexColor(0xf5f5f5)
	FrameColor      = HexColor(0xc4ffd5)
	FrameEmissive   = HexColor(0x00ff7f).Mul(0.3)
	WireframeColor  = HexColor(0x0000ff)
)

// Lighting of the window frame.
const AmbientIntensity = 0.3

var (
	LightDirections = [2]mgl32.Vec3{
		mgl32.Vec3{2, 5, 5}.Normalize(),
		mgl32.Vec3{-2, 5, -5}.Normalize(),
	}
	LightIntensities = [2]float32{0.8, 0.5}
)

// HexColor converts 0xRRGGBB to linear-ish float components.
func HexColor(v uint32) mgl32.Vec3 {
	return mgl32.Vec3{
		float32((v>>16)&0xff) / 255,
		float32((v>>8)&0xff) / 255,
		float32(v&0xff) / 255,
	}
}

// Layout holds the model matrices of every object in the scene. Boxes are
// unit cubes scaled into shape.
type Layout struct {
	Plane     mgl32.Mat4
	Wireframe mgl32.Mat4
	Frame     [4]mgl32.Mat4 // top, bottom, left, right
	Pane      mgl32.Mat4
	Overlay   mgl32.Mat4

	OverlayWidth  float64
	OverlayHeight float64
}

// NewLayout places the window group and its parts.
func NewLayout(sc config.SceneConfig) Layout {
	w := float32(sc.FrameWidth)
	h := float32(sc.FrameHeight)
	t := float32(sc.FrameThickness)
	group := mgl32.Translate3D(0, 0, float32(sc.WindowZ))

	piece := func(x, y, sx, sy float32) mgl32.Mat4 {
		return group.Mul4(mgl32.Translate3D(x, y, 0)).Mul4(mgl32.Scale3D(sx, sy, t))
	}

	return Layout{
		Plane:     mgl32.Ident4(),
		Wireframe: mgl32.Scale3D(2, 2, 1),
		Frame: [4]mgl32.Mat4{
			piece(0, h/2-t/2, w, t),
			piece(0, -h/2+t/2, w, t),
			piece(-w/2+t/2, 0, t, h),
			piece(w/2-t/2, 0, t, h),
		},
		Pane: group.Mul4(mgl32.Translate3D(0, 0, -t/2)).Mul4(mgl32.Scale3D(w-t, h-t, t/2)),
		// the overlay mesh is built at frame size, so no scale here
		Overlay:       group.Mul4(mgl32.Translate3D(0, 0, -t/2+0.1)),
		OverlayWidth:  sc.FrameWidth,
		OverlayHeight: sc.FrameHeight,
	}
}

// Projection is the perspective matrix for a framebuffer of the given size.
func Projection(gc config.GraphicsConfig, width, height int) mgl32.Mat4 {
	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(width) / float32(height)
	}
	return mgl32.Perspective(mgl32.DegToRad(float32(gc.FOV)), aspect, float32(gc.Near), float32(gc.Far))
}

// View places the camera on the z axis looking at the origin.
func View(gc config.GraphicsConfig) mgl32.Mat4 {
	return mgl32.Translate3D(0, 0, -float32(gc.CameraZ))
}

// OverlayFit derives the camera crop from the aspect of the first camera
// frame. A zero aspect means no camera and leaves the image uncropped.
func OverlayFit(sc config.SceneConfig, aspect float64) shader.Fit {
	if aspect <= 0 {
		return shader.Fit{
			OverlayWidth:  sc.FrameWidth,
			OverlayHeight: sc.FrameHeight,
			UVScaleX:      1,
			UVScaleY:      1,
		}
	}
	return shader.FitOverlay(aspect, sc.FrameWidth, sc.FrameHeight)
}

// flipRows copies an image with rows in reverse order so that row 0 of a
// texture upload is the bottom of the picture.
func flipRows(dst, src []byte, stride, height int) {
	for y := 0; y < height; y++ {
		from := src[y*stride : (y+1)*stride]
		to := dst[(height-1-y)*stride : (height-y)*stride]
		copy(to, from)
	}
}
