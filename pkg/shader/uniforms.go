package shader

import "visuals/pkg/config"

// Uniform names shared by the overlay program and the renderer.
const (
	UniformCameraTexture   = "cameraTexture"
	UniformOpacity         = "opacity"
	UniformUVScaleX        = "uvScaleX"
	UniformUVScaleY        = "uvScaleY"
	UniformTime            = "time"
	UniformTexelSize       = "texelSize"
	UniformPosterizeLevels = "posterizeLevels"
	UniformGrainAmount     = "grainAmount"
	UniformEdgeLow         = "edgeLow"
	UniformEdgeHigh        = "edgeHigh"
)

// Uniforms is the overlay uniform set. Time is the only field that changes
// after initialization.
type Uniforms struct {
	Opacity         float64
	UVScaleX        float64
	UVScaleY        float64
	Time            float64
	TexelX          float64
	TexelY          float64
	PosterizeLevels int
	GrainAmount     float64
	EdgeLow         float64
	EdgeHigh        float64
}

// DefaultUniforms returns the look of the installation with no cropping.
func DefaultUniforms() Uniforms {
	return Uniforms{
		Opacity:         0.2,
		UVScaleX:        1,
		UVScaleY:        1,
		TexelX:          1.0 / 512.0,
		TexelY:          1.0 / 512.0,
		PosterizeLevels: 3,
		GrainAmount:     0.3,
		EdgeLow:         0.2,
		EdgeHigh:        0.8,
	}
}

// UniformsFromConfig builds the fixed part of the set from config and the
// crop computed for the camera.
func UniformsFromConfig(cfg config.OverlayConfig, fit Fit) Uniforms {
	return Uniforms{
		Opacity:         cfg.Opacity,
		UVScaleX:        fit.UVScaleX,
		UVScaleY:        fit.UVScaleY,
		TexelX:          cfg.TexelSize,
		TexelY:          cfg.TexelSize,
		PosterizeLevels: cfg.PosterizeLevels,
		GrainAmount:     cfg.GrainAmount,
		EdgeLow:         cfg.EdgeLow,
		EdgeHigh:        cfg.EdgeHigh,
	}
}

// Advance moves the grain clock by a fixed step.
func (u *Uniforms) Advance(step float64) {
	u.Time += step
}

// UseTextureTexels replaces the fixed texel size with the real one of a
// width x height texture.
func (u *Uniforms) UseTextureTexels(width, height int) {
	if width > 0 && height > 0 {
		u.TexelX = 1 / float64(width)
		u.TexelY = 1 / float64(height)
	}
}
