// Package shader holds the GLSL programs of the installation together with a
// CPU reference of the overlay math. The reference is what the tests and the
// snapshot command run; the GPU executes the GLSL twins in glsl.go.
package shader

import (
	"math"

	"visuals/internal/math/noise"
	"visuals/internal/util"
)

// Rec. 601 luma weights used by both grayscale and edge passes.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Sampler returns the filtered RGB colour of a texture at (u, v) in [0,1]²,
// with v growing upwards as in GL texture space.
type Sampler interface {
	At(u, v float64) (r, g, b float64)
}

// Luminance converts an RGB triple to grayscale
func Luminance(r, g, b float64) float64 {
	return r*lumaR + g*lumaG + b*lumaB
}

// Rand is the shader's rand(vec2) hash.
func Rand(x, y float64) float64 {
	return noise.Hash(x, y)
}

// Grain is the time-seeded noise added to the grayscale value at uv.
func Grain(u, v, time float64) float64 {
	return Rand(u*time*10, v*time*10)
}

// Posterize quantizes g into levels bands with floor-based rounding.
func Posterize(g float64, levels int) float64 {
	l := float64(levels)
	return math.Floor(g*l) / l
}

// 3x3 neighbourhood, top row first. +dy is up.
var (
	sobelOffsets = [9][2]float64{
		{-1, 1}, {0, 1}, {1, 1},
		{-1, 0}, {0, 0}, {1, 0},
		{-1, -1}, {0, -1}, {1, -1},
	}
	sobelX = [9]float64{
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	}
	sobelY = [9]float64{
		1, 2, 1,
		0, 0, 0,
		-1, -2, -1,
	}
)

// Sobel returns the gradient magnitude of the luminance around (u, v). The
// neighbour offsets are texelX/texelY, which need not match the real texture
// resolution.
func Sobel(s Sampler, u, v, texelX, texelY float64) float64 {
	var gx, gy float64
	for i, off := range sobelOffsets {
		r, g, b := s.At(u+off[0]*texelX, v+off[1]*texelY)
		lum := Luminance(r, g, b)
		gx += sobelX[i] * lum
		gy += sobelY[i] * lum
	}
	return math.Sqrt(gx*gx + gy*gy)
}

// RemapUV rescales a texture coordinate around the centre of the axis.
func RemapUV(t, scale float64) float64 {
	return t*scale + (1-scale)/2
}

// Shade evaluates the overlay fragment program for the interpolated plane
// coordinate (u, v). It returns the gray output before framebuffer clamping
// and the alpha.
func Shade(s Sampler, u, v float64, un Uniforms) (value, alpha float64) {
	u = RemapUV(u, un.UVScaleX)
	v = RemapUV(v, un.UVScaleY)

	r, g, b := s.At(u, v)
	gray := Luminance(r, g, b)
	gray += Grain(u, v, un.Time) * un.GrainAmount
	gray = Posterize(gray, un.PosterizeLevels)

	edge := Sobel(s, u, v, un.TexelX, un.TexelY)
	edge = util.SmoothStep(un.EdgeLow, un.EdgeHigh, edge)

	return gray - edge, un.Opacity
}
