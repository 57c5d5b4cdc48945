package shader

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flatSampler struct{ r, g, b float64 }

func (f flatSampler) At(_, _ float64) (float64, float64, float64) { return f.r, f.g, f.b }

// splitSampler is black left of u=0.5 and white right of it.
type splitSampler struct{}

func (splitSampler) At(u, _ float64) (float64, float64, float64) {
	if u < 0.5 {
		return 0, 0, 0
	}
	return 1, 1, 1
}

func TestPosterizeProducesThreeLevels(t *testing.T) {
	allowed := []float64{0, 1.0 / 3.0, 2.0 / 3.0}
	seen := map[float64]bool{}

	for i := 0; i < 1000; i++ {
		g := float64(i) / 1000
		p := Posterize(g, 3)
		found := false
		for _, a := range allowed {
			if p == a {
				found = true
			}
		}
		require.True(t, found, "Posterize(%v) = %v", g, p)
		seen[p] = true
	}
	assert.Len(t, seen, 3)
}

func TestRemapUVIdentityWithoutCrop(t *testing.T) {
	for i := 0; i <= 100; i++ {
		u := float64(i) / 100
		assert.Equal(t, u, RemapUV(u, 1))
	}
}

func TestRemapUVCentersCrop(t *testing.T) {
	assert.InDelta(t, 0.25, RemapUV(0, 0.5), 1e-12)
	assert.InDelta(t, 0.5, RemapUV(0.5, 0.5), 1e-12)
	assert.InDelta(t, 0.75, RemapUV(1, 0.5), 1e-12)
}

func TestSobelFlatNeighbourhoodIsZero(t *testing.T) {
	for _, s := range []flatSampler{{0, 0, 0}, {1, 1, 1}, {0.3, 0.7, 0.1}} {
		assert.InDelta(t, 0, Sobel(s, 0.4, 0.6, 1.0/512, 1.0/512), 1e-12)
	}
}

func TestKernelsSumToZero(t *testing.T) {
	var sx, sy float64
	for i := range sobelX {
		sx += sobelX[i]
		sy += sobelY[i]
	}
	assert.Equal(t, 0.0, sx)
	assert.Equal(t, 0.0, sy)
}

func TestSobelDetectsVerticalEdge(t *testing.T) {
	texel := 1.0 / 512
	edge := Sobel(splitSampler{}, 0.5, 0.5, texel, texel)
	// right column is white (1+2+1), left column sits on u<0.5 (black)
	assert.InDelta(t, 4.0, edge, 1e-9)

	assert.Equal(t, 0.0, Sobel(splitSampler{}, 0.25, 0.5, texel, texel))
}

func TestFitOverlayWideCamera(t *testing.T) {
	fit := FitOverlay(16.0/9.0, 1.5, 2.5)

	assert.InDelta(t, 2.5, fit.OverlayHeight, 1e-12)
	assert.InDelta(t, 2.5*16.0/9.0, fit.OverlayWidth, 1e-12)
	assert.InDelta(t, 1.5/(2.5*16.0/9.0), fit.UVScaleX, 1e-12)
	assert.Less(t, fit.UVScaleX, 1.0)
	assert.Equal(t, 1.0, fit.UVScaleY)
}

func TestFitOverlayTallCamera(t *testing.T) {
	aspect := 9.0 / 16.0
	fit := FitOverlay(aspect, 1.5, 2.5)

	assert.Equal(t, 1.0, fit.UVScaleX)
	assert.InDelta(t, 1.5, fit.OverlayWidth, 1e-12)
	assert.InDelta(t, 1.5/aspect, fit.OverlayHeight, 1e-12)
	assert.InDelta(t, 2.5/(1.5/aspect), fit.UVScaleY, 1e-12)
	assert.Less(t, fit.UVScaleY, 1.0)
}

func TestFitOverlayExactAspect(t *testing.T) {
	fit := FitOverlay(0.6, 1.5, 2.5)
	assert.Equal(t, 1.0, fit.UVScaleX)
	assert.InDelta(t, 1.0, fit.UVScaleY, 1e-12)
}

func TestShadeFlatGray(t *testing.T) {
	un := DefaultUniforms()
	un.GrainAmount = 0

	value, alpha := Shade(flatSampler{0.5, 0.5, 0.5}, 0.3, 0.7, un)
	assert.InDelta(t, 1.0/3.0, value, 1e-12)
	assert.Equal(t, 0.2, alpha)
}

func TestShadeGrainAtTimeZeroIsZero(t *testing.T) {
	// time 0 seeds rand with (0,0), which hashes to 0
	un := DefaultUniforms()
	withGrain, _ := Shade(flatSampler{0.9, 0.9, 0.9}, 0.1, 0.2, un)
	un.GrainAmount = 0
	without, _ := Shade(flatSampler{0.9, 0.9, 0.9}, 0.1, 0.2, un)
	assert.Equal(t, without, withGrain)
}

func TestShadeDarkensEdges(t *testing.T) {
	un := DefaultUniforms()
	un.GrainAmount = 0
	onEdge, _ := Shade(splitSampler{}, 0.5, 0.5, un)
	offEdge, _ := Shade(splitSampler{}, 0.9, 0.5, un)
	// a saturated edge subtracts a full unit from the posterized value
	assert.InDelta(t, offEdge-1, onEdge, 1e-12)
	assert.LessOrEqual(t, onEdge, 0.0)
}

func TestUniformsAdvance(t *testing.T) {
	un := DefaultUniforms()
	for i := 0; i < 4; i++ {
		un.Advance(0.5)
	}
	assert.Equal(t, 2.0, un.Time)

	un.UseTextureTexels(640, 480)
	assert.InDelta(t, 1.0/640, un.TexelX, 1e-15)
	assert.InDelta(t, 1.0/480, un.TexelY, 1e-15)

	un.UseTextureTexels(0, 0)
	assert.InDelta(t, 1.0/640, un.TexelX, 1e-15)
}

func TestImageSamplerFlipsRows(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255}) // top-left red
	img.SetNRGBA(1, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(0, 1, color.NRGBA{0, 0, 255, 255}) // bottom row blue
	img.SetNRGBA(1, 1, color.NRGBA{0, 0, 255, 255})

	s := NewImageSampler(img)
	w, h := s.Size()
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)

	r, _, b := s.At(0.25, 0.75) // centre of top-left texel
	assert.InDelta(t, 1, r, 1e-12)
	assert.InDelta(t, 0, b, 1e-12)

	r, _, b = s.At(0.75, 0.25)
	assert.InDelta(t, 0, r, 1e-12)
	assert.InDelta(t, 1, b, 1e-12)

	// halfway between the rows
	r, _, b = s.At(0.5, 0.5)
	assert.InDelta(t, 0.5, r, 1e-12)
	assert.InDelta(t, 0.5, b, 1e-12)

	// clamp to edge outside [0,1]
	r, _, _ = s.At(-3, 5)
	assert.InDelta(t, 1, r, 1e-12)
}

func TestStylizeFlatImage(t *testing.T) {
	bounded := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range bounded.Pix {
		bounded.Pix[i] = 128
	}

	un := DefaultUniforms()
	un.GrainAmount = 0
	out := Stylize(NewImageSampler(bounded), 4, 4, un)

	want := uint8(math.Round(255.0 / 3.0))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			c := out.NRGBAAt(x, y)
			assert.Equal(t, want, c.R)
			assert.Equal(t, uint8(51), c.A)
		}
	}
}
