package shader

import (
	"image"
	"image/color"
	"math"

	"visuals/internal/util"
)

// ImageSampler samples an image the way a GL_LINEAR, CLAMP_TO_EDGE texture
// uploaded with flipY does: v = 0 is the bottom row.
type ImageSampler struct {
	width, height int
	rgb           []float64
}

// NewImageSampler copies img into a float RGB buffer.
func NewImageSampler(img image.Image) *ImageSampler {
	b := img.Bounds()
	s := &ImageSampler{
		width:  b.Dx(),
		height: b.Dy(),
		rgb:    make([]float64, b.Dx()*b.Dy()*3),
	}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			s.rgb[i] = float64(c.R) / 255
			s.rgb[i+1] = float64(c.G) / 255
			s.rgb[i+2] = float64(c.B) / 255
			i += 3
		}
	}
	return s
}

// Size returns the texture dimensions in texels.
func (s *ImageSampler) Size() (int, int) {
	return s.width, s.height
}

func (s *ImageSampler) texel(x, y int) (float64, float64, float64) {
	if x < 0 {
		x = 0
	} else if x >= s.width {
		x = s.width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= s.height {
		y = s.height - 1
	}
	i := (y*s.width + x) * 3
	return s.rgb[i], s.rgb[i+1], s.rgb[i+2]
}

// At implements Sampler with bilinear filtering between texel centres.
func (s *ImageSampler) At(u, v float64) (float64, float64, float64) {
	if s.width == 0 || s.height == 0 {
		return 0, 0, 0
	}
	x := u*float64(s.width) - 0.5
	y := (1-v)*float64(s.height) - 0.5

	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	r00, g00, b00 := s.texel(ix, iy)
	r10, g10, b10 := s.texel(ix+1, iy)
	r01, g01, b01 := s.texel(ix, iy+1)
	r11, g11, b11 := s.texel(ix+1, iy+1)

	r := util.Mix(util.Mix(r00, r10, fx), util.Mix(r01, r11, fx), fy)
	g := util.Mix(util.Mix(g00, g10, fx), util.Mix(g01, g11, fx), fy)
	b := util.Mix(util.Mix(b00, b10, fx), util.Mix(b01, b11, fx), fy)
	return r, g, b
}

// Stylize renders the overlay program into a width x height image, one
// fragment per pixel centre.
func Stylize(s Sampler, width, height int, un Uniforms) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	a := uint8(math.Round(util.Clamp(un.Opacity, 0, 1) * 255))

	for y := 0; y < height; y++ {
		v := 1 - (float64(y)+0.5)/float64(height)
		for x := 0; x < width; x++ {
			u := (float64(x) + 0.5) / float64(width)
			value, _ := Shade(s, u, v, un)
			g := uint8(math.Round(util.Clamp(value, 0, 1) * 255))
			out.SetNRGBA(x, y, color.NRGBA{R: g, G: g, B: g, A: a})
		}
	}

	return out
}
