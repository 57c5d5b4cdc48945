package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/draw"

	"visuals/pkg/config"
	"visuals/pkg/shader"
)

// snapshotSize matches the texel size the overlay shader assumes.
const snapshotSize = 512

// stylizeImage runs the overlay shader over a still picture. The input is
// resampled to a square so the fixed texel size lines up with real pixels.
// With flatten set the result is blended over the same crop of the input
// the shader samples, the way the overlay is blended over the pane.
func stylizeImage(src image.Image, cfg config.Config, time float64, flatten bool) *image.NRGBA {
	square := image.NewNRGBA(image.Rect(0, 0, snapshotSize, snapshotSize))
	draw.CatmullRom.Scale(square, square.Bounds(), src, src.Bounds(), draw.Src, nil)

	b := src.Bounds()
	fit := shader.FitOverlay(float64(b.Dx())/float64(b.Dy()), cfg.Scene.FrameWidth, cfg.Scene.FrameHeight)
	un := shader.UniformsFromConfig(cfg.Overlay, fit)

	sampler := shader.NewImageSampler(square)
	w, h := sampler.Size()
	if cfg.Overlay.TexelFromTexture {
		un.UseTextureTexels(w, h)
	}
	un.Time = time

	out := shader.Stylize(sampler, w, h, un)
	if !flatten {
		return out
	}

	under := image.NewNRGBA(out.Bounds())
	draw.CatmullRom.Scale(under, under.Bounds(), src, cropRect(b, fit), draw.Src, nil)
	draw.Draw(under, under.Bounds(), out, image.Point{}, draw.Over)
	return under
}

// cropRect is the part of b the overlay shows after the UV remap.
func cropRect(b image.Rectangle, fit shader.Fit) image.Rectangle {
	w := int(math.Round(float64(b.Dx()) * fit.UVScaleX))
	h := int(math.Round(float64(b.Dy()) * fit.UVScaleY))
	w = max(1, min(w, b.Dx()))
	h = max(1, min(h, b.Dy()))
	x := b.Min.X + (b.Dx()-w)/2
	y := b.Min.Y + (b.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func runSnapshot(in, out string, cfg config.Config, time float64, flatten bool) error {
	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", in, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", in, err)
	}
	if src.Bounds().Empty() {
		return fmt.Errorf("%s is empty", in)
	}

	result := stylizeImage(src, cfg, time, flatten)

	w, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	if err := png.Encode(w, result); err != nil {
		w.Close()
		return fmt.Errorf("failed to encode %s: %w", out, err)
	}
	return w.Close()
}
