package shader

// Fit describes how a camera image is placed inside the window frame.
type Fit struct {
	OverlayWidth  float64
	OverlayHeight float64
	UVScaleX      float64
	UVScaleY      float64
}

// FitOverlay covers a frameWidth x frameHeight window with an image of the
// given aspect without distortion. A wider image is fitted by height and
// cropped left/right; a taller one is fitted by width and cropped top/bottom.
func FitOverlay(cameraAspect, frameWidth, frameHeight float64) Fit {
	fit := Fit{UVScaleX: 1, UVScaleY: 1}
	frameAspect := frameWidth / frameHeight

	if cameraAspect > frameAspect {
		fit.OverlayHeight = frameHeight
		fit.OverlayWidth = frameHeight * cameraAspect
		fit.UVScaleX = frameWidth / fit.OverlayWidth
	} else {
		fit.OverlayWidth = frameWidth
		fit.OverlayHeight = frameWidth / cameraAspect
		fit.UVScaleY = frameHeight / fit.OverlayHeight
	}

	return fit
}
