// Package audio turns microphone (or file) samples into the frequency
// snapshot and scalar loudness that drive the plane.
package audio

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	MinFFTSize = 32
	MaxFFTSize = 32768
)

// Analyzer produces byte frequency data the same way a Web Audio
// AnalyserNode does: windowed FFT, temporal smoothing, then a linear map
// of decibels onto 0..255.
type Analyzer struct {
	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	fft      *fourier.FFT
	window   []float64
	frame    []float64
	coeffs   []complex128
	smoothed []float64
}

func NewAnalyzer(fftSize int, smoothing, minDB, maxDB float64) (*Analyzer, error) {
	if fftSize < MinFFTSize || fftSize > MaxFFTSize || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("fft size must be a power of two in [%d, %d], got %d", MinFFTSize, MaxFFTSize, fftSize)
	}
	if smoothing < 0 || smoothing > 1 {
		return nil, fmt.Errorf("smoothing must be in [0, 1], got %v", smoothing)
	}
	if minDB >= maxDB {
		return nil, fmt.Errorf("min decibels %v must be below max decibels %v", minDB, maxDB)
	}

	coeffs := make([]float64, fftSize)
	for i := range coeffs {
		coeffs[i] = 1
	}

	return &Analyzer{
		fftSize:   fftSize,
		smoothing: smoothing,
		minDB:     minDB,
		maxDB:     maxDB,
		fft:       fourier.NewFFT(fftSize),
		window:    window.Blackman(coeffs),
		frame:     make([]float64, fftSize),
		coeffs:    make([]complex128, fftSize/2+1),
		smoothed:  make([]float64, fftSize/2),
	}, nil
}

func (a *Analyzer) FFTSize() int { return a.fftSize }

// BinCount is half the FFT size.
func (a *Analyzer) BinCount() int { return a.fftSize / 2 }

// Process takes a new time-domain snapshot. Only the newest FFTSize
// samples are used; shorter input is zero padded at the front.
func (a *Analyzer) Process(samples []float32) {
	if len(samples) > a.fftSize {
		samples = samples[len(samples)-a.fftSize:]
	}
	pad := a.fftSize - len(samples)
	for i := 0; i < pad; i++ {
		a.frame[i] = 0
	}
	for i, s := range samples {
		a.frame[pad+i] = float64(s) * a.window[pad+i]
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	scale := 1.0 / float64(a.fftSize)
	for k := range a.smoothed {
		mag := cmplx.Abs(a.coeffs[k]) * scale
		s := a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		a.smoothed[k] = s
	}
}

// ByteFrequencyData writes the latest smoothed spectrum into dst. At most
// BinCount values are written.
func (a *Analyzer) ByteFrequencyData(dst []uint8) {
	n := len(dst)
	if n > len(a.smoothed) {
		n = len(a.smoothed)
	}
	rangeScale := 255.0 / (a.maxDB - a.minDB)
	for k := 0; k < n; k++ {
		mag := a.smoothed[k]
		if mag <= 0 {
			dst[k] = 0
			continue
		}
		scaled := (20*math.Log10(mag) - a.minDB) * rangeScale
		switch {
		case scaled < 0:
			dst[k] = 0
		case scaled > 255:
			dst[k] = 255
		default:
			dst[k] = uint8(scaled)
		}
	}
}

// Mean is the arithmetic mean of the bins, the scalar loudness.
func Mean(bins []uint8) float64 {
	if len(bins) == 0 {
		return 0
	}
	var sum int
	for _, b := range bins {
		sum += int(b)
	}
	return float64(sum) / float64(len(bins))
}
