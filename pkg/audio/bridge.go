package audio

import (
	"fmt"

	"visuals/internal/logger"
	"visuals/pkg/capability"
	"visuals/pkg/config"
)

// Bridge turns the analyzer output into one loudness value per tick.
// A bridge without a source never reports loudness.
type Bridge struct {
	analyzer *Analyzer
	source   Source
	samples  []float32
	bins     []uint8
}

// NewBridge wires a source to an analyzer. The bin buffer is allocated
// once and reused on every refresh.
func NewBridge(src Source, an *Analyzer) *Bridge {
	return &Bridge{
		analyzer: an,
		source:   src,
		samples:  make([]float32, an.FFTSize()),
		bins:     make([]uint8, an.BinCount()),
	}
}

// Unavailable is the bridge used when no audio device was granted.
func Unavailable() *Bridge {
	return &Bridge{}
}

func (b *Bridge) Available() bool {
	return b.analyzer != nil && b.source != nil
}

// Refresh reads the newest samples, updates the frequency snapshot and
// returns the mean of the bins.
func (b *Bridge) Refresh() (float64, bool) {
	if !b.Available() {
		return 0, false
	}
	b.source.Read(b.samples)
	b.analyzer.Process(b.samples)
	b.analyzer.ByteFrequencyData(b.bins)
	return Mean(b.bins), true
}

func (b *Bridge) Close() error {
	if b.source == nil {
		return nil
	}
	return b.source.Close()
}

// Acquire opens the configured input. Any failure is reported as a denied
// grant together with a bridge that stays unavailable; the scene keeps
// running without audio.
func Acquire(cfg config.AudioConfig, log *logger.Logger) (*Bridge, capability.Grant) {
	const name = "audio"

	if !cfg.Enabled {
		return Unavailable(), capability.Deny(name, "disabled in configuration")
	}

	an, err := NewAnalyzer(cfg.FFTSize, cfg.Smoothing, cfg.MinDecibels, cfg.MaxDecibels)
	if err != nil {
		log.Warnf("Audio analyzer not created: %v", err)
		return Unavailable(), capability.DenyErr(name, err)
	}

	var src Source
	switch cfg.Source {
	case "", "mic":
		src, err = OpenMic(cfg.SampleRate)
	case "file":
		src, err = OpenFile(cfg.File)
	default:
		err = fmt.Errorf("unknown audio source %q", cfg.Source)
	}
	if err != nil {
		log.Warnf("Audio input unavailable, plane will stay still: %v", err)
		return Unavailable(), capability.DenyErr(name, err)
	}

	log.Infof("Audio input %q opened, fft size %d", sourceLabel(cfg), cfg.FFTSize)
	return NewBridge(src, an), capability.Allow(name)
}

func sourceLabel(cfg config.AudioConfig) string {
	if cfg.Source == "file" {
		return cfg.File
	}
	return "mic"
}
