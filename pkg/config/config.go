package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config represents the main configuration
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Scene    SceneConfig    `yaml:"scene"`
	Overlay  OverlayConfig  `yaml:"overlay"`
	Audio    AudioConfig    `yaml:"audio"`
	Media    MediaConfig    `yaml:"media"`
	Loop     LoopConfig     `yaml:"loop"`
	Log      LogConfig      `yaml:"log"`
}

// GraphicsConfig contains window and camera configuration
type GraphicsConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	Fullscreen bool    `yaml:"fullscreen"`
	VSync      bool    `yaml:"vsync"`
	FrameRate  int     `yaml:"framerate"` // 0 disables the frame cap
	FOV        float64 `yaml:"fov"`       // vertical, degrees
	Near       float64 `yaml:"near"`
	Far        float64 `yaml:"far"`
	CameraZ    float64 `yaml:"camera_z"`
}

// SceneConfig describes the wobbling plane and the window frame
type SceneConfig struct {
	PlaneWidth           float64 `yaml:"plane_width"`
	PlaneHeight          float64 `yaml:"plane_height"`
	PlaneSegments        int     `yaml:"plane_segments"`
	FrameWidth           float64 `yaml:"frame_width"`
	FrameHeight          float64 `yaml:"frame_height"`
	FrameThickness       float64 `yaml:"frame_thickness"`
	WindowZ              float64 `yaml:"window_z"`
	DisplaceWithoutAudio bool    `yaml:"displace_without_audio"`
}

// OverlayConfig contains the cartoon overlay shader parameters
type OverlayConfig struct {
	Opacity          float64 `yaml:"opacity"`
	TimeStep         float64 `yaml:"time_step"`
	PosterizeLevels  int     `yaml:"posterize_levels"`
	GrainAmount      float64 `yaml:"grain_amount"`
	EdgeLow          float64 `yaml:"edge_low"`
	EdgeHigh         float64 `yaml:"edge_high"`
	TexelSize        float64 `yaml:"texel_size"`
	TexelFromTexture bool    `yaml:"texel_from_texture"`
}

// AudioConfig contains analyzer and input configuration
type AudioConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Source      string  `yaml:"source"` // mic, file
	File        string  `yaml:"file"`
	SampleRate  int     `yaml:"sample_rate"`
	FFTSize     int     `yaml:"fft_size"`
	Smoothing   float64 `yaml:"smoothing"`
	MinDecibels float64 `yaml:"min_decibels"`
	MaxDecibels float64 `yaml:"max_decibels"`
}

// MediaConfig contains the video feed configuration
type MediaConfig struct {
	VideoPath     string `yaml:"video_path"`
	CameraEnabled bool   `yaml:"camera_enabled"`
	CameraDevice  string `yaml:"camera_device"` // empty selects autovideosrc
	FirstFrameMS  int    `yaml:"first_frame_timeout_ms"`
}

// LoopConfig bounds the frame loop; zero means run until the window closes
type LoopConfig struct {
	MaxTicks uint64 `yaml:"max_ticks"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig creates a default configuration
func DefaultConfig() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FrameRate:  60,
			FOV:        75,
			Near:       0.1,
			Far:        1000,
			CameraZ:    5,
		},
		Scene: SceneConfig{
			PlaneWidth:     10,
			PlaneHeight:    10,
			PlaneSegments:  100,
			FrameWidth:     1.5,
			FrameHeight:    2.5,
			FrameThickness: 0.3,
			WindowZ:        1,
		},
		Overlay: OverlayConfig{
			Opacity:         0.2,
			TimeStep:        0.5,
			PosterizeLevels: 3,
			GrainAmount:     0.3,
			EdgeLow:         0.2,
			EdgeHigh:        0.8,
			TexelSize:       1.0 / 512.0,
		},
		Audio: AudioConfig{
			Enabled:     true,
			Source:      "mic",
			SampleRate:  44100,
			FFTSize:     256,
			Smoothing:   0.8,
			MinDecibels: -100,
			MaxDecibels: -30,
		},
		Media: MediaConfig{
			VideoPath:     "media/water.mp4",
			CameraEnabled: true,
			FirstFrameMS:  5000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads the configuration from a file. The defaults are returned
// together with the error when the file is missing or malformed.
func LoadConfig(filePath string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return config, fmt.Errorf("config file not found, using defaults: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("error parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return DefaultConfig(), err
	}

	return config, nil
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, filePath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error serializing config: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate checks value ranges that would otherwise fail deep inside GL or
// the analyzer.
func (c *Config) Validate() error {
	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Graphics.Width, c.Graphics.Height)
	}
	if c.Graphics.Near <= 0 || c.Graphics.Far <= c.Graphics.Near {
		return fmt.Errorf("invalid clip planes near=%v far=%v", c.Graphics.Near, c.Graphics.Far)
	}
	if c.Scene.PlaneSegments < 1 {
		return fmt.Errorf("plane_segments must be at least 1, got %d", c.Scene.PlaneSegments)
	}
	if c.Scene.FrameWidth <= 0 || c.Scene.FrameHeight <= 0 {
		return fmt.Errorf("invalid frame size %vx%v", c.Scene.FrameWidth, c.Scene.FrameHeight)
	}
	if c.Overlay.PosterizeLevels < 1 {
		return fmt.Errorf("posterize_levels must be at least 1, got %d", c.Overlay.PosterizeLevels)
	}
	if c.Overlay.EdgeHigh <= c.Overlay.EdgeLow {
		return fmt.Errorf("edge_high (%v) must exceed edge_low (%v)", c.Overlay.EdgeHigh, c.Overlay.EdgeLow)
	}
	if c.Overlay.TexelSize <= 0 {
		return fmt.Errorf("texel_size must be positive, got %v", c.Overlay.TexelSize)
	}
	n := c.Audio.FFTSize
	if n < 32 || n > 32768 || n&(n-1) != 0 {
		return fmt.Errorf("fft_size must be a power of two in [32, 32768], got %d", n)
	}
	if c.Audio.Smoothing < 0 || c.Audio.Smoothing > 1 {
		return fmt.Errorf("smoothing must be in [0, 1], got %v", c.Audio.Smoothing)
	}
	if c.Audio.MaxDecibels <= c.Audio.MinDecibels {
		return fmt.Errorf("max_decibels (%v) must exceed min_decibels (%v)", c.Audio.MaxDecibels, c.Audio.MinDecibels)
	}
	switch c.Audio.Source {
	case "", "mic":
	case "file":
		if c.Audio.File == "" {
			return fmt.Errorf("audio source 'file' needs audio.file")
		}
	default:
		return fmt.Errorf("unknown audio source %q", c.Audio.Source)
	}
	return nil
}
