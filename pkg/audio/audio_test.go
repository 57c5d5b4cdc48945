package audio

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visuals/internal/logger"
	"visuals/pkg/capability"
	"visuals/pkg/config"
)

type sliceSource struct {
	data   []float32
	closed bool
}

func (s *sliceSource) Read(dst []float32) {
	copy(dst, s.data)
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

func sine(n, bin int, amp float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*float64(bin)*float64(i)/float64(n)))
	}
	return out
}

func quietLogger() *logger.Logger {
	return logger.New("fatal", io.Discard)
}

func TestRingLatest(t *testing.T) {
	r := NewRing(4)
	r.Write([]float32{1, 2, 3})

	dst := make([]float32, 5)
	r.Latest(dst)
	assert.Equal(t, []float32{0, 0, 1, 2, 3}, dst)

	r.Write([]float32{4, 5, 6})
	dst = make([]float32, 3)
	r.Latest(dst)
	assert.Equal(t, []float32{4, 5, 6}, dst)

	dst = make([]float32, 4)
	r.Latest(dst)
	assert.Equal(t, []float32{3, 4, 5, 6}, dst)
	assert.Equal(t, uint64(6), r.Written())
}

func TestRingOversizedWrite(t *testing.T) {
	r := NewRing(3)
	r.Write([]float32{1, 2, 3, 4, 5})

	dst := make([]float32, 3)
	r.Latest(dst)
	assert.Equal(t, []float32{3, 4, 5}, dst)
}

func TestNewAnalyzerValidation(t *testing.T) {
	_, err := NewAnalyzer(100, 0.8, -100, -30)
	assert.Error(t, err)
	_, err = NewAnalyzer(16, 0.8, -100, -30)
	assert.Error(t, err)
	_, err = NewAnalyzer(256, 1.5, -100, -30)
	assert.Error(t, err)
	_, err = NewAnalyzer(256, 0.8, -30, -100)
	assert.Error(t, err)

	an, err := NewAnalyzer(256, 0.8, -100, -30)
	require.NoError(t, err)
	assert.Equal(t, 128, an.BinCount())
}

func TestAnalyzerSilenceIsZero(t *testing.T) {
	an, err := NewAnalyzer(256, 0.8, -100, -30)
	require.NoError(t, err)

	an.Process(make([]float32, 256))
	bins := make([]uint8, an.BinCount())
	an.ByteFrequencyData(bins)
	for _, b := range bins {
		require.Equal(t, uint8(0), b)
	}
	assert.Equal(t, 0.0, Mean(bins))
}

func TestAnalyzerSinePeak(t *testing.T) {
	an, err := NewAnalyzer(256, 0, -100, -30)
	require.NoError(t, err)

	an.Process(sine(256, 16, 0.01))
	bins := make([]uint8, an.BinCount())
	an.ByteFrequencyData(bins)

	peak := 0
	for k := range bins {
		if bins[k] > bins[peak] {
			peak = k
		}
	}
	assert.Equal(t, 16, peak)
	assert.Greater(t, bins[16], bins[15])
	assert.Greater(t, bins[16], bins[17])
	assert.Greater(t, bins[16], bins[60])
}

func TestAnalyzerSmoothingDecays(t *testing.T) {
	an, err := NewAnalyzer(256, 0.8, -100, -30)
	require.NoError(t, err)
	bins := make([]uint8, an.BinCount())

	an.Process(sine(256, 16, 0.5))
	silence := make([]float32, 256)
	an.Process(silence)
	an.ByteFrequencyData(bins)
	assert.Greater(t, bins[16], uint8(0), "previous snapshot still weighs in")

	for i := 0; i < 200; i++ {
		an.Process(silence)
	}
	an.ByteFrequencyData(bins)
	assert.Equal(t, 0.0, Mean(bins))
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.5, Mean([]uint8{1, 2, 3, 4}))
	assert.Equal(t, 255.0, Mean([]uint8{255, 255}))
}

func TestUnavailableBridgeNeverReports(t *testing.T) {
	b := Unavailable()
	assert.False(t, b.Available())
	for i := 0; i < 5; i++ {
		v, ok := b.Refresh()
		assert.False(t, ok)
		assert.Equal(t, 0.0, v)
	}
	assert.NoError(t, b.Close())
}

func TestBridgeRefresh(t *testing.T) {
	an, err := NewAnalyzer(256, 0, -100, -30)
	require.NoError(t, err)
	src := &sliceSource{data: make([]float32, 256)}
	b := NewBridge(src, an)

	v, ok := b.Refresh()
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
	assert.Len(t, b.bins, 128)

	src.data = sine(256, 8, 0.5)
	v, ok = b.Refresh()
	require.True(t, ok)
	assert.Greater(t, v, 0.0)
	assert.Equal(t, Mean(b.bins), v)

	require.NoError(t, b.Close())
	assert.True(t, src.closed)
}

func TestAcquireDisabled(t *testing.T) {
	cfg := config.DefaultConfig().Audio
	cfg.Enabled = false

	b, grant := Acquire(cfg, quietLogger())
	assert.Equal(t, capability.Denied, grant.Status)
	assert.NotEmpty(t, grant.Reason)
	assert.False(t, b.Available())
}

func TestAcquireMissingFileIsDenied(t *testing.T) {
	cfg := config.DefaultConfig().Audio
	cfg.Source = "file"
	cfg.File = filepath.Join(t.TempDir(), "missing.wav")

	b, grant := Acquire(cfg, quietLogger())
	assert.False(t, grant.OK())
	_, ok := b.Refresh()
	assert.False(t, ok)
}

func TestAcquireUnknownSource(t *testing.T) {
	cfg := config.DefaultConfig().Audio
	cfg.Source = "radio"

	_, grant := Acquire(cfg, quietLogger())
	assert.False(t, grant.OK())
	assert.Contains(t, grant.Reason, "radio")
}

func writeWav(t *testing.T, path string, rate, chans int, data []int) {
	t.Helper()
	writeWavDepth(t, path, rate, 16, chans, data)
}

func writeWavDepth(t *testing.T, path string, rate, depth, chans int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, depth, chans, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: chans, SampleRate: rate},
		Data:           data,
		SourceBitDepth: depth,
	}))
	require.NoError(t, enc.Close())
}

func TestOpenFileMixesToMono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeWav(t, path, 8000, 2, []int{16384, 0, -16384, -16384, 0, 16384})

	src, err := OpenFile(path)
	require.NoError(t, err)
	require.Len(t, src.samples, 3)
	assert.InDelta(t, 0.25, src.samples[0], 1e-6)
	assert.InDelta(t, -0.5, src.samples[1], 1e-6)
	assert.InDelta(t, 0.25, src.samples[2], 1e-6)
	assert.Equal(t, 8000, src.sampleRate)
}

func TestOpenFileEightBitIsCentred(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u8.wav")
	writeWavDepth(t, path, 8000, 8, 1, []int{128, 128, 255, 0})

	src, err := OpenFile(path)
	require.NoError(t, err)
	require.Len(t, src.samples, 4)
	assert.Equal(t, float32(0), src.samples[0])
	assert.Equal(t, float32(0), src.samples[1])
	assert.InDelta(t, 127.0/128.0, src.samples[2], 1e-6)
	assert.InDelta(t, -1, src.samples[3], 1e-6)
}

func TestSilentEightBitFileIsQuiet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence.wav")
	data := make([]int, 512)
	for i := range data {
		data[i] = 128
	}
	writeWavDepth(t, path, 8000, 8, 1, data)

	src, err := OpenFile(path)
	require.NoError(t, err)

	an, err := NewAnalyzer(256, 0, -100, -30)
	require.NoError(t, err)
	an.Process(src.samples[:256])
	bins := make([]uint8, an.BinCount())
	an.ByteFrequencyData(bins)
	assert.Equal(t, 0.0, Mean(bins))
}

func TestAcquireFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	data := make([]int, 4096)
	for i := range data {
		data[i] = int(8000 * math.Sin(2*math.Pi*float64(i)/32))
	}
	writeWav(t, path, 44100, 1, data)

	cfg := config.DefaultConfig().Audio
	cfg.Source = "file"
	cfg.File = path

	b, grant := Acquire(cfg, quietLogger())
	require.True(t, grant.OK(), grant.String())
	defer b.Close()

	_, ok := b.Refresh()
	assert.True(t, ok)
}

func TestFileSourcePlaysInRealTime(t *testing.T) {
	samples := make([]float32, 10)
	for i := range samples {
		samples[i] = float32(i)
	}
	now := time.Unix(100, 0)
	src := NewFileSource(samples, 10, func() time.Time { return now })

	// nothing has played yet
	dst := make([]float32, 3)
	src.Read(dst)
	assert.Equal(t, []float32{0, 0, 0}, dst)

	// only the first two samples have played
	now = now.Add(200 * time.Millisecond)
	src.Read(dst)
	assert.Equal(t, []float32{0, 0, 1}, dst)

	now = now.Add(300 * time.Millisecond)
	assert.Equal(t, 5, src.Position())
	src.Read(dst)
	assert.Equal(t, []float32{2, 3, 4}, dst)

	now = now.Add(time.Second)
	assert.Equal(t, 5, src.Position(), "playback loops")

	// after the first pass the window wraps into the end of the clip
	now = now.Add(-400 * time.Millisecond)
	assert.Equal(t, 1, src.Position())
	src.Read(dst)
	assert.Equal(t, []float32{8, 9, 0}, dst)
}
