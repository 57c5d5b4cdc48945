package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

const framesPerBuffer = 1024

// Source supplies the newest time-domain samples.
type Source interface {
	// Read fills dst with the newest len(dst) mono samples, oldest first.
	Read(dst []float32)
	Close() error
}

// MicSource records the default input device through PortAudio.
type MicSource struct {
	ring   *Ring
	stream *portaudio.Stream
	once   sync.Once
}

// OpenMic initializes PortAudio and starts a mono input stream. The ring
// keeps a few buffers worth of history.
func OpenMic(sampleRate int) (*MicSource, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}

	m := &MicSource{ring: NewRing(framesPerBuffer * 4)}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), framesPerBuffer, m.microphoneCallback)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open microphone stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start microphone stream: %w", err)
	}
	m.stream = stream

	return m, nil
}

func (m *MicSource) microphoneCallback(in []float32) {
	m.ring.Write(in)
}

func (m *MicSource) Read(dst []float32) {
	m.ring.Latest(dst)
}

func (m *MicSource) Close() error {
	var err error
	m.once.Do(func() {
		if stopErr := m.stream.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop microphone stream: %w", stopErr)
		}
		if closeErr := m.stream.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close microphone stream: %w", closeErr)
		}
		portaudio.Terminate()
	})
	return err
}

// FileSource plays a decoded clip in real time, looping forever. It stands
// in for the microphone on machines without one.
type FileSource struct {
	samples    []float32
	sampleRate int
	start      time.Time
	now        func() time.Time
}

// OpenFile decodes a WAV file and mixes it down to mono.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file: %s", path)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(d.BitDepth)
	}
	samples := mixDown(buf, bitDepth)
	if len(samples) == 0 {
		return nil, fmt.Errorf("audio file %s has no samples", path)
	}

	return NewFileSource(samples, int(d.SampleRate), time.Now), nil
}

// NewFileSource plays already decoded mono samples; now is the clock used
// to compute the playback position.
func NewFileSource(samples []float32, sampleRate int, now func() time.Time) *FileSource {
	if now == nil {
		now = time.Now
	}
	return &FileSource{
		samples:    samples,
		sampleRate: sampleRate,
		start:      now(),
		now:        now,
	}
}

func mixDown(buf *goaudio.IntBuffer, bitDepth int) []float32 {
	chans := 1
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		chans = buf.Format.NumChannels
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << uint(bitDepth-1))
	// 8-bit PCM is unsigned, centred on 128
	var offset float32
	if bitDepth == 8 {
		offset = scale
	}

	frames := len(buf.Data) / chans
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < chans; c++ {
			sum += float32(buf.Data[i*chans+c]) - offset
		}
		out[i] = sum / float32(chans) / scale
	}
	return out
}

// Position is the index of the next sample to be played.
func (f *FileSource) Position() int {
	return f.played() % len(f.samples)
}

// played counts samples since the start, without wrapping.
func (f *FileSource) played() int {
	elapsed := f.now().Sub(f.start).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return int(elapsed * float64(f.sampleRate))
}

// Read fills dst with the samples that played last. Before the first
// len(dst) samples have played the missing head of the window is silent.
func (f *FileSource) Read(dst []float32) {
	n := len(f.samples)
	from := f.played() - len(dst)
	idx := 0
	if from > 0 {
		idx = from % n
	}
	for i := range dst {
		if from+i < 0 {
			dst[i] = 0
			continue
		}
		dst[i] = f.samples[idx]
		idx++
		if idx == n {
			idx = 0
		}
	}
}

func (f *FileSource) Close() error { return nil }
