// Package media runs the GStreamer pipelines behind the mirror pane video
// and the camera overlay, and keeps the newest decoded frame of each.
package media

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoFrame is returned when a stream produced nothing before the deadline.
var ErrNoFrame = errors.New("no frame received")

// Frame is one decoded RGBA picture, rows top to bottom.
type Frame struct {
	Seq       uint64
	Width     int
	Height    int
	Pix       []byte
	Timestamp time.Time
	TraceID   string
}

// Aspect is width over height, or 0 for an empty frame.
func (f Frame) Aspect() float64 {
	if f.Height == 0 {
		return 0
	}
	return float64(f.Width) / float64(f.Height)
}

// Slot holds only the latest frame. Producers overwrite, the renderer
// polls by sequence number.
type Slot struct {
	mu    sync.Mutex
	frame Frame
	has   bool
	first chan struct{}
}

func NewSlot() *Slot {
	return &Slot{first: make(chan struct{})}
}

// Put stores a copy-free frame and returns its sequence number. pix must
// not be modified by the caller afterwards.
func (s *Slot) Put(width, height int, pix []byte) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.frame.Seq + 1
	s.frame = Frame{
		Seq:       seq,
		Width:     width,
		Height:    height,
		Pix:       pix,
		Timestamp: time.Now(),
		TraceID:   uuid.New().String(),
	}
	if !s.has {
		s.has = true
		close(s.first)
	}
	return seq
}

// Latest returns the newest frame, false before the first Put.
func (s *Slot) Latest() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame, s.has
}

// Seq is the sequence number of the newest frame, 0 when empty.
func (s *Slot) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame.Seq
}

// WaitFirst blocks until the first frame arrives, the timeout elapses or
// ctx is done.
func (s *Slot) WaitFirst(ctx context.Context, timeout time.Duration) (Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.first:
		f, _ := s.Latest()
		return f, nil
	case <-timer.C:
		return Frame{}, ErrNoFrame
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}
