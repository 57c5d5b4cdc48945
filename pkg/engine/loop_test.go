package engine

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visuals/internal/logger"
	"visuals/pkg/capability"
	"visuals/pkg/geometry"
	"visuals/pkg/shader"
)

type fakeClock struct {
	now  time.Time
	step time.Duration
}

// Now advances by step on every call after the first.
func (c *fakeClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

type fakeAudio struct {
	level float64
	ok    bool
	calls int
}

func (a *fakeAudio) Refresh() (float64, bool) {
	a.calls++
	return a.level, a.ok
}

type recordingDrawer struct {
	times  []float64
	err    error
	failAt int
}

func (d *recordingDrawer) Draw(fc *FrameContext) error {
	d.times = append(d.times, fc.Overlay.Time)
	if d.err != nil && len(d.times) >= d.failAt {
		return d.err
	}
	return nil
}

type countingScheduler struct {
	calls   int
	closeAt int
}

func (s *countingScheduler) Next(context.Context) (bool, error) {
	s.calls++
	if s.closeAt > 0 && s.calls >= s.closeAt {
		return false, nil
	}
	return true, nil
}

func quietLogger() *logger.Logger {
	return logger.New("fatal", io.Discard)
}

func newTestContext(t *testing.T, audio Loudness, caps capability.Set) *FrameContext {
	t.Helper()
	g, err := geometry.NewPlane(10, 10, 10, 10)
	require.NoError(t, err)
	return NewFrameContext(g, audio, shader.DefaultUniforms(), caps)
}

func allGranted() capability.Set {
	return capability.Set{
		Audio:  capability.Allow("audio"),
		Camera: capability.Allow("camera"),
		Video:  capability.Allow("video"),
	}
}

func TestTickRequiresStart(t *testing.T) {
	fc := newTestContext(t, &fakeAudio{}, allGranted())
	l := NewLoop(fc, &fakeClock{now: time.Unix(0, 0)}, &recordingDrawer{}, &countingScheduler{}, 0, quietLogger())

	assert.Equal(t, Idle, l.State())
	assert.Error(t, l.Tick())

	require.NoError(t, l.Start())
	assert.Equal(t, Running, l.State())
	assert.ErrorIs(t, l.Start(), ErrAlreadyRunning)
}

func TestTickDisplacesWithAudio(t *testing.T) {
	audio := &fakeAudio{level: 64, ok: true}
	fc := newTestContext(t, audio, allGranted())
	clock := &fakeClock{now: time.Unix(1000, 0), step: 250 * time.Millisecond}
	l := NewLoop(fc, clock, &recordingDrawer{}, &countingScheduler{}, 0, quietLogger())

	require.NoError(t, l.Start())
	require.NoError(t, l.Tick())

	assert.Equal(t, 0.25, fc.Elapsed)
	assert.True(t, fc.HasAudio)
	assert.Equal(t, uint64(1), fc.Displaced)

	x, y := fc.Grid.XY(7)
	assert.InDelta(t, geometry.Wave(x, y, 0.25, 64), fc.Grid.Z(7), 1e-6)
	assert.True(t, fc.Grid.TakeDirty())
}

func TestTickWithoutAudioLeavesGridFlat(t *testing.T) {
	caps := allGranted()
	caps.Audio = capability.Deny("audio", "no device")
	audio := &fakeAudio{ok: false}
	fc := newTestContext(t, audio, caps)
	l := NewLoop(fc, &fakeClock{now: time.Unix(0, 0), step: time.Second}, &recordingDrawer{}, &countingScheduler{}, 0, quietLogger())

	require.NoError(t, l.Start())
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Tick())
	}

	assert.Equal(t, 5, audio.calls)
	assert.Equal(t, uint64(0), fc.Displaced)
	for i := 0; i < fc.Grid.Count(); i++ {
		require.Equal(t, 0.0, fc.Grid.Z(i))
	}
	assert.False(t, fc.Grid.TakeDirty())
}

func TestTickDisplaceWithoutAudioOption(t *testing.T) {
	fc := newTestContext(t, &fakeAudio{ok: false}, allGranted())
	fc.DisplaceWithoutAudio = true
	l := NewLoop(fc, &fakeClock{now: time.Unix(0, 0), step: time.Second}, &recordingDrawer{}, &countingScheduler{}, 0, quietLogger())

	require.NoError(t, l.Start())
	require.NoError(t, l.Tick())

	assert.Equal(t, uint64(1), fc.Displaced)
	x, y := fc.Grid.XY(3)
	assert.InDelta(t, geometry.Wave(x, y, 1, 0), fc.Grid.Z(3), 1e-6)
}

func TestOverlayTimeAdvancesPerTick(t *testing.T) {
	fc := newTestContext(t, &fakeAudio{ok: true}, allGranted())
	drawer := &recordingDrawer{}
	l := NewLoop(fc, &fakeClock{now: time.Unix(0, 0)}, drawer, &countingScheduler{}, 4, quietLogger())

	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, []float64{0.5, 1.0, 1.5, 2.0}, drawer.times)
	assert.Equal(t, uint64(4), fc.Ticks)
}

func TestCameraDeniedFreezesOverlayTime(t *testing.T) {
	caps := allGranted()
	caps.Camera = capability.Deny("camera", "permission refused")
	fc := newTestContext(t, &fakeAudio{ok: true}, caps)
	assert.False(t, fc.OverlayEnabled)

	drawer := &recordingDrawer{}
	l := NewLoop(fc, &fakeClock{now: time.Unix(0, 0)}, drawer, &countingScheduler{}, 3, quietLogger())
	require.NoError(t, l.Run(context.Background()))

	assert.Equal(t, []float64{0, 0, 0}, drawer.times)
}

func TestRunStopsWhenHostCloses(t *testing.T) {
	fc := newTestContext(t, &fakeAudio{ok: true}, allGranted())
	sched := &countingScheduler{closeAt: 3}
	l := NewLoop(fc, &fakeClock{now: time.Unix(0, 0)}, &recordingDrawer{}, sched, 0, quietLogger())

	require.NoError(t, l.Run(context.Background()))
	assert.Equal(t, uint64(3), fc.Ticks)
	assert.Equal(t, 3, sched.calls)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fc := newTestContext(t, &fakeAudio{ok: true}, allGranted())
	drawer := &recordingDrawer{}
	l := NewLoop(fc, &fakeClock{now: time.Unix(0, 0)}, drawer, &countingScheduler{}, 0, quietLogger())

	require.NoError(t, l.Run(ctx))
	assert.Empty(t, drawer.times)
	assert.Equal(t, Running, l.State())
}

func TestRunAbortsOnDrawError(t *testing.T) {
	boom := errors.New("context lost")
	fc := newTestContext(t, &fakeAudio{ok: true}, allGranted())
	drawer := &recordingDrawer{err: boom, failAt: 2}
	sched := &countingScheduler{}
	l := NewLoop(fc, &fakeClock{now: time.Unix(0, 0)}, drawer, sched, 0, quietLogger())

	err := l.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1), fc.Ticks)
	assert.Equal(t, 1, sched.calls)
}
