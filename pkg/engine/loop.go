package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"visuals/internal/logger"
	"visuals/pkg/capability"
	"visuals/pkg/geometry"
	"visuals/pkg/shader"
)

// State of the frame loop. A loop moves from Idle to Running once.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// ErrAlreadyRunning is returned by Start on a running loop.
var ErrAlreadyRunning = errors.New("frame loop already running")

// Clock supplies wall time to the loop.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real time source.
var SystemClock Clock = systemClock{}

// Loudness is the per-tick audio reading. audio.Bridge implements it.
type Loudness interface {
	Refresh() (float64, bool)
}

// Drawer renders one frame from the context.
type Drawer interface {
	Draw(fc *FrameContext) error
}

// Scheduler paces the loop between ticks. Next returns false once the host
// wants to stop (window closed, escape pressed).
type Scheduler interface {
	Next(ctx context.Context) (bool, error)
}

// FrameContext is everything a tick reads or mutates.
type FrameContext struct {
	Grid    *geometry.Grid
	Audio   Loudness
	Overlay shader.Uniforms
	Caps    capability.Set

	// OverlayEnabled is true only when the camera was granted.
	OverlayEnabled       bool
	DisplaceWithoutAudio bool
	TimeStep             float64

	Start     time.Time
	Elapsed   float64
	Loudness  float64
	HasAudio  bool
	Ticks     uint64
	Displaced uint64
}

// NewFrameContext builds a context with the capability flags derived from
// the grants.
func NewFrameContext(grid *geometry.Grid, audio Loudness, overlay shader.Uniforms, caps capability.Set) *FrameContext {
	return &FrameContext{
		Grid:           grid,
		Audio:          audio,
		Overlay:        overlay,
		Caps:           caps,
		OverlayEnabled: caps.Camera.OK(),
		TimeStep:       0.5,
	}
}

// Loop drives ticks: refresh audio, deform the plane, advance the overlay
// clock and draw.
type Loop struct {
	fc       *FrameContext
	clock    Clock
	drawer   Drawer
	sched    Scheduler
	maxTicks uint64
	state    State
	logger   *logger.Logger
}

// NewLoop creates an idle loop. maxTicks 0 means unbounded.
func NewLoop(fc *FrameContext, clock Clock, drawer Drawer, sched Scheduler, maxTicks uint64, log *logger.Logger) *Loop {
	if clock == nil {
		clock = SystemClock
	}
	return &Loop{
		fc:       fc,
		clock:    clock,
		drawer:   drawer,
		sched:    sched,
		maxTicks: maxTicks,
		logger:   log,
	}
}

func (l *Loop) State() State { return l.state }

func (l *Loop) Context() *FrameContext { return l.fc }

// Start records the start time and moves the loop to Running.
func (l *Loop) Start() error {
	if l.state == Running {
		return ErrAlreadyRunning
	}
	l.fc.Start = l.clock.Now()
	l.state = Running
	l.logger.Infof("Frame loop started (%s)", joinGrants(l.fc.Caps))
	return nil
}

// Tick performs one iteration. Any draw error is returned unchanged so the
// caller can stop.
func (l *Loop) Tick() error {
	if l.state != Running {
		return fmt.Errorf("tick on %s loop", l.state)
	}
	fc := l.fc

	fc.Elapsed = l.clock.Now().Sub(fc.Start).Seconds()

	fc.Loudness, fc.HasAudio = 0, false
	if fc.Audio != nil {
		fc.Loudness, fc.HasAudio = fc.Audio.Refresh()
	}

	if fc.Grid != nil && (fc.HasAudio || fc.DisplaceWithoutAudio) {
		geometry.Displace(fc.Grid, fc.Elapsed, fc.Loudness)
		fc.Displaced++
	}

	if fc.OverlayEnabled {
		fc.Overlay.Advance(fc.TimeStep)
	}

	if err := l.drawer.Draw(fc); err != nil {
		return err
	}
	fc.Ticks++
	return nil
}

// Run starts the loop and ticks until ctx is done, the tick budget is used
// up or the scheduler reports the host closed. A tick error ends the loop.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Start(); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			l.logger.Info("Frame loop cancelled")
			return nil
		}

		if err := l.Tick(); err != nil {
			return fmt.Errorf("frame %d failed: %w", l.fc.Ticks, err)
		}

		if l.maxTicks > 0 && l.fc.Ticks >= l.maxTicks {
			l.logger.Infof("Frame loop reached %d ticks", l.fc.Ticks)
			return nil
		}

		more, err := l.sched.Next(ctx)
		if err != nil {
			return fmt.Errorf("failed to schedule next frame: %w", err)
		}
		if !more {
			l.logger.Infof("Frame loop stopped by host after %d ticks", l.fc.Ticks)
			return nil
		}
	}
}

func joinGrants(s capability.Set) string {
	return strings.Join(s.Summary(), ", ")
}
