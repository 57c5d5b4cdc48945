package media

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"visuals/internal/logger"
	"visuals/internal/util"
	"visuals/pkg/capability"
	"visuals/pkg/config"
)

const sinkName = "sink"

// sinkChain converts whatever the source produces into packed RGBA and
// keeps only the newest buffer.
const sinkChain = "videoconvert ! video/x-raw,format=RGBA ! appsink name=" + sinkName +
	" sync=true max-buffers=1 drop=true"

// VideoPipeline describes a muted file playback pipeline.
func VideoPipeline(path string) string {
	return fmt.Sprintf(`filesrc location="%s" ! decodebin ! %s`, escape(path), sinkChain)
}

// CameraPipeline describes a live capture pipeline. An empty device picks
// the platform default source.
func CameraPipeline(device string) string {
	src := "autovideosrc"
	if device != "" {
		src = fmt.Sprintf(`v4l2src device="%s"`, escape(device))
	}
	// live sources must not wait for the clock
	return src + " ! " + strings.Replace(sinkChain, "sync=true", "sync=false", 1)
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// Stream is a running pipeline feeding a Slot.
type Stream struct {
	name     string
	loop     bool
	pipeline *gst.Pipeline
	slot     *Slot
	log      *logger.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// OpenVideo starts looping playback of a video file.
func OpenVideo(ctx context.Context, path string, log *logger.Logger) (*Stream, error) {
	return open(ctx, "video", VideoPipeline(path), true, log)
}

// OpenCamera starts capturing from a camera device.
func OpenCamera(ctx context.Context, device string, log *logger.Logger) (*Stream, error) {
	return open(ctx, "camera", CameraPipeline(device), false, log)
}

func open(ctx context.Context, name, desc string, loop bool, log *logger.Logger) (*Stream, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipelineFromString(desc)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pipeline: %w", name, err)
	}

	elem, err := pipeline.GetElementByName(sinkName)
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("failed to find %s appsink: %w", name, err)
	}
	sink := app.SinkFromElement(elem)

	s := &Stream{
		name:     name,
		loop:     loop,
		pipeline: pipeline,
		slot:     NewSlot(),
		log:      log,
	}

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("failed to start %s pipeline: %w", name, err)
	}

	monitorCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.monitorBus(monitorCtx); err != nil {
			s.log.Errorf("%s pipeline stopped: %v", s.name, err)
		}
	}()

	log.Debugf("%s pipeline: %s", name, desc)
	return s, nil
}

func (s *Stream) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}

	width, height, err := sampleSize(sample)
	if err != nil {
		s.log.Warnf("%s: %v", s.name, err)
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}
	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) < width*height*4 {
		buffer.Unmap()
		s.log.Warnf("%s: short buffer, %d bytes for %dx%d", s.name, len(data), width, height)
		return gst.FlowOK
	}

	// the buffer is reused by GStreamer once unmapped
	pix := make([]byte, width*height*4)
	copy(pix, data)
	buffer.Unmap()

	s.slot.Put(width, height, pix)
	return gst.FlowOK
}

func sampleSize(sample *gst.Sample) (int, int, error) {
	caps := sample.GetCaps()
	if caps == nil || caps.GetSize() == 0 {
		return 0, 0, fmt.Errorf("sample without caps")
	}
	st := caps.GetStructureAt(0)
	w, err := st.GetValue("width")
	if err != nil {
		return 0, 0, fmt.Errorf("caps without width: %w", err)
	}
	h, err := st.GetValue("height")
	if err != nil {
		return 0, 0, fmt.Errorf("caps without height: %w", err)
	}
	width, ok1 := w.(int)
	height, ok2 := h.(int)
	if !ok1 || !ok2 || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("unexpected frame size %v x %v", w, h)
	}
	return width, height, nil
}

func (s *Stream) monitorBus(ctx context.Context) error {
	bus := s.pipeline.GetPipelineBus()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			if !s.loop {
				return fmt.Errorf("end of stream")
			}
			if !s.pipeline.SeekSimple(0, gst.FormatTime, gst.SeekFlagFlush|gst.SeekFlagKeyUnit) {
				return fmt.Errorf("failed to rewind")
			}
			last, _ := s.slot.Latest()
			s.log.Debugf("%s rewound after frame %d (%s)", s.name, last.Seq, last.TraceID)

		case gst.MessageError:
			gerr := msg.ParseError()
			s.log.Debugf("%s debug info: %s", s.name, gerr.DebugString())
			return fmt.Errorf("pipeline error: %s", gerr.Error())

		case gst.MessageStateChanged:
			if msg.Source() == s.pipeline.GetName() {
				old, state := msg.ParseStateChanged()
				s.log.Debugf("%s state %s -> %s", s.name, old, state)
			}
		}
	}
}

func (s *Stream) Name() string { return s.name }

func (s *Stream) Slot() *Slot { return s.slot }

// Close stops the bus monitor and tears the pipeline down.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		if stateErr := s.pipeline.SetState(gst.StateNull); stateErr != nil {
			err = fmt.Errorf("failed to stop %s pipeline: %w", s.name, stateErr)
		}
	})
	return err
}

// Opener starts a stream; OpenVideo and OpenCamera bound to their argument.
type Opener func(ctx context.Context) (*Stream, error)

// Acquire opens a stream and waits for its first frame. A stream that fails
// to start or stays silent past the timeout is closed and denied.
func Acquire(ctx context.Context, name string, open Opener, timeout time.Duration, log *logger.Logger) (*Stream, Frame, capability.Grant) {
	started := time.Now()
	s, err := open(ctx)
	if err != nil {
		log.Warnf("%s unavailable: %v", name, err)
		return nil, Frame{}, capability.DenyErr(name, err)
	}

	first, err := s.slot.WaitFirst(ctx, timeout)
	if err != nil {
		log.Warnf("%s produced no frame within %s: %v", name, timeout, err)
		if closeErr := s.Close(); closeErr != nil {
			log.Debugf("%s close: %v", name, closeErr)
		}
		return nil, Frame{}, capability.DenyErr(name, err)
	}

	log.Infof("%s streaming at %dx%d, first frame %s after %s", name, first.Width, first.Height,
		first.TraceID, first.Timestamp.Sub(started).Round(time.Millisecond))
	return s, first, capability.Allow(name)
}

// AcquireVideo opens the configured background video.
func AcquireVideo(ctx context.Context, cfg config.MediaConfig, log *logger.Logger) (*Stream, Frame, capability.Grant) {
	if cfg.VideoPath == "" {
		return nil, Frame{}, capability.Deny("video", "no video path configured")
	}
	if !util.FileExists(cfg.VideoPath) {
		return nil, Frame{}, capability.Deny("video", cfg.VideoPath+" not found")
	}
	open := func(ctx context.Context) (*Stream, error) { return OpenVideo(ctx, cfg.VideoPath, log) }
	return Acquire(ctx, "video", open, firstFrameTimeout(cfg), log)
}

// AcquireCamera opens the configured camera.
func AcquireCamera(ctx context.Context, cfg config.MediaConfig, log *logger.Logger) (*Stream, Frame, capability.Grant) {
	if !cfg.CameraEnabled {
		return nil, Frame{}, capability.Deny("camera", "disabled in configuration")
	}
	open := func(ctx context.Context) (*Stream, error) { return OpenCamera(ctx, cfg.CameraDevice, log) }
	return Acquire(ctx, "camera", open, firstFrameTimeout(cfg), log)
}

func firstFrameTimeout(cfg config.MediaConfig) time.Duration {
	if cfg.FirstFrameMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(cfg.FirstFrameMS) * time.Millisecond
}
