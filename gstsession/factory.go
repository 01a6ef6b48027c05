// Package gstsession opens camera sessions with GStreamer.
//
// Each session runs its own pipeline:
//
//	v4l2src device=<name> → videoconvert → videoscale → videorate → capsfilter → appsink
//
// and delivers RGB frames to the capturer and to the attached consumer.
// Requires the gstreamer1.0 runtime with the base and good plugins.
package gstsession

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	cameracapture "github.com/e7canasta/orion-care-sensor/modules/camera-capture"
)

// Options configures a Factory.
type Options struct {
	// Source is the source element (default: v4l2src). videotestsrc
	// works without a camera.
	Source string
	// StartTimeout bounds the wait for PLAYING (default: 5s)
	StartTimeout time.Duration
	// Logger overrides slog.Default()
	Logger *slog.Logger
}

// Factory implements cameracapture.SessionFactory.
type Factory struct {
	opts Options
	log  *slog.Logger
}

// NewFactory fails fast if GStreamer or the source element is missing.
func NewFactory(opts Options) (*Factory, error) {
	if opts.Source == "" {
		opts.Source = "v4l2src"
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := checkElementsAvailable(opts.Source); err != nil {
		return nil, err
	}

	return &Factory{opts: opts, log: logger}, nil
}

// CreateSession builds and starts a pipeline in the background and
// resolves callback once it is PLAYING or has failed.
func (f *Factory) CreateSession(req cameracapture.SessionRequest, callback cameracapture.SessionCallback, events cameracapture.SessionEvents) {
	go f.open(req, callback, events)
}

func (f *Factory) open(req cameracapture.SessionRequest, callback cameracapture.SessionCallback, events cameracapture.SessionEvents) {
	events.OnCameraOpening()

	elements, err := buildPipeline(f.opts.Source, req.DeviceName, req.Format)
	if err != nil {
		f.log.Error("camera-capture: pipeline build failed", "device", req.DeviceName, "error", err)
		callback.OnFailure(cameracapture.FailureError, err.Error())
		return
	}

	s := newSession(req, elements, events, f.log)

	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		destroyPipeline(elements)
		callback.OnFailure(cameracapture.FailureError, fmt.Sprintf("failed to start pipeline: %v", err))
		return
	}

	if failure, message, ok := waitForPlaying(elements.Pipeline, f.opts.StartTimeout); !ok {
		f.log.Warn("camera-capture: pipeline did not start",
			"device", req.DeviceName,
			"failure", failure,
			"error", message,
		)
		destroyPipeline(elements)
		callback.OnFailure(failure, message)
		return
	}

	f.log.Info("camera-capture: pipeline playing",
		"device", req.DeviceName,
		"session_id", s.ID(),
		"caps", buildCaps(req.Format),
		"consumer", req.Consumer != nil,
	)
	s.startMonitor()
	callback.OnDone(s)
}

// waitForPlaying pops bus messages until the pipeline reaches PLAYING,
// reports an error, or timeout elapses.
func waitForPlaying(pipeline *gst.Pipeline, timeout time.Duration) (cameracapture.FailureType, string, bool) {
	bus := pipeline.GetPipelineBus()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageError:
			gerr := msg.ParseError()
			return ClassifyError(gerr), gerr.Error(), false

		case gst.MessageEOS:
			return cameracapture.FailureDisconnected, "end of stream before PLAYING", false

		case gst.MessageStateChanged:
			if msg.Source() != pipeline.GetName() {
				continue
			}
			if _, newState := msg.ParseStateChanged(); newState == gst.StatePlaying {
				return cameracapture.FailureError, "", true
			}
		}
	}

	return cameracapture.FailureError, fmt.Sprintf("pipeline did not reach PLAYING within %s", timeout), false
}

func checkElementsAvailable(source string) error {
	gst.Init(nil)

	for _, name := range []string{source, "videoconvert", "videoscale", "videorate"} {
		elem, err := gst.NewElement(name)
		if err != nil {
			return fmt.Errorf("GStreamer element %s not available: %w", name, err)
		}
		elem.SetState(gst.StateNull)
	}
	return nil
}
