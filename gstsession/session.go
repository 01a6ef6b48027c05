package gstsession

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	cameracapture "github.com/e7canasta/orion-care-sensor/modules/camera-capture"
)

// Session is one running pipeline.
type Session struct {
	id       string
	device   string
	format   cameracapture.Format
	consumer cameracapture.Consumer
	events   cameracapture.SessionEvents
	elements *pipelineElements
	log      *slog.Logger

	frameCounter   uint64 // atomic
	bytesRead      uint64 // atomic
	consumerErrors uint64 // atomic

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newSession(req cameracapture.SessionRequest, elements *pipelineElements, events cameracapture.SessionEvents, logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       uuid.New().String(),
		device:   req.DeviceName,
		format:   req.Format,
		consumer: req.Consumer,
		events:   events,
		elements: elements,
		log:      logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	return s
}

// ID returns the session UUID.
func (s *Session) ID() string { return s.id }

// Frames returns the number of frames delivered so far.
func (s *Session) Frames() uint64 { return atomic.LoadUint64(&s.frameCounter) }

// Stop tears down the pipeline and reports the close. Idempotent.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.wg.Wait()

		if err := destroyPipeline(s.elements); err != nil {
			s.log.Warn("camera-capture: pipeline teardown failed", "session_id", s.id, "error", err)
		}

		s.log.Info("camera-capture: session closed",
			"device", s.device,
			"session_id", s.id,
			"frames", atomic.LoadUint64(&s.frameCounter),
			"bytes_read", atomic.LoadUint64(&s.bytesRead),
			"consumer_errors", atomic.LoadUint64(&s.consumerErrors),
		)
		s.events.OnCameraClosed(s)
	})
}

func (s *Session) startMonitor() {
	s.wg.Add(1)
	go s.monitorBus()
}

// monitorBus forwards runtime pipeline errors until Stop.
func (s *Session) monitorBus() {
	defer s.wg.Done()

	bus := s.elements.Pipeline.GetPipelineBus()
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			s.log.Warn("camera-capture: end of stream", "device", s.device, "session_id", s.id)
			s.events.OnCameraDisconnected(s)
			return

		case gst.MessageError:
			gerr := msg.ParseError()
			failure := ClassifyError(gerr)
			s.log.Error("camera-capture: pipeline error",
				"device", s.device,
				"session_id", s.id,
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
				"failure", failure,
			)
			if failure == cameracapture.FailureDisconnected {
				s.events.OnCameraDisconnected(s)
			} else {
				s.events.OnCameraError(s, gerr.Error())
			}
			return
		}
	}
}

// onNewSample copies the mapped buffer into a Frame, hands it to the
// consumer and to the capturer.
func (s *Session) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		s.log.Warn("camera-capture: failed to pull sample, skipping frame", "session_id", s.id)
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		s.log.Warn("camera-capture: sample without buffer, skipping frame", "session_id", s.id)
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	seq := atomic.AddUint64(&s.frameCounter, 1)
	atomic.AddUint64(&s.bytesRead, uint64(len(frameData)))

	frame := cameracapture.Frame{
		Kind:      cameracapture.FrameByteBuffer,
		Seq:       seq,
		Timestamp: time.Now(),
		Width:     s.format.Width,
		Height:    s.format.Height,
		Data:      frameData,
		TraceID:   uuid.New().String(),
	}

	if s.consumer != nil {
		if err := s.consumer.WriteFrame(frame); err != nil {
			atomic.AddUint64(&s.consumerErrors, 1)
			s.log.Debug("camera-capture: consumer rejected frame", "seq", seq, "trace_id", frame.TraceID, "error", err)
		}
	}
	s.events.OnFrameCaptured(s, frame)

	return gst.FlowOK
}
