package cameracapture

import (
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestRouter_FirstFrameOncePerSession verifies the first-frame
// notification fires once per session and every frame reaches the sinks.
func TestRouter_FirstFrameOncePerSession(t *testing.T) {
	h := newHarness(t, twoCameras())
	session := h.open()
	events := h.factory.last(t).events

	for i := 1; i <= 3; i++ {
		events.OnFrameCaptured(session, Frame{Kind: FrameByteBuffer, Seq: uint64(i)})
	}
	h.settle()

	want := []string{"started:true", "first-frame", "frame", "frame", "frame"}
	if got := h.rec.log(); !slices.Equal(got, want) {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
	if n := h.lastStats().frames.Load(); n != 3 {
		t.Errorf("statistics saw %d frames, want 3", n)
	}

	// A new session gets its own first frame.
	h.switchDevice()
	next := h.succeed(h.factory.last(t))
	h.factory.last(t).events.OnFrameCaptured(next, Frame{Seq: 1})
	h.settle()
	if h.rec.count("first-frame") != 2 {
		t.Errorf("first-frame count = %d, want 2", h.rec.count("first-frame"))
	}
	if h.c.Stats().FramesDelivered != 4 {
		t.Errorf("FramesDelivered = %d, want 4", h.c.Stats().FramesDelivered)
	}
}

// TestRouter_StaleFramesDropped verifies frames from a superseded session
// are dropped and their buffers returned.
func TestRouter_StaleFramesDropped(t *testing.T) {
	h := newHarness(t, twoCameras())
	old := h.open()
	events := h.factory.last(t).events
	h.switchDevice()
	h.succeed(h.factory.last(t))

	var released atomic.Int32
	events.OnFrameCaptured(old, Frame{Kind: FrameTexture, TextureID: 7, Release: func() { released.Add(1) }})
	h.settle()

	if h.rec.count("frame") != 0 || h.rec.count("first-frame") != 0 {
		t.Errorf("stale frame delivered: %v", h.rec.log())
	}
	if released.Load() != 1 {
		t.Errorf("stale texture released %d times, want 1", released.Load())
	}
	if h.c.Stats().StaleEvents != 1 {
		t.Errorf("StaleEvents = %d, want 1", h.c.Stats().StaleEvents)
	}
}

// TestRouter_ErrorFromCurrentStops verifies a session error is forwarded
// and releases the session.
func TestRouter_ErrorFromCurrentStops(t *testing.T) {
	h := newHarness(t, twoCameras())
	session := h.open()

	h.factory.last(t).events.OnCameraError(session, "sensor fault")
	h.settle()

	want := []string{"started:true", "error:sensor fault", "stopped"}
	if got := h.rec.log(); !slices.Equal(got, want) {
		t.Errorf("notifications = %v, want %v", got, want)
	}
	if session.stopped.Load() != 1 {
		t.Error("errored session not stopped")
	}
}

func TestRouter_DisconnectFromCurrentStops(t *testing.T) {
	h := newHarness(t, twoCameras())
	session := h.open()

	h.factory.last(t).events.OnCameraDisconnected(session)
	h.settle()

	want := []string{"started:true", "disconnected", "stopped"}
	if got := h.rec.log(); !slices.Equal(got, want) {
		t.Errorf("notifications = %v, want %v", got, want)
	}
}

// TestRouter_StaleErrorsIgnored verifies errors from other sessions cause
// no notification and no state change.
func TestRouter_StaleErrorsIgnored(t *testing.T) {
	h := newHarness(t, twoCameras())
	current := h.open()
	events := h.factory.last(t).events
	stale := &fakeSession{id: "stale"}

	events.OnCameraError(stale, "old failure")
	events.OnCameraDisconnected(stale)
	h.settle()

	if got := h.rec.log(); !slices.Equal(got, []string{"started:true"}) {
		t.Errorf("notifications = %v", got)
	}
	if current.stopped.Load() != 0 || h.c.Stats().Phase != PhaseOpen {
		t.Error("stale error disturbed the current session")
	}
}

// TestRouter_ClosedAcceptance verifies close events are forwarded for the
// current session or when no session is current.
func TestRouter_ClosedAcceptance(t *testing.T) {
	h := newHarness(t, twoCameras())
	current := h.open()
	events := h.factory.last(t).events

	events.OnCameraClosed(&fakeSession{id: "superseded"})
	h.settle()
	if h.rec.count("closed") != 0 {
		t.Fatal("close from another session forwarded while a session is current")
	}

	events.OnCameraClosed(current)
	h.settle()
	if h.rec.count("closed") != 1 {
		t.Fatal("close from current session not forwarded")
	}

	h.c.Stop()
	events.OnCameraClosed(current)
	h.settle()
	if h.rec.count("closed") != 2 {
		t.Error("close confirmation after Stop not forwarded")
	}
}

// TestRouter_OpeningSuppressedWhileOpen verifies OnCameraOpening is only
// forwarded when no session is current.
func TestRouter_OpeningSuppressedWhileOpen(t *testing.T) {
	h := newHarness(t, twoCameras())
	if err := h.c.Start(Format{Width: 640, Height: 480, FrameRate: 30}); err != nil {
		t.Fatal(err)
	}
	h.settle()
	req := h.factory.last(t)

	req.events.OnCameraOpening()
	h.settle()
	h.succeed(req)
	req.events.OnCameraOpening()
	h.settle()

	if h.rec.count("opening:cam0") != 1 {
		t.Errorf("notifications = %v, want one opening:cam0", h.rec.log())
	}
}

// TestRouter_FreezeReportedByDefaultStatistics verifies the default sink
// reports a silent camera through the events handler.
func TestRouter_FreezeReportedByDefaultStatistics(t *testing.T) {
	h := newHarness(t, twoCameras(), withDefaultStatistics())
	session := h.open()
	events := h.factory.last(t).events

	for i := 0; i < 3; i++ {
		events.OnFrameCaptured(session, Frame{Seq: uint64(i)})
		h.settle()
		h.clk.Advance(2 * time.Second)
		h.settle()
	}
	if n := countPrefix(h.rec.log(), "freezed:"); n != 0 {
		t.Fatalf("freeze reported while frames flowed: %v", h.rec.log())
	}
	if fps := h.c.Stats().FPS; fps == nil || fps.FramesReceived != 3 {
		t.Errorf("Stats().FPS = %+v, want 3 frames", fps)
	}

	h.clk.Advance(2 * time.Second)
	h.clk.Advance(2 * time.Second)
	h.settle()
	if n := countPrefix(h.rec.log(), "freezed:"); n != 1 {
		t.Errorf("notifications = %v, want one freeze", h.rec.log())
	}
}

// TestRouter_FreezeFromReleasedSinkDropped verifies a freeze report from a
// replaced session's sink is not forwarded.
func TestRouter_FreezeFromReleasedSinkDropped(t *testing.T) {
	var reporters []FreezeReporter
	h := newHarness(t, twoCameras(), func(_ *Config, deps *Dependencies) {
		deps.Statistics = func(_ string, freeze FreezeReporter) Statistics {
			reporters = append(reporters, freeze)
			return &countingStats{}
		}
	})
	h.open()
	h.switchDevice()
	h.succeed(h.factory.last(t))

	reporters[0].OnCameraFreezed("stale")
	reporters[1].OnCameraFreezed("current")
	h.settle()

	if got := h.rec.log(); slices.Contains(got, "freezed:stale") || !slices.Contains(got, "freezed:current") {
		t.Errorf("notifications = %v", got)
	}
}

func countPrefix(entries []string, prefix string) int {
	n := 0
	for _, e := range entries {
		if strings.HasPrefix(e, prefix) {
			n++
		}
	}
	return n
}
