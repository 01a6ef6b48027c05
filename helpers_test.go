package cameracapture

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-care-sensor/modules/camera-capture/internal/clock"
)

type fakeSession struct {
	id      string
	device  string
	stopped atomic.Int32
}

func (s *fakeSession) ID() string { return s.id }
func (s *fakeSession) Stop()      { s.stopped.Add(1) }

type openRequest struct {
	req      SessionRequest
	callback SessionCallback
	events   SessionEvents
}

func (o openRequest) resolved() bool {
	return o.callback.(*openCallback).resolved.Load()
}

// fakeFactory records every CreateSession call; tests resolve them.
type fakeFactory struct {
	mu       sync.Mutex
	requests []openRequest
}

func (f *fakeFactory) CreateSession(req SessionRequest, callback SessionCallback, events SessionEvents) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, openRequest{req: req, callback: callback, events: events})
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeFactory) last(t *testing.T) openRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no session requested")
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeFactory) unresolved() []openRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []openRequest
	for _, r := range f.requests {
		if !r.resolved() {
			out = append(out, r)
		}
	}
	return out
}

type fakeEnumerator struct {
	names []string
	front map[string]bool
}

func (e *fakeEnumerator) DeviceNames() []string          { return slices.Clone(e.names) }
func (e *fakeEnumerator) IsFrontFacing(name string) bool { return e.front[name] }

// recorder implements Observer and EventsHandler, logging calls in
// arrival order.
type recorder struct {
	mu      sync.Mutex
	entries []string
	frames  []Frame

	onFirstFrame func()
}

func (r *recorder) add(entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recorder) log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

func (r *recorder) count(entry string) int {
	n := 0
	for _, e := range r.log() {
		if e == entry {
			n++
		}
	}
	return n
}

func (r *recorder) OnCapturerStarted(success bool) { r.add(fmt.Sprintf("started:%v", success)) }
func (r *recorder) OnCapturerStopped()             { r.add("stopped") }
func (r *recorder) OnFrameCaptured(frame Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, frame)
	r.mu.Unlock()
	r.add("frame")
}
func (r *recorder) OnCameraError(message string)   { r.add("error:" + message) }
func (r *recorder) OnCameraDisconnected()          { r.add("disconnected") }
func (r *recorder) OnCameraFreezed(message string) { r.add("freezed:" + message) }
func (r *recorder) OnCameraOpening(name string)    { r.add("opening:" + name) }
func (r *recorder) OnCameraClosed()                { r.add("closed") }
func (r *recorder) OnFirstFrameAvailable() {
	r.add("first-frame")
	if r.onFirstFrame != nil {
		r.onFirstFrame()
	}
}

// countingStats is a Statistics sink that only counts.
type countingStats struct {
	frames   atomic.Int64
	released atomic.Int32
}

func (s *countingStats) AddFrame() { s.frames.Add(1) }
func (s *countingStats) Release()  { s.released.Add(1) }

type harness struct {
	t       *testing.T
	c       *Capturer
	clk     *clock.FakeClock
	factory *fakeFactory
	rec     *recorder

	statsMu sync.Mutex
	stats   []*countingStats
}

type harnessOption func(*Config, *Dependencies)

func withDefaultStatistics() harnessOption {
	return func(_ *Config, deps *Dependencies) { deps.Statistics = nil }
}

func newHarness(t *testing.T, enum *fakeEnumerator, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		t:       t,
		clk:     clock.Fake(time.Unix(0, 0)),
		factory: &fakeFactory{},
		rec:     &recorder{},
	}

	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := Dependencies{
		Enumerator: enum,
		Factory:    h.factory,
		Observer:   h.rec,
		Events:     h.rec,
		Statistics: h.newStats,
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	c, err := newCapturer(cfg, deps, h.clk)
	if err != nil {
		t.Fatalf("newCapturer: %v", err)
	}
	h.c = c
	t.Cleanup(h.shutdown)
	return h
}

func twoCameras() *fakeEnumerator {
	return &fakeEnumerator{
		names: []string{"cam0", "cam1"},
		front: map[string]bool{"cam1": true},
	}
}

func (h *harness) newStats(string, FreezeReporter) Statistics {
	s := &countingStats{}
	h.statsMu.Lock()
	h.stats = append(h.stats, s)
	h.statsMu.Unlock()
	return s
}

func (h *harness) lastStats() *countingStats {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	if len(h.stats) == 0 {
		h.t.Fatal("no statistics sink created")
	}
	return h.stats[len(h.stats)-1]
}

// settle runs queued worker tasks and notifications, including the
// ones they queue in turn.
func (h *harness) settle() {
	for i := 0; i < 4; i++ {
		h.c.camera.Flush()
		h.c.dispatch.Flush()
	}
}

func (h *harness) succeed(req openRequest) *fakeSession {
	h.t.Helper()
	session := &fakeSession{id: uuid.NewString(), device: req.req.DeviceName}
	req.callback.OnDone(session)
	h.settle()
	return session
}

func (h *harness) fail(req openRequest, failure FailureType, message string) {
	h.t.Helper()
	req.callback.OnFailure(failure, message)
	h.settle()
}

// open starts capture and resolves the first attempt successfully.
func (h *harness) open() *fakeSession {
	h.t.Helper()
	if err := h.c.Start(Format{Width: 640, Height: 480, FrameRate: 30}); err != nil {
		h.t.Fatalf("Start: %v", err)
	}
	h.settle()
	return h.succeed(h.factory.last(h.t))
}

// shutdown fails whatever is still opening so Dispose cannot block.
func (h *harness) shutdown() {
	for i := 0; i < 10; i++ {
		h.settle()
		h.c.mu.Lock()
		opening := h.c.opening
		h.c.mu.Unlock()
		if !opening {
			break
		}
		for _, r := range h.factory.unresolved() {
			r.callback.OnFailure(FailureError, "test shutdown")
		}
		h.settle()
		h.clk.Advance(time.Second)
	}
	h.c.Dispose()
}

type switchResult struct {
	frontFacing bool
	err         error
}

func (h *harness) switchDevice() <-chan switchResult {
	ch := make(chan switchResult, 1)
	h.c.SwitchDevice(func(frontFacing bool, err error) {
		ch <- switchResult{frontFacing, err}
	})
	h.settle()
	return ch
}

func (h *harness) attach(consumer Consumer) <-chan error {
	ch := make(chan error, 1)
	h.c.AttachConsumer(consumer, func(err error) { ch <- err })
	h.settle()
	return ch
}

func (h *harness) detach() <-chan error {
	ch := make(chan error, 1)
	h.c.DetachConsumer(func(err error) { ch <- err })
	h.settle()
	return ch
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("callback not delivered")
		var zero T
		return zero
	}
}

func assertPending[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("callback delivered early: %+v", v)
	default:
	}
}

type nopConsumer struct{}

func (nopConsumer) WriteFrame(Frame) error { return nil }
