package cameracapture

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/e7canasta/orion-care-sensor/modules/camera-capture/internal/clock"
	"github.com/e7canasta/orion-care-sensor/modules/camera-capture/internal/framestats"
	"github.com/e7canasta/orion-care-sensor/modules/camera-capture/internal/worker"
)

// Dependencies are the collaborators of a Capturer.
type Dependencies struct {
	Enumerator Enumerator
	Factory    SessionFactory
	Observer   Observer
	// Events is optional
	Events EventsHandler
	// Statistics is optional; defaults to a frame-rate and freeze monitor
	Statistics StatisticsFactory
}

// Capturer owns the camera session of one capture client.
//
// Public methods may be called from any goroutine. Session mutations
// run on a dedicated worker goroutine; sink notifications are
// delivered in order on a separate dispatcher goroutine, never with
// the state lock held.
//
// Sessions returned by the factory are compared with ==, so they must
// be comparable (pointer types in practice).
type Capturer struct {
	cfg        Config
	log        *slog.Logger
	clock      clock.Clock
	enumerator Enumerator
	factory    SessionFactory
	observer   Observer
	events     EventsHandler
	newStats   StatisticsFactory
	router     *router

	camera   *worker.Worker
	dispatch *worker.Worker

	mu   sync.Mutex
	cond *sync.Cond

	deviceName string
	format     Format
	consumer   Consumer

	opening           bool
	current           Session
	attemptsRemaining int
	attempt           int
	openGen           uint64
	watchdog          *clock.Timer
	watchdogGen       uint64

	stats              Statistics
	statsGen           uint64
	firstFrameObserved bool

	switchPhase SwitchPhase
	switchCB    SwitchCallback
	attachPhase AttachPhase
	attachCB    ConsumerCallback

	disposed bool

	counters counters
}

// NewCapturer validates cfg and deps and starts the worker goroutines.
// No session is opened until Start.
func NewCapturer(cfg Config, deps Dependencies) (*Capturer, error) {
	return newCapturer(cfg, deps, clock.Real())
}

func newCapturer(cfg Config, deps Dependencies, clk clock.Clock) (*Capturer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if deps.Enumerator == nil {
		return nil, errors.New("enumerator is required")
	}
	if deps.Factory == nil {
		return nil, errors.New("session factory is required")
	}
	if deps.Observer == nil {
		return nil, errors.New("observer is required")
	}

	names := deps.Enumerator.DeviceNames()
	if len(names) == 0 {
		return nil, ErrNoDevices
	}
	deviceName := cfg.DeviceName
	if deviceName == "" {
		deviceName = names[0]
	} else if !slices.Contains(names, deviceName) {
		return nil, fmt.Errorf("%w: %q does not match any of %v", ErrUnknownDevice, deviceName, names)
	}

	c := &Capturer{
		cfg:        cfg,
		log:        cfg.logger(),
		clock:      clk,
		enumerator: deps.Enumerator,
		factory:    deps.Factory,
		observer:   deps.Observer,
		events:     deps.Events,
		newStats:   deps.Statistics,
		deviceName: deviceName,
		format:     cfg.Format,
	}
	c.cond = sync.NewCond(&c.mu)
	c.router = &router{c: c}
	if c.events == nil {
		c.events = noopEvents{}
	}
	if c.newStats == nil {
		c.newStats = c.frameMonitor
	}

	c.camera = worker.New("camera", clk)
	c.dispatch = worker.New("camera-callbacks", clk)

	c.log.Info("camera-capture: capturer created",
		"device", deviceName,
		"devices", len(names),
		"max_open_attempts", cfg.MaxOpenAttempts,
	)

	return c, nil
}

// DeviceName returns the selected device. It changes when a switch
// starts.
func (c *Capturer) DeviceName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceName
}

// IsScreencast is always false.
func (c *Capturer) IsScreencast() bool { return false }

// Dispose stops capture and shuts down both goroutines once every
// queued task and notification has run. Idempotent.
func (c *Capturer) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	c.disposed = true
	c.mu.Unlock()

	drain(c.camera)
	drain(c.dispatch)

	c.log.Info("camera-capture: capturer disposed", "device", c.DeviceName())
}

// drain runs the queued work of w and closes it. On w itself only the
// close is possible.
func drain(w *worker.Worker) {
	if !w.IsCurrent() {
		w.Flush()
	}
	w.Close()
}

// notify queues a sink call on the dispatcher. Callers hold c.mu so
// notifications keep the order of the transitions that caused them.
func (c *Capturer) notify(fn func()) {
	c.dispatch.Post(fn)
}

func (c *Capturer) frameMonitor(deviceName string, freeze FreezeReporter) Statistics {
	return framestats.NewMonitor(framestats.Options{
		Device:         deviceName,
		ReportInterval: c.cfg.StatsInterval,
		FreezeTimeout:  c.cfg.FreezeTimeout,
		Logger:         c.log,
	}, c.clock, freeze)
}

// releaseStatsLocked detaches the statistics sink of the current
// session.
func (c *Capturer) releaseStatsLocked() {
	if c.stats != nil {
		c.stats.Release()
		c.stats = nil
	}
}

// teardownLocked releases the current session without reporting a
// stop. Used when a switch or consumer update replaces the session.
func (c *Capturer) teardownLocked() {
	c.releaseStatsLocked()
	old := c.current
	c.current = nil
	c.camera.Post(old.Stop)
	c.log.Debug("camera-capture: session torn down", "device", c.deviceName, "session_id", old.ID())
}

type noopEvents struct{}

func (noopEvents) OnCameraError(string)   {}
func (noopEvents) OnCameraDisconnected()  {}
func (noopEvents) OnCameraFreezed(string) {}
func (noopEvents) OnCameraOpening(string) {}
func (noopEvents) OnFirstFrameAvailable() {}
func (noopEvents) OnCameraClosed()        {}
