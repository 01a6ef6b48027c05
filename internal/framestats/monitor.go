// Package framestats is the default per-session statistics sink.
//
// A Monitor counts frames delivered by one camera session, logs the
// observed frame rate every ReportInterval and reports a freeze once no
// frame has arrived for FreezeTimeout. After a freeze report the
// monitor stops checking; the capturer replaces it on the next session.
package framestats

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/camera-capture/internal/clock"
)

const (
	DefaultReportInterval = 2 * time.Second
	DefaultFreezeTimeout  = 4 * time.Second
	DefaultWindow         = 300
)

// FreezeReporter receives freeze reports.
type FreezeReporter interface {
	OnCameraFreezed(message string)
}

// Options configures a Monitor. Zero values take the defaults above.
type Options struct {
	Device         string
	ReportInterval time.Duration
	FreezeTimeout  time.Duration
	Window         int // frame timestamps kept for Snapshot
	Logger         *slog.Logger
}

// Monitor implements the capturer's Statistics sink.
type Monitor struct {
	opts     Options
	clock    clock.Clock
	reporter FreezeReporter
	logger   *slog.Logger

	mu            sync.Mutex
	started       time.Time
	frameTimes    []time.Time
	frames        uint64
	framesAtCheck uint64
	idlePeriods   int
	timer         *clock.Timer
	released      bool
	frozen        bool
}

// NewMonitor starts monitoring immediately. reporter may be nil.
func NewMonitor(opts Options, clk clock.Clock, reporter FreezeReporter) *Monitor {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = DefaultReportInterval
	}
	if opts.FreezeTimeout <= 0 {
		opts.FreezeTimeout = DefaultFreezeTimeout
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Monitor{
		opts:       opts,
		clock:      clk,
		reporter:   reporter,
		logger:     logger,
		started:    clk.Now(),
		frameTimes: make([]time.Time, 0, opts.Window),
	}

	m.mu.Lock()
	m.timer = clk.AfterFunc(opts.ReportInterval, m.check)
	m.mu.Unlock()

	return m
}

// AddFrame records one delivered frame.
func (m *Monitor) AddFrame() {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released {
		return
	}
	m.frames++
	if len(m.frameTimes) == m.opts.Window {
		copy(m.frameTimes, m.frameTimes[1:])
		m.frameTimes = m.frameTimes[:len(m.frameTimes)-1]
	}
	m.frameTimes = append(m.frameTimes, now)
}

// Release stops the periodic check. Frames added afterwards are
// ignored. Idempotent.
func (m *Monitor) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released {
		return
	}
	m.released = true
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Frames returns the number of frames recorded.
func (m *Monitor) Frames() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// Frozen reports whether a freeze has been reported.
func (m *Monitor) Frozen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frozen
}

// Snapshot computes FPS statistics over the retained window.
func (m *Monitor) Snapshot() *FPSStats {
	m.mu.Lock()
	times := make([]time.Time, len(m.frameTimes))
	copy(times, m.frameTimes)
	m.mu.Unlock()

	var window time.Duration
	if len(times) > 0 {
		window = m.clock.Now().Sub(times[0])
	}
	return Calculate(times, window)
}

func (m *Monitor) check() {
	m.mu.Lock()
	if m.released {
		m.mu.Unlock()
		return
	}

	delta := m.frames - m.framesAtCheck
	m.framesAtCheck = m.frames
	fps := float64(delta) / m.opts.ReportInterval.Seconds()

	if delta == 0 {
		m.idlePeriods++
	} else {
		m.idlePeriods = 0
	}
	frozenFor := time.Duration(m.idlePeriods) * m.opts.ReportInterval

	if frozenFor >= m.opts.FreezeTimeout {
		m.frozen = true
		m.timer = nil
		m.mu.Unlock()

		m.logger.Error("camera-capture: camera froze",
			"device", m.opts.Device,
			"frozen_for", frozenFor,
		)
		if m.reporter != nil {
			m.reporter.OnCameraFreezed(fmt.Sprintf("camera failure: no frames for %s", m.opts.FreezeTimeout))
		}
		return
	}

	total := m.frames
	m.timer = m.clock.AfterFunc(m.opts.ReportInterval, m.check)
	m.mu.Unlock()

	m.logger.Debug("camera-capture: frame rate",
		"device", m.opts.Device,
		"fps", fps,
		"frames_total", total,
		"frozen_for", frozenFor,
	)
}
