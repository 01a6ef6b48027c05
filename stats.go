package cameracapture

import (
	"sync/atomic"
	"time"

	"github.com/e7canasta/orion-care-sensor/modules/camera-capture/internal/framestats"
)

// Stats is a point-in-time view of a Capturer.
type Stats struct {
	// DeviceName is the selected device
	DeviceName string
	// Format is the last requested format
	Format Format

	Phase       LifecyclePhase
	SwitchPhase SwitchPhase
	AttachPhase AttachPhase
	// SessionID is empty unless Phase is PhaseOpen
	SessionID string

	// OpenAttempts counts every attempt including retries
	OpenAttempts uint64
	// OpenRetries counts attempts scheduled after a failure
	OpenRetries uint64
	// OpenFailures counts opens that ran out of attempts
	OpenFailures uint64
	// OpenTimeouts counts watchdog firings
	OpenTimeouts uint64
	// SessionsOpened counts successful opens
	SessionsOpened uint64
	// Switches counts completed device switches
	Switches uint64
	// ConsumerUpdates counts completed attach and detach requests
	ConsumerUpdates uint64
	// FramesDelivered counts frames forwarded to the observer
	FramesDelivered uint64
	// StaleEvents counts events dropped because their session was not current
	StaleEvents uint64

	// FPS is measured by the default statistics sink of the current
	// session; nil otherwise
	FPS *FPSStats
}

// FPSStats summarizes frame arrival times.
type FPSStats struct {
	FramesReceived int
	Duration       time.Duration
	FPSMean        float64
	FPSStdDev      float64
	FPSMin         float64
	FPSMax         float64
	JitterMean     float64
	JitterStdDev   float64
	JitterMax      float64
	// IsStable is true when FPS stddev < 15% of the mean and mean
	// jitter < 20% of the expected interval
	IsStable bool
}

// CalculateFPSStats computes FPSStats from ordered frame timestamps
// observed over window.
func CalculateFPSStats(frameTimes []time.Time, window time.Duration) *FPSStats {
	return fromInternal(framestats.Calculate(frameTimes, window))
}

func fromInternal(s *framestats.FPSStats) *FPSStats {
	return &FPSStats{
		FramesReceived: s.FramesReceived,
		Duration:       s.Duration,
		FPSMean:        s.FPSMean,
		FPSStdDev:      s.FPSStdDev,
		FPSMin:         s.FPSMin,
		FPSMax:         s.FPSMax,
		JitterMean:     s.JitterMean,
		JitterStdDev:   s.JitterStdDev,
		JitterMax:      s.JitterMax,
		IsStable:       s.IsStable,
	}
}

type counters struct {
	openAttempts    atomic.Uint64
	openRetries     atomic.Uint64
	openFailures    atomic.Uint64
	openTimeouts    atomic.Uint64
	sessionsOpened  atomic.Uint64
	switches        atomic.Uint64
	consumerUpdates atomic.Uint64
	framesDelivered atomic.Uint64
	staleEvents     atomic.Uint64
}

// Stats returns current statistics.
func (c *Capturer) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		DeviceName:      c.deviceName,
		Format:          c.format,
		SwitchPhase:     c.switchPhase,
		AttachPhase:     c.attachPhase,
		OpenAttempts:    c.counters.openAttempts.Load(),
		OpenRetries:     c.counters.openRetries.Load(),
		OpenFailures:    c.counters.openFailures.Load(),
		OpenTimeouts:    c.counters.openTimeouts.Load(),
		SessionsOpened:  c.counters.sessionsOpened.Load(),
		Switches:        c.counters.switches.Load(),
		ConsumerUpdates: c.counters.consumerUpdates.Load(),
		FramesDelivered: c.counters.framesDelivered.Load(),
		StaleEvents:     c.counters.staleEvents.Load(),
	}

	switch {
	case c.opening:
		s.Phase = PhaseOpening
	case c.current != nil:
		s.Phase = PhaseOpen
		s.SessionID = c.current.ID()
	default:
		s.Phase = PhaseIdle
	}

	if m, ok := c.stats.(*framestats.Monitor); ok {
		s.FPS = fromInternal(m.Snapshot())
	}

	return s
}
