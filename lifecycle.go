package cameracapture

import (
	"errors"
	"time"
)

// Start opens the selected device with format. A call while a session
// is open or opening is logged and ignored. Failures are reported
// asynchronously through Observer.OnCapturerStarted(false) and the
// events handler.
func (c *Capturer) Start(format Format) error {
	if err := format.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return ErrDisposed
	}
	c.startLocked(format)
	return nil
}

// Stop waits for an in-flight open to resolve, then releases the
// current session. Once Stop returns no session is active.
//
// Stop panics when called on the capturer worker while an open is in
// flight, since the wait could never end.
func (c *Capturer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// ChangeFormat stops and restarts capture with format as one
// transition.
func (c *Capturer) ChangeFormat(format Format) error {
	if err := format.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return ErrDisposed
	}
	c.log.Info("camera-capture: changing format", "device", c.deviceName, "from", c.format, "to", format)
	c.stopLocked()
	c.startLocked(format)
	return nil
}

func (c *Capturer) startLocked(format Format) {
	if c.opening || c.current != nil {
		c.log.Warn("camera-capture: start ignored, session already open or opening", "device", c.deviceName)
		return
	}

	c.log.Info("camera-capture: starting capture", "device", c.deviceName, "format", format)
	c.format = format
	c.opening = true
	c.attemptsRemaining = c.cfg.MaxOpenAttempts
	c.attempt = 0
	c.createSessionLocked(0)
}

var errStopOnWorker = errors.New("cameracapture: Stop called on the camera worker while a session is opening")

func (c *Capturer) stopLocked() {
	if c.opening && c.camera.IsCurrent() {
		panic(errStopOnWorker)
	}
	for c.opening {
		c.log.Debug("camera-capture: stop waiting for open to resolve", "device", c.deviceName)
		c.cond.Wait()
	}

	if c.current == nil {
		c.log.Debug("camera-capture: stop called with no open session")
		return
	}

	c.log.Info("camera-capture: stopping capture", "device", c.deviceName, "session_id", c.current.ID())
	c.teardownLocked()
	c.notify(c.observer.OnCapturerStopped)
}

// createSessionLocked schedules one open attempt after delay and arms
// its watchdog.
func (c *Capturer) createSessionLocked(delay time.Duration) {
	c.openGen++
	gen := c.openGen
	c.attempt++
	c.counters.openAttempts.Add(1)

	c.armWatchdogLocked(gen, delay+c.cfg.OpenTimeout)

	req := SessionRequest{
		DeviceName: c.deviceName,
		Format:     c.format,
		Consumer:   c.consumer,
	}
	callback := &openCallback{c: c, gen: gen}

	c.log.Debug("camera-capture: open scheduled",
		"device", req.DeviceName,
		"attempt", c.attempt,
		"delay", delay,
	)
	c.camera.PostDelayed(delay, func() {
		c.factory.CreateSession(req, callback, c.router)
	})
}

func (c *Capturer) armWatchdogLocked(gen uint64, timeout time.Duration) {
	c.disarmWatchdogLocked()
	c.watchdogGen = gen
	c.watchdog = c.clock.AfterFunc(timeout, func() {
		c.camera.Post(func() { c.handleWatchdog(gen) })
	})
}

func (c *Capturer) disarmWatchdogLocked() {
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
	c.watchdogGen = 0
}

// handleWatchdog reports an attempt that neither succeeded nor failed
// in time. The attempt itself keeps running.
func (c *Capturer) handleWatchdog(gen uint64) {
	c.camera.MustBeCurrent("open watchdog")

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.watchdogGen {
		return
	}
	c.watchdog = nil
	c.watchdogGen = 0
	c.counters.openTimeouts.Add(1)

	c.log.Error("camera-capture: open timed out",
		"device", c.deviceName,
		"attempt", c.attempt,
		"timeout", c.cfg.OpenTimeout,
	)
	c.notify(func() { c.events.OnCameraError(ErrOpenTimeout.Error()) })
}

// handleOpenDone makes session current and resumes any switch or
// consumer update waiting on this open.
func (c *Capturer) handleOpenDone(gen uint64, session Session) {
	c.camera.MustBeCurrent("open done")

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.openGen || !c.opening {
		c.log.Warn("camera-capture: open resolved for an abandoned attempt, closing session",
			"session_id", session.ID(),
		)
		c.camera.Post(session.Stop)
		return
	}

	c.disarmWatchdogLocked()
	c.notify(func() { c.observer.OnCapturerStarted(true) })

	c.opening = false
	c.current = session
	c.statsGen++
	c.stats = c.newStats(c.deviceName, freezeForwarder{c: c, gen: c.statsGen})
	c.firstFrameObserved = false
	c.counters.sessionsOpened.Add(1)
	c.cond.Broadcast()

	c.log.Info("camera-capture: session opened",
		"device", c.deviceName,
		"session_id", session.ID(),
		"attempt", c.attempt,
		"switch_state", c.switchPhase,
		"attach_state", c.attachPhase,
	)

	switch c.switchPhase {
	case SwitchInProgress:
		cb := c.switchCB
		frontFacing := c.enumerator.IsFrontFacing(c.deviceName)
		c.switchPhase = SwitchIdle
		c.switchCB = nil
		c.counters.switches.Add(1)
		if cb != nil {
			c.notify(func() { cb(frontFacing, nil) })
		}
	case SwitchPending:
		cb := c.switchCB
		c.switchPhase = SwitchIdle
		c.switchCB = nil
		c.switchLocked(cb)
	}

	if c.attachPhase.inFlight() {
		cb := c.attachCB
		c.attachPhase = c.attachPhase.settled()
		c.attachCB = nil
		c.counters.consumerUpdates.Add(1)
		if cb != nil {
			c.notify(func() { cb(nil) })
		}
	}
}

// handleOpenFailure retries while attempts remain; otherwise it ends
// the open and fails any request waiting on it.
func (c *Capturer) handleOpenFailure(gen uint64, failure FailureType, message string) {
	c.camera.MustBeCurrent("open failure")

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.openGen || !c.opening {
		c.log.Warn("camera-capture: failure reported for an abandoned attempt", "error", message)
		return
	}

	c.disarmWatchdogLocked()
	c.notify(func() { c.observer.OnCapturerStarted(false) })
	c.attemptsRemaining--

	if c.attemptsRemaining > 0 {
		c.counters.openRetries.Add(1)
		c.log.Warn("camera-capture: open failed, retrying",
			"device", c.deviceName,
			"attempt", c.attempt,
			"attempts_left", c.attemptsRemaining,
			"retry_in", c.cfg.OpenRetryDelay,
			"failure", failure,
			"error", message,
		)
		c.createSessionLocked(c.cfg.OpenRetryDelay)
		return
	}

	openErr := &OpenError{Type: failure, Attempts: c.attempt, Message: message}
	c.log.Error("camera-capture: open failed, no attempts left",
		"device", c.deviceName,
		"error", openErr,
		"switch_state", c.switchPhase,
		"attach_state", c.attachPhase,
	)

	c.opening = false
	c.counters.openFailures.Add(1)
	c.cond.Broadcast()

	if c.switchPhase != SwitchIdle {
		cb := c.switchCB
		c.switchPhase = SwitchIdle
		c.switchCB = nil
		if cb != nil {
			c.notify(func() { cb(false, openErr) })
		}
	}
	if c.attachPhase != AttachIdle {
		cb := c.attachCB
		c.attachPhase = AttachIdle
		c.attachCB = nil
		c.consumer = nil
		if cb != nil {
			c.notify(func() { cb(openErr) })
		}
	}

	if failure == FailureDisconnected {
		c.notify(c.events.OnCameraDisconnected)
	} else {
		c.notify(func() { c.events.OnCameraError(message) })
	}
}
