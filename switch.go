package cameracapture

import "slices"

// SwitchDevice moves capture to the next enumerated device, wrapping
// around. cb receives whether the new device faces the user, or the
// reason the switch was rejected or failed. cb may be nil.
//
// A switch requested while a session is opening waits for that open
// and then runs once.
func (c *Capturer) SwitchDevice(cb SwitchCallback) {
	if !c.camera.Post(func() { c.switchDevice(cb) }) && cb != nil {
		cb(false, ErrDisposed)
	}
}

func (c *Capturer) switchDevice(cb SwitchCallback) {
	c.camera.MustBeCurrent("switch device")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.switchLocked(cb)
}

func (c *Capturer) switchLocked(cb SwitchCallback) {
	names := c.enumerator.DeviceNames()

	var reject error
	switch {
	case len(names) < 2:
		reject = ErrNoAlternateDevice
	case c.switchPhase != SwitchIdle:
		reject = ErrSwitchInProgress
	case c.attachPhase != AttachIdle:
		reject = ErrConsumerActive
	case !c.opening && c.current == nil:
		reject = ErrNotRunning
	}
	if reject != nil {
		c.log.Warn("camera-capture: switch rejected",
			"device", c.deviceName,
			"error", reject,
			"switch_state", c.switchPhase,
			"attach_state", c.attachPhase,
		)
		if cb != nil {
			c.notify(func() { cb(false, reject) })
		}
		return
	}

	c.switchCB = cb
	if c.opening {
		c.switchPhase = SwitchPending
		c.log.Info("camera-capture: switch deferred until open resolves", "device", c.deviceName)
		return
	}

	c.switchPhase = SwitchInProgress
	c.teardownLocked()

	from := c.deviceName
	c.deviceName = nextDevice(names, from)
	c.log.Info("camera-capture: switching device", "from", from, "to", c.deviceName)

	c.opening = true
	c.attemptsRemaining = 1
	c.attempt = 0
	c.createSessionLocked(0)
}

// nextDevice returns the device after current in names, wrapping. An
// unlisted current device selects the first name.
func nextDevice(names []string, current string) string {
	i := slices.Index(names, current)
	return names[(i+1)%len(names)]
}
