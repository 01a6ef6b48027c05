package cameracapture

// AttachConsumer reopens the session so it also feeds consumer. cb
// reports success or the reason for rejection or failure, and may be
// nil. Valid only while a session is open and no switch is running.
func (c *Capturer) AttachConsumer(consumer Consumer, cb ConsumerCallback) {
	c.postConsumerUpdate(consumer, true, cb)
}

// DetachConsumer reopens the session without the attached consumer.
func (c *Capturer) DetachConsumer(cb ConsumerCallback) {
	c.postConsumerUpdate(nil, false, cb)
}

func (c *Capturer) postConsumerUpdate(consumer Consumer, attach bool, cb ConsumerCallback) {
	if !c.camera.Post(func() { c.updateConsumer(consumer, attach, cb) }) && cb != nil {
		cb(ErrDisposed)
	}
}

func (c *Capturer) updateConsumer(consumer Consumer, attach bool, cb ConsumerCallback) {
	c.camera.MustBeCurrent("update consumer")

	c.mu.Lock()
	defer c.mu.Unlock()

	var reject error
	switch {
	case attach && consumer == nil:
		reject = ErrNilConsumer
	case attach && c.attachPhase != AttachIdle, !attach && c.attachPhase != AttachActive:
		reject = ErrConsumerState
	case c.switchPhase != SwitchIdle:
		reject = ErrSwitchInProgress
	case c.opening:
		reject = ErrStillOpening
	case c.current == nil:
		reject = ErrCameraClosed
	}
	if reject != nil {
		c.log.Warn("camera-capture: consumer update rejected",
			"device", c.deviceName,
			"attach", attach,
			"error", reject,
			"switch_state", c.switchPhase,
			"attach_state", c.attachPhase,
		)
		if cb != nil {
			c.notify(func() { cb(reject) })
		}
		return
	}

	if attach {
		c.attachPhase = AttachActivating
	} else {
		c.attachPhase = AttachDeactivating
	}
	c.attachCB = cb
	c.consumer = consumer

	c.log.Info("camera-capture: reopening session for consumer update",
		"device", c.deviceName,
		"attach", attach,
	)
	c.teardownLocked()

	c.opening = true
	c.attemptsRemaining = 1
	c.attempt = 0
	c.createSessionLocked(0)
}
