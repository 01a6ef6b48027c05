package cameracapture

// router receives the runtime events of every session the factory
// creates and moves them onto the camera worker. Events from sessions
// other than the current one are dropped.
type router struct {
	c *Capturer
}

func (r *router) OnCameraOpening() {
	r.c.camera.Post(r.c.handleOpening)
}

func (r *router) OnCameraError(session Session, message string) {
	r.c.camera.Post(func() { r.c.handleSessionError(session, message) })
}

func (r *router) OnCameraDisconnected(session Session) {
	r.c.camera.Post(func() { r.c.handleSessionDisconnected(session) })
}

func (r *router) OnCameraClosed(session Session) {
	r.c.camera.Post(func() { r.c.handleSessionClosed(session) })
}

func (r *router) OnFrameCaptured(session Session, frame Frame) {
	if !r.c.camera.Post(func() { r.c.handleFrame(session, frame) }) && frame.Release != nil {
		frame.Release()
	}
}

func (c *Capturer) handleOpening() {
	c.camera.MustBeCurrent("camera opening")

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.log.Warn("camera-capture: opening reported while a session is open", "device", c.deviceName)
		return
	}
	name := c.deviceName
	c.notify(func() { c.events.OnCameraOpening(name) })
}

func (c *Capturer) handleSessionError(session Session, message string) {
	c.camera.MustBeCurrent("camera error")

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrentLocked(session, "error") {
		return
	}
	c.log.Error("camera-capture: session error", "device", c.deviceName, "session_id", session.ID(), "error", message)
	c.notify(func() { c.events.OnCameraError(message) })
	c.stopLocked()
}

func (c *Capturer) handleSessionDisconnected(session Session) {
	c.camera.MustBeCurrent("camera disconnected")

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrentLocked(session, "disconnected") {
		return
	}
	c.log.Warn("camera-capture: camera disconnected", "device", c.deviceName, "session_id", session.ID())
	c.notify(c.events.OnCameraDisconnected)
	c.stopLocked()
}

// handleSessionClosed also accepts a close from a superseded session
// while no session is current, which covers the confirmation of a
// session released by Stop.
func (c *Capturer) handleSessionClosed(session Session) {
	c.camera.MustBeCurrent("camera closed")

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && session != c.current {
		c.counters.staleEvents.Add(1)
		c.log.Debug("camera-capture: close from another session dropped", "session_id", session.ID())
		return
	}
	c.log.Debug("camera-capture: session closed", "session_id", session.ID())
	c.notify(c.events.OnCameraClosed)
}

func (c *Capturer) handleFrame(session Session, frame Frame) {
	c.camera.MustBeCurrent("frame captured")

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrentLocked(session, "frame") {
		if frame.Release != nil {
			frame.Release()
		}
		return
	}

	if !c.firstFrameObserved {
		c.firstFrameObserved = true
		c.log.Info("camera-capture: first frame available",
			"device", c.deviceName,
			"session_id", session.ID(),
			"kind", frame.Kind,
			"width", frame.Width,
			"height", frame.Height,
		)
		c.notify(c.events.OnFirstFrameAvailable)
	}
	c.stats.AddFrame()
	c.counters.framesDelivered.Add(1)
	c.notify(func() { c.observer.OnFrameCaptured(frame) })
}

func (c *Capturer) isCurrentLocked(session Session, event string) bool {
	if session == c.current {
		return true
	}
	c.counters.staleEvents.Add(1)
	c.log.Warn("camera-capture: event from another session dropped",
		"event", event,
		"session_id", sessionID(session),
	)
	return false
}

func sessionID(s Session) string {
	if s == nil {
		return ""
	}
	return s.ID()
}
