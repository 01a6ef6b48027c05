package cameracapture

import "sync/atomic"

// openCallback resolves one open attempt. Factories must call exactly
// one method exactly once; anything beyond that is logged and dropped.
type openCallback struct {
	c        *Capturer
	gen      uint64
	resolved atomic.Bool
}

func (cb *openCallback) OnDone(session Session) {
	if !cb.resolved.CompareAndSwap(false, true) {
		cb.c.log.Warn("camera-capture: duplicate open completion dropped", "session_id", sessionID(session))
		return
	}
	if session == nil {
		cb.c.log.Error("camera-capture: factory completed an open without a session")
		cb.c.camera.Post(func() { cb.c.handleOpenFailure(cb.gen, FailureError, "factory returned no session") })
		return
	}
	cb.c.camera.Post(func() { cb.c.handleOpenDone(cb.gen, session) })
}

func (cb *openCallback) OnFailure(failure FailureType, message string) {
	if !cb.resolved.CompareAndSwap(false, true) {
		cb.c.log.Warn("camera-capture: duplicate open failure dropped", "failure", failure, "error", message)
		return
	}
	cb.c.camera.Post(func() { cb.c.handleOpenFailure(cb.gen, failure, message) })
}

// freezeForwarder passes freeze reports from one statistics sink to
// the events handler while that sink belongs to the current session.
type freezeForwarder struct {
	c   *Capturer
	gen uint64
}

func (f freezeForwarder) OnCameraFreezed(message string) {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()

	if f.gen != f.c.statsGen || f.c.stats == nil {
		return
	}
	f.c.log.Warn("camera-capture: camera froze", "device", f.c.deviceName, "error", message)
	f.c.notify(func() { f.c.events.OnCameraFreezed(message) })
}
