// Package cameracapture coordinates the lifecycle of an exclusive,
// slow-to-open camera session.
//
// A Capturer owns one session at a time and serializes the three
// operations that replace it: start/stop, device switch, and
// attaching or detaching an auxiliary frame consumer (for example a
// recorder). Camera I/O is delegated to a SessionFactory; the
// gstsession package provides one backed by GStreamer's v4l2src.
//
// # Quick Start
//
//	enum, _ := devices.NewLinux()
//	factory, err := gstsession.NewFactory(gstsession.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	capturer, err := cameracapture.NewCapturer(cameracapture.DefaultConfig(), cameracapture.Dependencies{
//	    Enumerator: enum,
//	    Factory:    factory,
//	    Observer:   myObserver,
//	    Events:     myEvents,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer capturer.Dispose()
//
//	capturer.Start(cameracapture.Format{Width: 1280, Height: 720, FrameRate: 30})
//	capturer.SwitchDevice(func(frontFacing bool, err error) {
//	    // err is nil once the next device delivers a session
//	})
//
// # Opening
//
// Start schedules an open with up to Config.MaxOpenAttempts attempts
// (default 3) spaced by Config.OpenRetryDelay (default 500ms). Every
// attempt arms a watchdog; an attempt that has not resolved within
// its delay plus Config.OpenTimeout (default 10s) is reported through
// EventsHandler.OnCameraError without being cancelled.
//
// Switches and consumer updates reopen with a single attempt so that
// failures surface immediately.
//
// # Threading
//
//   - Public methods: any goroutine
//   - Session mutations and factory calls: one worker goroutine
//   - Observer, EventsHandler and request callbacks: one dispatcher
//     goroutine, in the order the transitions happened
//
// Stop blocks until an in-flight open resolves. Sinks may call any
// Capturer method, including Stop, from their callbacks.
//
// # Statistics
//
// Each open session gets a Statistics sink. The default one logs the
// frame rate every Config.StatsInterval and reports
// EventsHandler.OnCameraFreezed after Config.FreezeTimeout without
// frames. Stats returns counters and FPS figures.
package cameracapture
