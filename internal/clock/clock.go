// Package clock abstracts the timers used by the capturer.
//
// Production code uses Real(); tests use Fake() and advance time
// explicitly, so retry delays and the open watchdog can be exercised
// without sleeping.
package clock

import "time"

// Clock is the subset of the time package the capturer depends on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc waits for d, then calls f in its own goroutine (real)
	// or synchronously during Advance (fake).
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stopFunc func() bool
}

// Stop prevents the timer from firing. Returns false if it already
// fired or was stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }
