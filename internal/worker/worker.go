// Package worker provides the single dedicated goroutine on which every
// camera-session mutation runs.
//
// Goroutine topology:
//   - 1 fixed: loop (spawned by New, stopped by Close)
//   - 0-N transient: clock timers that re-post delayed tasks
//
// Tasks run strictly in FIFO order. Delayed tasks enter the FIFO when
// their delay elapses, so ordering between a delayed task and tasks
// posted later is by arrival time, like a message-loop handler.
package worker

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"

	"github.com/e7canasta/orion-care-sensor/modules/camera-capture/internal/clock"
)

// Worker is a serial task queue backed by one goroutine.
type Worker struct {
	name  string
	clock clock.Clock

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	running bool // true while a task executes
	closed  bool

	gid  atomic.Int64 // goroutine ID of loop, 0 before it starts
	done chan struct{}

	executed uint64 // atomic
}

// New starts a worker goroutine. name only appears in logs and
// affinity errors.
func New(name string, clk clock.Clock) *Worker {
	w := &Worker{
		name:  name,
		clock: clk,
		done:  make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)

	started := make(chan struct{})
	go w.loop(started)
	<-started

	return w
}

// Name returns the worker name.
func (w *Worker) Name() string { return w.name }

// Post queues task. Returns false if the worker is closed.
func (w *Worker) Post(task func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		slog.Debug("worker: post after close dropped", "worker", w.name)
		return false
	}
	w.queue = append(w.queue, task)
	w.cond.Signal()
	return true
}

// PostDelayed queues task after d. A non-positive d posts immediately
// and returns nil. The returned timer can cancel the post before it
// happens.
func (w *Worker) PostDelayed(d time.Duration, task func()) *clock.Timer {
	if d <= 0 {
		w.Post(task)
		return nil
	}
	return w.clock.AfterFunc(d, func() {
		w.Post(task)
	})
}

// Flush blocks until every task queued before the call, and every
// task those tasks queued in turn, has run. Must not be called from
// the worker itself.
func (w *Worker) Flush() {
	for {
		barrier := make(chan struct{})
		if !w.Post(func() { close(barrier) }) {
			return
		}
		<-barrier

		w.mu.Lock()
		idle := len(w.queue) == 0 && !w.running
		w.mu.Unlock()
		if idle {
			return
		}
	}
}

// Close stops accepting tasks, runs what is already queued, and waits
// for the loop to exit. Idempotent. Calling Close from the worker
// itself only marks it closed.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		w.cond.Broadcast()
	}
	w.mu.Unlock()

	if w.IsCurrent() {
		return
	}
	<-w.done
}

// Executed returns the number of tasks run so far.
func (w *Worker) Executed() uint64 {
	return atomic.LoadUint64(&w.executed)
}

// IsCurrent reports whether the caller runs on the worker goroutine.
func (w *Worker) IsCurrent() bool {
	return goid.Get() == w.gid.Load()
}

func (w *Worker) loop(started chan<- struct{}) {
	defer close(w.done)

	w.gid.Store(goid.Get())
	close(started)

	for {
		w.mu.Lock()
		for len(w.queue) == 0 && !w.closed {
			w.cond.Wait()
		}
		if len(w.queue) == 0 && w.closed {
			w.mu.Unlock()
			slog.Debug("worker: loop exited", "worker", w.name, "tasks_executed", w.Executed())
			return
		}

		task := w.queue[0]
		w.queue[0] = nil
		w.queue = w.queue[1:]
		w.running = true
		w.mu.Unlock()

		task()
		atomic.AddUint64(&w.executed, 1)

		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}
}
