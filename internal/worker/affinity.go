package worker

import (
	"fmt"
	"log/slog"
)

// AffinityError is the panic value raised when worker-only code runs on
// another goroutine.
type AffinityError struct {
	Worker    string
	Operation string
}

func (e *AffinityError) Error() string {
	return fmt.Sprintf("worker: %s must run on worker %q", e.Operation, e.Worker)
}

// MustBeCurrent panics with *AffinityError unless the caller runs on w.
// Cross-goroutine mutation of session state is a programming error, so
// this is never turned into a returned error.
func (w *Worker) MustBeCurrent(operation string) {
	if w.IsCurrent() {
		return
	}
	slog.Error("worker: affinity check failed",
		"worker", w.name,
		"operation", operation,
	)
	panic(&AffinityError{Worker: w.name, Operation: operation})
}
