package cameracapture

import (
	"errors"
	"fmt"
)

// FailureType classifies why a session failed to open.
type FailureType int

const (
	// FailureError is any failure other than a disconnect
	FailureError FailureType = iota
	// FailureDisconnected means the device went away or is held by
	// another client
	FailureDisconnected
)

// String returns a human-readable string representation of the failure type
func (f FailureType) String() string {
	switch f {
	case FailureDisconnected:
		return "disconnected"
	default:
		return "error"
	}
}

// Rejections of SwitchDevice.
var (
	ErrNoAlternateDevice = errors.New("no camera to switch to")
	ErrSwitchInProgress  = errors.New("camera switch already in progress")
	ErrConsumerActive    = errors.New("switch rejected: consumer attachment is active")
	ErrNotRunning        = errors.New("camera is not running")
)

// Rejections of AttachConsumer and DetachConsumer.
var (
	ErrConsumerState = errors.New("incorrect state for consumer update")
	ErrCameraClosed  = errors.New("consumer update while camera is closed")
	ErrStillOpening  = errors.New("consumer update while camera is still opening")
	ErrNilConsumer   = errors.New("consumer is nil")
)

var (
	// ErrOpenTimeout is reported through OnCameraError when an attempt
	// neither succeeds nor fails within the open timeout.
	ErrOpenTimeout = errors.New("camera failed to start within timeout")

	// ErrNoDevices is returned by NewCapturer when the enumerator is empty.
	ErrNoDevices = errors.New("no cameras attached")

	// ErrUnknownDevice is returned by NewCapturer for a device name the
	// enumerator does not list.
	ErrUnknownDevice = errors.New("unknown camera device")

	// ErrDisposed is returned by entry points called after Dispose.
	ErrDisposed = errors.New("capturer disposed")
)

// OpenError is the terminal error of an open that ran out of attempts.
type OpenError struct {
	Type     FailureType
	Attempts int
	// Message is the last failure message reported by the factory
	Message string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("camera open failed after %d attempt(s) (%s): %s", e.Attempts, e.Type, e.Message)
}

// Is makes errors.Is(err, ErrCameraDisconnected) hold for disconnect
// failures.
func (e *OpenError) Is(target error) bool {
	return target == ErrCameraDisconnected && e.Type == FailureDisconnected
}

// ErrCameraDisconnected matches an *OpenError of type FailureDisconnected.
var ErrCameraDisconnected = errors.New("camera disconnected")
