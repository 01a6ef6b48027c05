package cameracapture

import (
	"fmt"
	"time"
)

// Format is the capture format requested by Start and ChangeFormat.
type Format struct {
	// Width in pixels
	Width int `yaml:"width"`
	// Height in pixels
	Height int `yaml:"height"`
	// FrameRate in frames per second
	FrameRate int `yaml:"frame_rate"`
}

// Validate rejects non-positive dimensions and frame rates.
func (f Format) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid format %s: width and height must be positive", f)
	}
	if f.FrameRate <= 0 {
		return fmt.Errorf("invalid format %s: frame rate must be positive", f)
	}
	return nil
}

// String returns "WxH@FPS".
func (f Format) String() string {
	return fmt.Sprintf("%dx%d@%d", f.Width, f.Height, f.FrameRate)
}

// SessionRequest describes the session the factory must open.
type SessionRequest struct {
	// DeviceName is the enumerated device to open
	DeviceName string
	// Format is the requested capture format
	Format Format
	// Consumer receives frames in addition to the observer when set
	Consumer Consumer
}

// FrameKind identifies which payload fields of a Frame are valid.
type FrameKind int

const (
	// FrameGeneric carries an opaque payload in Data
	FrameGeneric FrameKind = iota
	// FrameByteBuffer carries raw pixels in Data
	FrameByteBuffer
	// FrameTexture references a producer-owned texture; Release must be
	// called once the frame is no longer used
	FrameTexture
)

// String returns a human-readable frame kind.
func (k FrameKind) String() string {
	switch k {
	case FrameByteBuffer:
		return "byte-buffer"
	case FrameTexture:
		return "texture"
	default:
		return "generic"
	}
}

// Frame is a single captured frame with metadata.
type Frame struct {
	Kind FrameKind
	// Seq is the per-session monotonic sequence number
	Seq uint64
	// Timestamp is when the frame was captured
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Rotation in degrees, clockwise
	Rotation int
	// Data holds pixels for FrameByteBuffer and FrameGeneric
	Data []byte
	// TextureID and Transform describe a FrameTexture
	TextureID int
	Transform [16]float32
	// TraceID is a unique identifier for distributed tracing
	TraceID string
	// Release returns the frame buffer to its producer. May be nil.
	Release func()
}

// SessionFactory opens camera sessions. CreateSession must not block;
// it reports the outcome later, exactly once, through callback.
type SessionFactory interface {
	CreateSession(req SessionRequest, callback SessionCallback, events SessionEvents)
}

// Session is an open camera session.
type Session interface {
	// ID identifies the session in logs
	ID() string
	// Stop releases the device. Called on the capturer worker.
	Stop()
}

// SessionCallback resolves a CreateSession call.
type SessionCallback interface {
	OnDone(session Session)
	OnFailure(failure FailureType, message string)
}

// SessionEvents carries the runtime events of sessions created by a
// factory. Events may arrive from any goroutine.
type SessionEvents interface {
	OnCameraOpening()
	OnCameraError(session Session, message string)
	OnCameraDisconnected(session Session)
	OnCameraClosed(session Session)
	OnFrameCaptured(session Session, frame Frame)
}

// Enumerator lists capture devices.
type Enumerator interface {
	// DeviceNames returns devices in a stable order
	DeviceNames() []string
	IsFrontFacing(name string) bool
}

// Observer receives capture lifecycle and frames.
type Observer interface {
	OnCapturerStarted(success bool)
	OnCapturerStopped()
	OnFrameCaptured(frame Frame)
}

// EventsHandler receives camera events.
type EventsHandler interface {
	OnCameraError(message string)
	OnCameraDisconnected()
	OnCameraFreezed(message string)
	OnCameraOpening(deviceName string)
	OnFirstFrameAvailable()
	OnCameraClosed()
}

// Statistics is the per-session statistics sink.
type Statistics interface {
	AddFrame()
	Release()
}

// StatisticsFactory creates the sink for a newly opened session.
// freeze receives freeze reports from the sink.
type StatisticsFactory func(deviceName string, freeze FreezeReporter) Statistics

// FreezeReporter receives freeze reports from a Statistics sink.
type FreezeReporter interface {
	OnCameraFreezed(message string)
}

// Consumer is an auxiliary frame destination attached to the session,
// such as a recorder.
type Consumer interface {
	WriteFrame(frame Frame) error
}

// SwitchCallback reports the outcome of SwitchDevice. err is nil on
// success.
type SwitchCallback func(frontFacing bool, err error)

// ConsumerCallback reports the outcome of AttachConsumer or
// DetachConsumer. err is nil on success.
type ConsumerCallback func(err error)
