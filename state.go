package cameracapture

// LifecyclePhase is the coarse state of the camera session.
type LifecyclePhase int

const (
	// PhaseIdle means no session is open or opening
	PhaseIdle LifecyclePhase = iota
	// PhaseOpening means an open attempt (or its retry) is in flight
	PhaseOpening
	// PhaseOpen means a session is current
	PhaseOpen
)

// String returns a human-readable string representation of the phase
func (p LifecyclePhase) String() string {
	switch p {
	case PhaseOpening:
		return "opening"
	case PhaseOpen:
		return "open"
	default:
		return "idle"
	}
}

// SwitchPhase tracks a device switch.
type SwitchPhase int

const (
	SwitchIdle SwitchPhase = iota
	// SwitchPending means the switch waits for the in-flight open
	SwitchPending
	// SwitchInProgress means the session for the next device is opening
	SwitchInProgress
)

func (s SwitchPhase) String() string {
	switch s {
	case SwitchPending:
		return "pending"
	case SwitchInProgress:
		return "in-progress"
	default:
		return "idle"
	}
}

// AttachPhase tracks the auxiliary consumer.
type AttachPhase int

const (
	AttachIdle AttachPhase = iota
	// AttachActivating means the session is reopening with the consumer
	AttachActivating
	// AttachDeactivating means the session is reopening without it
	AttachDeactivating
	// AttachActive means the current session feeds the consumer
	AttachActive
)

func (a AttachPhase) String() string {
	switch a {
	case AttachActivating:
		return "activating"
	case AttachDeactivating:
		return "deactivating"
	case AttachActive:
		return "active"
	default:
		return "idle"
	}
}

// settled returns the phase an in-flight attach request resolves to
// on success.
func (a AttachPhase) settled() AttachPhase {
	switch a {
	case AttachActivating:
		return AttachActive
	case AttachDeactivating:
		return AttachIdle
	default:
		return a
	}
}

// inFlight reports whether the phase waits for an open to resolve.
func (a AttachPhase) inFlight() bool {
	return a == AttachActivating || a == AttachDeactivating
}
