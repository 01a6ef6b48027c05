package devices

import "slices"

// Device is a statically declared camera.
type Device struct {
	Name        string
	FrontFacing bool
}

// Static enumerates a fixed device list in declaration order.
type Static struct {
	devices []Device
}

// NewStatic returns an enumerator over devices.
func NewStatic(devices ...Device) *Static {
	return &Static{devices: slices.Clone(devices)}
}

func (s *Static) DeviceNames() []string {
	names := make([]string, len(s.devices))
	for i, d := range s.devices {
		names[i] = d.Name
	}
	return names
}

func (s *Static) IsFrontFacing(name string) bool {
	for _, d := range s.devices {
		if d.Name == name {
			return d.FrontFacing
		}
	}
	return false
}
