package backend

import (
	"errors"

	"github.com/gogpu/atlas/gpucore"
)

// Registered device names.
const (
	// Native is the gogpu/wgpu HAL device.
	Native = "native"

	// Soft is the in-memory device.
	Soft = "soft"
)

// ErrBackendNotAvailable is returned when a requested device is not
// registered or no registered device could be opened.
var ErrBackendNotAvailable = errors.New("backend: not available")

// Factory opens a device. A nil limits selects the device defaults.
type Factory func(limits *gpucore.Limits) (gpucore.Device, error)

// Release closes a device if it implements Close().
func Release(dev gpucore.Device) {
	if c, ok := dev.(interface{ Close() }); ok {
		c.Close()
	}
}
