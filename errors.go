package atlas

import "errors"

// Sentinel errors returned by constructors and maintenance.
// Expected misses (unknown key, full atlas) are reported with a bool,
// not an error.
var (
	// ErrNilDevice is returned when an atlas is created without a device.
	ErrNilDevice = errors.New("atlas: nil device")

	// ErrUnsupportedFormat is returned for texture formats the byte-copy
	// upload path cannot address.
	ErrUnsupportedFormat = errors.New("atlas: unsupported texture format")

	// ErrClosed is returned when operating on a closed atlas.
	ErrClosed = errors.New("atlas: atlas is closed")
)

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "atlas: invalid config." + e.Field + ": " + e.Reason
}
