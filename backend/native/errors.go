//go:build !nogpu

package native

import "errors"

// Package errors for the HAL device.
var (
	// ErrNilHALDevice is returned when a device or queue is missing.
	ErrNilHALDevice = errors.New("native: HAL device is nil")

	// ErrNoGPU is returned when no GPU adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrNoHALProvider is returned when a device provider does not expose
	// HAL types.
	ErrNoHALProvider = errors.New("native: provider does not expose HAL types")

	// ErrUnknownTexture is returned when a texture ID is not live.
	ErrUnknownTexture = errors.New("native: unknown texture")

	// ErrOutOfBounds is returned when a write or copy leaves the texture.
	ErrOutOfBounds = errors.New("native: region out of bounds")

	// ErrUnsupportedFormat is returned for formats without a byte layout.
	ErrUnsupportedFormat = errors.New("native: unsupported texture format")

	// ErrShortData is returned when a write has fewer bytes than its region.
	ErrShortData = errors.New("native: data shorter than region")

	// ErrGPUTimeout is returned when a submission does not complete in time.
	ErrGPUTimeout = errors.New("native: GPU submission timed out")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("native: device closed")
)
