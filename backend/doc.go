// Package backend is the registry of gpucore.Device implementations.
//
// Device packages register a factory from their init() function, so
// importing a device package is enough to make it selectable by name:
//
//	import (
//		_ "github.com/gogpu/atlas/backend/native"
//		_ "github.com/gogpu/atlas/backend/soft"
//	)
//
// # Device Selection
//
// Use Default to open the best available device, or Open to request one
// by name:
//
//	dev, name, err := backend.Default(nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer backend.Release(dev)
//
//	// Or request a specific device
//	dev, err := backend.Open(backend.Soft, nil)
//
// The native (GPU) device is preferred over the in-memory soft device.
package backend
