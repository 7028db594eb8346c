// Package native provides a gpucore.Device backed by a gogpu/wgpu HAL
// device.
//
// Texture arrays are real GPU textures. Pixel uploads go through
// hal.Queue.WriteTexture, layer and region copies are recorded into HAL
// command encoders, and Submit waits on a fence so that the atlas can
// release the old texture as soon as Submit returns.
//
// # Device Sources
//
// A Device can be created three ways:
//
//   - New wraps a hal.Device and hal.Queue owned by the caller.
//   - NewFromProvider takes them from a gpucontext.DeviceProvider, such as
//     a gogpu application, so the atlas shares the renderer's device.
//   - Open creates a standalone Vulkan device owned by the returned Device.
//
// Only Devices created by Open destroy the HAL device on Close.
//
// The package is excluded by the nogpu build tag.
package native
