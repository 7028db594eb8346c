// Package gpucore defines the narrow GPU device contract used by the atlas.
//
// The atlas never talks to a graphics API directly. It creates and replaces
// texture arrays, writes pixel rectangles, records layer copies and builds a
// bind group through the [Device] interface, which thin backends implement:
//
//	               +-----------------+
//	               |  atlas.AtlasSet |
//	               +--------+--------+
//	                        |
//	               +--------v--------+
//	               | gpucore.Device  |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|  backend/soft   |          | backend/native  |
//	| (CPU memory)    |          |  (hal.Device)   |
//	+-----------------+          +--------+--------+
//	                                      |
//	                             +--------v--------+
//	                             |   gogpu/wgpu    |
//	                             +-----------------+
//
// # Resource Management
//
// GPU resources are referenced by opaque IDs ([TextureID], [BindGroupID]).
// Devices keep the mapping between IDs and backend objects. IDs become
// invalid once the resource is destroyed.
//
// # Copies
//
// Layer copies are recorded on a [CopyPassEncoder] obtained from
// [Device.BeginCopyPass] and executed by [Device.Submit]. Texture writes are
// applied immediately.
package gpucore
