// Package atlas manages texture atlases backed by a GPU texture array.
//
// # Overview
//
// An [AtlasSet] packs many independently sized images into the layers of
// one texture array, tracks where each image lives and reclaims space when
// images are no longer needed. Images are addressed by a caller key and by
// a generation-checked [ID]; both stay valid until the image is removed.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/atlas"
//	    "github.com/gogpu/atlas/backend/soft"
//	    "github.com/gogpu/atlas/gpucore"
//	)
//
//	set, err := atlas.New[string, struct{}](soft.New(nil),
//	    gpucore.TextureFormatRGBA8Unorm, false, 1024)
//	if err != nil {
//	    return err
//	}
//	defer set.Close()
//
//	id, ok := set.Upload("icon", pixels, 32, 32, struct{}{})
//	alloc, _ := set.Get(id)
//	uv := alloc.UV(1024)
//
//	// Once per frame:
//	set.Trim()
//
// # Eviction Modes
//
// Reference-counted atlases (glyph caches, shared icons) free an image only
// after every Upload of its key was matched by a Remove. LRU atlases
// (sprite streaming) evict the least recently used images under pressure,
// but never one read during the current frame. Frames are delimited by
// [AtlasSet.Trim].
//
// # Growth and Maintenance
//
// When no layer has room and no image can be evicted, a layer is added by
// replacing the texture array with a larger one and copying the existing
// layers forward. [AtlasSet.BindGroup] changes when that happens.
// [AtlasSet.Maintain] compacts fragmented layers and unloads trailing empty
// ones.
//
// # Architecture
//
// The module is organized into:
//   - Public API: AtlasSet, Allocation, Config
//   - Internal: packer (shelf packing), slab (generation-checked store)
//   - Devices: gpucore (contract), backend/soft (memory), backend/native (wgpu HAL)
//   - Consumers: glyphs (glyph cache), shader (WGSL sampling snippet)
package atlas
