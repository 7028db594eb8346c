package gpucore

// Device abstracts the GPU operations the atlas needs.
//
// Implementations must be safe for concurrent use, although the atlas itself
// calls them from a single goroutine.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying a resource that a pending copy still references is undefined
//   - IDs become invalid after destruction and must not be reused
type Device interface {
	// Limits returns the device limits.
	Limits() Limits

	// CreateTextureArray creates a 2D texture array usable as a sampled
	// texture, a copy source and a copy destination.
	CreateTextureArray(desc *TextureArrayDescriptor) (TextureID, error)

	// DestroyTexture releases a texture array.
	DestroyTexture(id TextureID)

	// WriteTexture writes a rectangle of tightly packed rows into one layer.
	// bytesPerRow is the byte length of one source row.
	WriteTexture(id TextureID, region TextureRegion, data []byte, bytesPerRow uint32) error

	// CreateBindGroup creates the shader binding for a texture array:
	// a 2D array view over all layers plus a filtering sampler.
	CreateBindGroup(texture TextureID, layers uint32) (BindGroupID, error)

	// DestroyBindGroup releases a bind group.
	DestroyBindGroup(id BindGroupID)

	// BeginCopyPass begins recording texture copies.
	// The encoder must be ended with CopyPassEncoder.End().
	BeginCopyPass(label string) CopyPassEncoder

	// Submit executes every ended copy pass and waits for completion.
	Submit() error
}

// CopyPassEncoder records texture-to-texture copies.
//
// Usage:
//  1. Obtain encoder from Device.BeginCopyPass()
//  2. Record copies
//  3. Call End() to finish recording
//  4. Call Device.Submit() to execute
//
// The encoder is single-use and cannot be reused after End().
type CopyPassEncoder interface {
	// CopyTextureToTexture records a copy of one region between two arrays.
	// src and dst may be the same texture if the regions do not overlap.
	CopyTextureToTexture(src, dst TextureID, region CopyRegion)

	// End finishes the pass.
	End()
}
