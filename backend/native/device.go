//go:build !nogpu

package native

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/atlas/gpucore"
)

// submitTimeout bounds the fence wait in Submit.
const submitTimeout = 5 * time.Second

type texture struct {
	raw    hal.Texture
	label  string
	size   uint32
	layers uint32
	format gpucore.TextureFormat
	bpp    int
}

func (t *texture) contains(layer, x, y, w, h uint32) bool {
	return layer < t.layers &&
		uint64(x)+uint64(w) <= uint64(t.size) &&
		uint64(y)+uint64(h) <= uint64(t.size)
}

type bindGroup struct {
	raw     hal.BindGroup
	view    hal.TextureView
	texture gpucore.TextureID
}

// Device is a gpucore.Device backed by a HAL device and queue.
//
// Thread Safety: Device is safe for concurrent use from multiple goroutines.
type Device struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue
	limits gpucore.Limits

	// instance is set when Open created the device; Close destroys both.
	instance hal.Instance

	nextID     atomic.Uint64
	textures   map[gpucore.TextureID]*texture
	bindGroups map[gpucore.BindGroupID]*bindGroup

	// Created on the first CreateBindGroup.
	layout  hal.BindGroupLayout
	sampler hal.Sampler

	// Command buffers of ended copy passes awaiting Submit.
	pending []hal.CommandBuffer
	passErr error

	closed bool
}

var _ gpucore.Device = (*Device)(nil)

// New wraps a HAL device and queue owned by the caller.
// If limits is nil, gpucore.DefaultLimits are used.
func New(device hal.Device, queue hal.Queue, limits *gpucore.Limits) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilHALDevice
	}
	lim := gpucore.DefaultLimits()
	if limits != nil {
		lim = *limits
	}
	d := &Device{
		device:     device,
		queue:      queue,
		limits:     lim,
		textures:   make(map[gpucore.TextureID]*texture),
		bindGroups: make(map[gpucore.BindGroupID]*bindGroup),
	}
	// Start ID generation at 1 (0 is invalid)
	d.nextID.Store(1)
	return d, nil
}

// NewFromProvider shares the HAL device of a gpucontext.DeviceProvider.
// The provider must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider, limits *gpucore.Limits) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALProvider)
	}
	return New(device, queue, limits)
}

// SetLogger sets the package logger.
// Called by atlas.SetLogger propagation when an atlas is created.
func (d *Device) SetLogger(l *slog.Logger) {
	setLogger(l)
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// Limits returns the device limits.
func (d *Device) Limits() gpucore.Limits {
	return d.limits
}

// CreateTextureArray creates a 2D texture with desc.Layers array layers.
func (d *Device) CreateTextureArray(desc *gpucore.TextureArrayDescriptor) (gpucore.TextureID, error) {
	if desc == nil {
		return gpucore.InvalidID, fmt.Errorf("native: nil texture descriptor")
	}
	bpp := gpucore.BytesPerPixel(desc.Format)
	if bpp == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: %v", ErrUnsupportedFormat, desc.Format)
	}
	if desc.Size == 0 || desc.Size > d.limits.MaxTextureDimension2D {
		return gpucore.InvalidID, fmt.Errorf("native: texture size %d outside [1, %d]",
			desc.Size, d.limits.MaxTextureDimension2D)
	}
	if desc.Layers == 0 || desc.Layers > d.limits.MaxTextureArrayLayers {
		return gpucore.InvalidID, fmt.Errorf("native: layer count %d outside [1, %d]",
			desc.Layers, d.limits.MaxTextureArrayLayers)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}

	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Size, Height: desc.Size, DepthOrArrayLayers: desc.Layers},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.Format,
		Usage: gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopyDst |
			gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture %q: %w", desc.Label, err)
	}

	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{
		raw:    raw,
		label:  desc.Label,
		size:   desc.Size,
		layers: desc.Layers,
		format: desc.Format,
		bpp:    bpp,
	}
	slogger().Debug("native: texture array created",
		"id", id, "label", desc.Label, "size", desc.Size, "layers", desc.Layers)
	return id, nil
}

// DestroyTexture releases a texture array.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tex, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	d.device.DestroyTexture(tex.raw)
}

// WriteTexture uploads rows of data into one layer through the queue.
func (d *Device) WriteTexture(id gpucore.TextureID, region gpucore.TextureRegion, data []byte, bytesPerRow uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	if !tex.contains(region.Layer, region.X, region.Y, region.Width, region.Height) {
		return fmt.Errorf("%w: layer %d (%d,%d %dx%d)", ErrOutOfBounds,
			region.Layer, region.X, region.Y, region.Width, region.Height)
	}
	rowBytes := region.Width * uint32(tex.bpp)
	if bytesPerRow < rowBytes {
		return fmt.Errorf("native: bytes per row %d below row size %d", bytesPerRow, rowBytes)
	}
	if region.Height > 0 && uint64(len(data)) < uint64(bytesPerRow)*uint64(region.Height-1)+uint64(rowBytes) {
		return ErrShortData
	}

	d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex.raw,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: region.X, Y: region.Y, Z: region.Layer},
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  bytesPerRow,
			RowsPerImage: region.Height,
		},
		&hal.Extent3D{Width: region.Width, Height: region.Height, DepthOrArrayLayers: 1},
	)
	return nil
}

// ensureBindingLocked creates the shared bind group layout and sampler.
func (d *Device) ensureBindingLocked() error {
	if d.layout == nil {
		// Binding 0: texture_2d_array<f32> (fragment)
		// Binding 1: filtering sampler (fragment)
		layout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label: "atlas_bind_group_layout",
			Entries: []gputypes.BindGroupLayoutEntry{
				{
					Binding:    0,
					Visibility: gputypes.ShaderStageFragment,
					Texture: &gputypes.TextureBindingLayout{
						SampleType:    gputypes.TextureSampleTypeFloat,
						ViewDimension: gputypes.TextureViewDimension2DArray,
					},
				},
				{
					Binding:    1,
					Visibility: gputypes.ShaderStageFragment,
					Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("native: create bind group layout: %w", err)
		}
		d.layout = layout
	}
	if d.sampler == nil {
		sampler, err := d.device.CreateSampler(&hal.SamplerDescriptor{
			Label:        "atlas_sampler",
			AddressModeU: gputypes.AddressModeClampToEdge,
			AddressModeV: gputypes.AddressModeClampToEdge,
			AddressModeW: gputypes.AddressModeClampToEdge,
			MagFilter:    gputypes.FilterModeLinear,
			MinFilter:    gputypes.FilterModeLinear,
			MipmapFilter: gputypes.FilterModeLinear,
		})
		if err != nil {
			return fmt.Errorf("native: create sampler: %w", err)
		}
		d.sampler = sampler
	}
	return nil
}

// CreateBindGroup creates a 2D array view over the first layers of a
// texture and binds it with the shared sampler.
func (d *Device) CreateBindGroup(id gpucore.TextureID, layers uint32) (gpucore.BindGroupID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[id]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	if layers == 0 || layers > tex.layers {
		return gpucore.InvalidID, fmt.Errorf("native: bind group over %d layers of a %d layer texture",
			layers, tex.layers)
	}
	if err := d.ensureBindingLocked(); err != nil {
		return gpucore.InvalidID, err
	}

	view, err := d.device.CreateTextureView(tex.raw, &hal.TextureViewDescriptor{
		Label:           tex.label + "_view",
		Format:          tex.format,
		Dimension:       gputypes.TextureViewDimension2DArray,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: layers,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture view: %w", err)
	}

	raw, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  tex.label + "_bind_group",
		Layout: d.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: d.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		d.device.DestroyTextureView(view)
		return gpucore.InvalidID, fmt.Errorf("native: create bind group: %w", err)
	}

	bg := gpucore.BindGroupID(d.newID())
	d.bindGroups[bg] = &bindGroup{raw: raw, view: view, texture: id}
	return bg, nil
}

// DestroyBindGroup releases a bind group and its texture view.
func (d *Device) DestroyBindGroup(id gpucore.BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bg, ok := d.bindGroups[id]
	if !ok {
		return
	}
	delete(d.bindGroups, id)
	d.device.DestroyBindGroup(bg.raw)
	d.device.DestroyTextureView(bg.view)
}

// BindGroup returns the HAL bind group for rendering with the atlas.
func (d *Device) BindGroup(id gpucore.BindGroupID) (hal.BindGroup, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bg, ok := d.bindGroups[id]
	if !ok {
		return nil, false
	}
	return bg.raw, true
}

// BindGroupLayout returns the layout shared by all atlas bind groups, or
// nil before the first CreateBindGroup.
func (d *Device) BindGroupLayout() hal.BindGroupLayout {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.layout
}

// BeginCopyPass starts a HAL command encoder for texture copies.
// Encoder errors are reported by Submit.
func (d *Device) BeginCopyPass(label string) gpucore.CopyPassEncoder {
	p := &copyPass{device: d, label: label}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		p.err = fmt.Errorf("native: create command encoder: %w", err)
		return p
	}
	if err := encoder.BeginEncoding(label); err != nil {
		p.err = fmt.Errorf("native: begin encoding: %w", err)
		return p
	}
	p.encoder = encoder
	return p
}

// Submit executes every ended copy pass and waits for the GPU.
func (d *Device) Submit() error {
	d.mu.Lock()
	cmds := d.pending
	passErr := d.passErr
	d.pending = nil
	d.passErr = nil
	d.mu.Unlock()

	defer func() {
		for _, cb := range cmds {
			d.device.FreeCommandBuffer(cb)
		}
	}()

	if passErr != nil {
		return passErr
	}
	if len(cmds) == 0 {
		return nil
	}

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("native: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit(cmds, fence, 1); err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, submitTimeout)
	if err != nil {
		return fmt.Errorf("native: wait for GPU: %w", err)
	}
	if !ok {
		return ErrGPUTimeout
	}
	slogger().Debug("native: copies submitted", "command_buffers", len(cmds))
	return nil
}

// enqueue hands an ended pass to the device.
func (d *Device) enqueue(cb hal.CommandBuffer, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		if d.passErr == nil {
			d.passErr = err
		}
		return
	}
	d.pending = append(d.pending, cb)
}

// lookupTexture returns a live texture.
func (d *Device) lookupTexture(id gpucore.TextureID) (*texture, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tex, ok := d.textures[id]
	return tex, ok
}

// Close releases every resource still held by the device. Devices created
// by Open also destroy the HAL device and instance.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true

	for _, cb := range d.pending {
		d.device.FreeCommandBuffer(cb)
	}
	d.pending = nil

	for id, bg := range d.bindGroups {
		d.device.DestroyBindGroup(bg.raw)
		d.device.DestroyTextureView(bg.view)
		delete(d.bindGroups, id)
	}
	for id, tex := range d.textures {
		d.device.DestroyTexture(tex.raw)
		delete(d.textures, id)
	}
	if d.sampler != nil {
		d.device.DestroySampler(d.sampler)
		d.sampler = nil
	}
	if d.layout != nil {
		d.device.DestroyBindGroupLayout(d.layout)
		d.layout = nil
	}

	if d.instance != nil {
		d.device.Destroy()
		d.instance.Destroy()
		d.instance = nil
	}
}
