// Package soft provides an in-memory gpucore.Device.
//
// Texture arrays live in CPU memory as one byte slice per layer. The device
// is used by tests and tools that need the atlas without a GPU, and it can
// hand out any layer as an image for inspection.
package soft

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/atlas/gpucore"
)

// Sentinel errors returned by the device.
var (
	// ErrUnknownTexture is returned when a texture ID is not live.
	ErrUnknownTexture = errors.New("soft: unknown texture")

	// ErrOutOfBounds is returned when a write or copy leaves the texture.
	ErrOutOfBounds = errors.New("soft: region out of bounds")

	// ErrUnsupportedFormat is returned for formats without a byte layout.
	ErrUnsupportedFormat = errors.New("soft: unsupported texture format")

	// ErrShortData is returned when a write has fewer bytes than its region.
	ErrShortData = errors.New("soft: data shorter than region")
)

type texture struct {
	label  string
	size   uint32
	format gpucore.TextureFormat
	bpp    int
	layers [][]byte
}

type bindGroup struct {
	texture gpucore.TextureID
	layers  uint32
}

type copyCmd struct {
	src, dst gpucore.TextureID
	region   gpucore.CopyRegion
}

// Stats counts device operations.
type Stats struct {
	TexturesCreated   int
	TexturesDestroyed int
	TexturesLive      int
	BindGroupsCreated int
	BindGroupsLive    int
	Writes            int
	Copies            int
	Submits           int
}

// Device is an in-memory gpucore.Device.
//
// Thread Safety: Device is safe for concurrent use from multiple goroutines.
type Device struct {
	mu     sync.Mutex
	limits gpucore.Limits

	nextID atomic.Uint64

	textures   map[gpucore.TextureID]*texture
	bindGroups map[gpucore.BindGroupID]bindGroup
	pending    []copyCmd

	stats Stats

	failCreate error
	failWrite  error
}

var _ gpucore.Device = (*Device)(nil)

// New creates a device with the given limits.
// If limits is nil, gpucore.DefaultLimits are used.
func New(limits *gpucore.Limits) *Device {
	lim := gpucore.DefaultLimits()
	if limits != nil {
		lim = *limits
	}
	d := &Device{
		limits:     lim,
		textures:   make(map[gpucore.TextureID]*texture),
		bindGroups: make(map[gpucore.BindGroupID]bindGroup),
	}
	// Start ID generation at 1 (0 is invalid)
	d.nextID.Store(1)
	return d
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// Limits returns the device limits.
func (d *Device) Limits() gpucore.Limits {
	return d.limits
}

// FailNextCreate makes the next CreateTextureArray call return err.
func (d *Device) FailNextCreate(err error) {
	d.mu.Lock()
	d.failCreate = err
	d.mu.Unlock()
}

// FailNextWrite makes the next WriteTexture call return err.
func (d *Device) FailNextWrite(err error) {
	d.mu.Lock()
	d.failWrite = err
	d.mu.Unlock()
}

// CreateTextureArray allocates zeroed layers in memory.
func (d *Device) CreateTextureArray(desc *gpucore.TextureArrayDescriptor) (gpucore.TextureID, error) {
	if desc == nil {
		return gpucore.InvalidID, errors.New("soft: nil texture descriptor")
	}
	bpp := gpucore.BytesPerPixel(desc.Format)
	if bpp == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: %v", ErrUnsupportedFormat, desc.Format)
	}
	if desc.Size == 0 || desc.Size > d.limits.MaxTextureDimension2D {
		return gpucore.InvalidID, fmt.Errorf("soft: texture size %d outside [1, %d]",
			desc.Size, d.limits.MaxTextureDimension2D)
	}
	if desc.Layers == 0 || desc.Layers > d.limits.MaxTextureArrayLayers {
		return gpucore.InvalidID, fmt.Errorf("soft: layer count %d outside [1, %d]",
			desc.Layers, d.limits.MaxTextureArrayLayers)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.failCreate; err != nil {
		d.failCreate = nil
		return gpucore.InvalidID, err
	}

	layerBytes := int(desc.Size) * int(desc.Size) * bpp
	tex := &texture{
		label:  desc.Label,
		size:   desc.Size,
		format: desc.Format,
		bpp:    bpp,
		layers: make([][]byte, desc.Layers),
	}
	for i := range tex.layers {
		tex.layers[i] = make([]byte, layerBytes)
	}

	id := gpucore.TextureID(d.newID())
	d.textures[id] = tex
	d.stats.TexturesCreated++
	return id, nil
}

// DestroyTexture releases a texture array.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures[id]; ok {
		delete(d.textures, id)
		d.stats.TexturesDestroyed++
	}
}

// WriteTexture copies rows of data into one layer.
func (d *Device) WriteTexture(id gpucore.TextureID, region gpucore.TextureRegion, data []byte, bytesPerRow uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.failWrite; err != nil {
		d.failWrite = nil
		return err
	}

	tex, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	if !tex.contains(region.Layer, region.X, region.Y, region.Width, region.Height) {
		return fmt.Errorf("%w: layer %d (%d,%d %dx%d)", ErrOutOfBounds,
			region.Layer, region.X, region.Y, region.Width, region.Height)
	}

	rowBytes := int(region.Width) * tex.bpp
	if int(bytesPerRow) < rowBytes {
		return fmt.Errorf("soft: bytes per row %d below row size %d", bytesPerRow, rowBytes)
	}
	if region.Height > 0 && len(data) < int(bytesPerRow)*int(region.Height-1)+rowBytes {
		return ErrShortData
	}

	layer := tex.layers[region.Layer]
	stride := int(tex.size) * tex.bpp
	for row := 0; row < int(region.Height); row++ {
		dst := (int(region.Y)+row)*stride + int(region.X)*tex.bpp
		src := row * int(bytesPerRow)
		copy(layer[dst:dst+rowBytes], data[src:src+rowBytes])
	}

	d.stats.Writes++
	return nil
}

func (t *texture) contains(layer, x, y, w, h uint32) bool {
	return int(layer) < len(t.layers) &&
		uint64(x)+uint64(w) <= uint64(t.size) &&
		uint64(y)+uint64(h) <= uint64(t.size)
}

// CreateBindGroup records a binding over the first layers of texture.
func (d *Device) CreateBindGroup(id gpucore.TextureID, layers uint32) (gpucore.BindGroupID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[id]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	if layers == 0 || int(layers) > len(tex.layers) {
		return gpucore.InvalidID, fmt.Errorf("soft: bind group over %d layers of a %d layer texture",
			layers, len(tex.layers))
	}

	bg := gpucore.BindGroupID(d.newID())
	d.bindGroups[bg] = bindGroup{texture: id, layers: layers}
	d.stats.BindGroupsCreated++
	return bg, nil
}

// DestroyBindGroup releases a bind group.
func (d *Device) DestroyBindGroup(id gpucore.BindGroupID) {
	d.mu.Lock()
	delete(d.bindGroups, id)
	d.mu.Unlock()
}

// BindGroupTexture returns the texture a bind group was created for.
func (d *Device) BindGroupTexture(id gpucore.BindGroupID) (gpucore.TextureID, uint32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	bg, ok := d.bindGroups[id]
	return bg.texture, bg.layers, ok
}

// BeginCopyPass starts recording copies.
func (d *Device) BeginCopyPass(label string) gpucore.CopyPassEncoder {
	return &copyPass{device: d, label: label}
}

// Submit applies every ended copy pass in recording order.
func (d *Device) Submit() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cmds := d.pending
	d.pending = nil
	d.stats.Submits++

	for _, c := range cmds {
		if err := d.applyCopyLocked(c); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) applyCopyLocked(c copyCmd) error {
	src, ok := d.textures[c.src]
	if !ok {
		return fmt.Errorf("%w: copy source %d", ErrUnknownTexture, c.src)
	}
	dst, ok := d.textures[c.dst]
	if !ok {
		return fmt.Errorf("%w: copy destination %d", ErrUnknownTexture, c.dst)
	}
	if src.format != dst.format {
		return fmt.Errorf("soft: copy between formats %v and %v", src.format, dst.format)
	}

	r := c.region
	if r.Width == 0 && r.Height == 0 {
		r.Width, r.Height = src.size, src.size
	}
	if !src.contains(r.SrcLayer, r.SrcX, r.SrcY, r.Width, r.Height) ||
		!dst.contains(r.DstLayer, r.DstX, r.DstY, r.Width, r.Height) {
		return fmt.Errorf("%w: copy %d:%d -> %d:%d", ErrOutOfBounds, c.src, r.SrcLayer, c.dst, r.DstLayer)
	}

	rowBytes := int(r.Width) * src.bpp
	srcStride := int(src.size) * src.bpp
	dstStride := int(dst.size) * dst.bpp
	from := src.layers[r.SrcLayer]
	to := dst.layers[r.DstLayer]
	for row := 0; row < int(r.Height); row++ {
		so := (int(r.SrcY)+row)*srcStride + int(r.SrcX)*src.bpp
		do := (int(r.DstY)+row)*dstStride + int(r.DstX)*dst.bpp
		copy(to[do:do+rowBytes], from[so:so+rowBytes])
	}

	d.stats.Copies++
	return nil
}

// Stats returns a snapshot of the operation counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.TexturesLive = len(d.textures)
	s.BindGroupsLive = len(d.bindGroups)
	return s
}

// TextureLayers returns the layer count of a texture.
func (d *Device) TextureLayers(id gpucore.TextureID) (uint32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tex, ok := d.textures[id]
	if !ok {
		return 0, false
	}
	return uint32(len(tex.layers)), true
}

// ReadRegion returns a tightly packed copy of a layer rectangle.
func (d *Device) ReadRegion(id gpucore.TextureID, region gpucore.TextureRegion) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	if !tex.contains(region.Layer, region.X, region.Y, region.Width, region.Height) {
		return nil, ErrOutOfBounds
	}

	rowBytes := int(region.Width) * tex.bpp
	stride := int(tex.size) * tex.bpp
	out := make([]byte, 0, rowBytes*int(region.Height))
	layer := tex.layers[region.Layer]
	for row := 0; row < int(region.Height); row++ {
		o := (int(region.Y)+row)*stride + int(region.X)*tex.bpp
		out = append(out, layer[o:o+rowBytes]...)
	}
	return out, nil
}

// LayerImage returns a copy of one layer as an image.
// R8 textures produce *image.Gray; RGBA and BGRA textures produce
// *image.RGBA with BGRA swizzled to RGBA.
func (d *Device) LayerImage(id gpucore.TextureID, layer uint32) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTexture, id)
	}
	if int(layer) >= len(tex.layers) {
		return nil, fmt.Errorf("%w: layer %d", ErrOutOfBounds, layer)
	}

	rect := image.Rect(0, 0, int(tex.size), int(tex.size))
	pix := append([]byte(nil), tex.layers[layer]...)

	switch tex.format {
	case gpucore.TextureFormatR8Unorm:
		return &image.Gray{Pix: pix, Stride: int(tex.size), Rect: rect}, nil
	case gpucore.TextureFormatBGRA8Unorm:
		for i := 0; i+3 < len(pix); i += 4 {
			pix[i], pix[i+2] = pix[i+2], pix[i]
		}
	}
	return &image.RGBA{Pix: pix, Stride: int(tex.size) * 4, Rect: rect}, nil
}

// copyPass records copies until End moves them to the device queue.
type copyPass struct {
	device *Device
	label  string
	cmds   []copyCmd
	ended  bool
}

// CopyTextureToTexture records a copy.
func (p *copyPass) CopyTextureToTexture(src, dst gpucore.TextureID, region gpucore.CopyRegion) {
	if p.ended {
		return
	}
	p.cmds = append(p.cmds, copyCmd{src: src, dst: dst, region: region})
}

// End hands the recorded copies to the device.
func (p *copyPass) End() {
	if p.ended {
		return
	}
	p.ended = true
	p.device.mu.Lock()
	p.device.pending = append(p.device.pending, p.cmds...)
	p.device.mu.Unlock()
}
