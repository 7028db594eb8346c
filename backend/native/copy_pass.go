//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/atlas/gpucore"
)

// copyPass records texture copies into a HAL command encoder.
// The first failure is kept and reported by Device.Submit.
type copyPass struct {
	device  *Device
	label   string
	encoder hal.CommandEncoder
	copies  int
	err     error
	ended   bool
}

// CopyTextureToTexture records a copy between two texture arrays.
// A zero-sized region copies the whole source layer.
func (p *copyPass) CopyTextureToTexture(src, dst gpucore.TextureID, region gpucore.CopyRegion) {
	if p.ended || p.err != nil {
		return
	}

	from, ok := p.device.lookupTexture(src)
	if !ok {
		p.fail(fmt.Errorf("%w: copy source %d", ErrUnknownTexture, src))
		return
	}
	to, ok := p.device.lookupTexture(dst)
	if !ok {
		p.fail(fmt.Errorf("%w: copy destination %d", ErrUnknownTexture, dst))
		return
	}

	r := region
	if r.Width == 0 && r.Height == 0 {
		r.Width, r.Height = from.size, from.size
	}
	if !from.contains(r.SrcLayer, r.SrcX, r.SrcY, r.Width, r.Height) ||
		!to.contains(r.DstLayer, r.DstX, r.DstY, r.Width, r.Height) {
		p.fail(fmt.Errorf("%w: copy %d:%d -> %d:%d", ErrOutOfBounds, src, r.SrcLayer, dst, r.DstLayer))
		return
	}

	p.encoder.CopyTextureToTexture(from.raw, to.raw, []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{
			Texture:  from.raw,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: r.SrcX, Y: r.SrcY, Z: r.SrcLayer},
		},
		DstBase: hal.ImageCopyTexture{
			Texture:  to.raw,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: r.DstX, Y: r.DstY, Z: r.DstLayer},
		},
		Size: hal.Extent3D{Width: r.Width, Height: r.Height, DepthOrArrayLayers: 1},
	}})
	p.copies++
}

func (p *copyPass) fail(err error) {
	p.err = err
	if p.encoder != nil {
		p.encoder.DiscardEncoding()
		p.encoder = nil
	}
}

// End finishes encoding and queues the command buffer for Submit.
func (p *copyPass) End() {
	if p.ended {
		return
	}
	p.ended = true

	if p.err != nil {
		p.device.enqueue(nil, fmt.Errorf("native: copy pass %q: %w", p.label, p.err))
		return
	}
	cb, err := p.encoder.EndEncoding()
	if err != nil {
		p.device.enqueue(nil, fmt.Errorf("native: copy pass %q: end encoding: %w", p.label, err))
		return
	}
	p.device.enqueue(cb, nil)
	slogger().Debug("native: copy pass ended", "label", p.label, "copies", p.copies)
}
