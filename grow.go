package atlas

import (
	"fmt"

	"github.com/gogpu/atlas/gpucore"
)

// grow resizes the texture array to len(s.layers), keeping the content of
// the layers that existed before the last amount were appended.
func (s *AtlasSet[K, D]) grow(amount int) error {
	if amount == 0 {
		return nil
	}
	if err := s.resize(len(s.layers), len(s.layers)-amount); err != nil {
		return err
	}
	s.stats.grows++
	Logger().Debug("atlas grown", "layers", len(s.layers), "added", amount)
	return nil
}

// resize replaces the texture array with one of layerCount layers and
// copies the first copyCount layers of the old array into it. The bind
// group is rebuilt for the new array. On error the old texture and bind
// group stay in place.
func (s *AtlasSet[K, D]) resize(layerCount, copyCount int) error {
	tex, err := s.device.CreateTextureArray(&gpucore.TextureArrayDescriptor{
		Label:  "atlas",
		Size:   s.size,
		Layers: uint32(layerCount),
		Format: s.format,
	})
	if err != nil {
		return fmt.Errorf("atlas: create texture array (%d layers): %w", layerCount, err)
	}

	if copyCount > 0 && s.texture != gpucore.InvalidID {
		pass := s.device.BeginCopyPass("atlas_resize")
		for i := range copyCount {
			pass.CopyTextureToTexture(s.texture, tex, gpucore.CopyRegion{
				SrcLayer: uint32(i),
				DstLayer: uint32(i),
				Width:    s.size,
				Height:   s.size,
			})
		}
		pass.End()
		if err := s.device.Submit(); err != nil {
			s.device.DestroyTexture(tex)
			return fmt.Errorf("atlas: copy layers: %w", err)
		}
	}

	bg, err := s.device.CreateBindGroup(tex, uint32(layerCount))
	if err != nil {
		s.device.DestroyTexture(tex)
		return fmt.Errorf("atlas: create bind group: %w", err)
	}

	if s.bindGroup != gpucore.InvalidID {
		s.device.DestroyBindGroup(s.bindGroup)
	}
	if s.texture != gpucore.InvalidID {
		s.device.DestroyTexture(s.texture)
	}
	s.texture = tex
	s.bindGroup = bg
	return nil
}
