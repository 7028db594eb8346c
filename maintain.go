package atlas

import (
	"fmt"
	"slices"

	"github.com/gogpu/atlas/gpucore"
)

// MaintenanceReport describes what a Maintain call changed.
type MaintenanceReport struct {
	// MigratedLayer is the layer that was compacted, or -1.
	MigratedLayer int

	// Migrated lists the IDs whose allocation moved. Their keys and IDs are
	// unchanged but Region and Layer differ, so cached texture coordinates
	// must be rebuilt.
	Migrated []ID

	// LayersFreed is the number of trailing empty layers unloaded.
	LayersFreed int
}

// Changed reports whether any allocation moved or any layer was unloaded.
func (r MaintenanceReport) Changed() bool {
	return len(r.Migrated) > 0 || r.LayersFreed > 0
}

// Maintain reduces fragmentation and releases unused layers.
// Call it between frames, not between uploads and draws of one frame.
//
// Once the layer count reaches the check limit, the layer with the most
// frees (at least the deallocation limit) has its allocations moved into
// other layers, one layer per call. Afterwards, while at least the free
// limit of trailing layers is empty, trailing layers are dropped and the
// texture array is shrunk.
//
// On a device error the atlas is left as it was before the failing step.
func (s *AtlasSet[K, D]) Maintain() (MaintenanceReport, error) {
	report := MaintenanceReport{MigratedLayer: -1}
	if s.closed {
		return report, ErrClosed
	}

	if len(s.layers) >= s.layerCheckLimit {
		if src := s.fragmentedLayer(); src >= 0 {
			moved, err := s.migrate(src)
			if err != nil {
				return report, err
			}
			if len(moved) > 0 {
				report.MigratedLayer = src
				report.Migrated = moved
			}
		}
	}

	freed, err := s.unload()
	if err != nil {
		return report, err
	}
	report.LayersFreed = freed

	return report, nil
}

// fragmentedLayer returns the non-empty layer with the most deallocations
// at or above the limit, or -1.
func (s *AtlasSet[K, D]) fragmentedLayer() int {
	best := -1
	for i, l := range s.layers {
		if l.isEmpty() || l.deallocations < s.deallocationLimit {
			continue
		}
		if best < 0 || l.deallocations > s.layers[best].deallocations {
			best = i
		}
	}
	return best
}

type move struct {
	id       ID
	from, to Region
	layer    int
}

// migrate moves every allocation of layer src into other layers.
// Either all allocations move or none do.
func (s *AtlasSet[K, D]) migrate(src int) ([]ID, error) {
	l := s.layers[src]

	ids := make([]ID, 0, len(l.ids))
	for id := range l.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	moves := make([]move, 0, len(ids))
	undo := func() {
		for _, m := range moves {
			s.layers[m.layer].packer.Deallocate(m.to.rect())
		}
	}

	for _, id := range ids {
		e, ok := s.store.Get(id)
		if !ok {
			panic("atlas: layer holds dead id " + id.String())
		}
		placed := false
		for j, dst := range s.layers {
			if j == src {
				continue
			}
			r, ok := dst.allocate(e.alloc.Region.Width, e.alloc.Region.Height)
			if !ok {
				continue
			}
			moves = append(moves, move{id: id, from: e.alloc.Region, to: r, layer: j})
			placed = true
			break
		}
		if !placed {
			undo()
			Logger().Debug("atlas migration skipped", "layer", src, "reason", "no room", "allocations", len(ids))
			l.deallocations = 0
			return nil, nil
		}
	}

	pass := s.device.BeginCopyPass("atlas_migrate")
	for _, m := range moves {
		pass.CopyTextureToTexture(s.texture, s.texture, gpucore.CopyRegion{
			SrcLayer: uint32(src),
			SrcX:     uint32(m.from.X),
			SrcY:     uint32(m.from.Y),
			DstLayer: uint32(m.layer),
			DstX:     uint32(m.to.X),
			DstY:     uint32(m.to.Y),
			Width:    uint32(m.from.Width),
			Height:   uint32(m.from.Height),
		})
	}
	pass.End()
	if err := s.device.Submit(); err != nil {
		undo()
		return nil, fmt.Errorf("atlas: migrate layer %d: %w", src, err)
	}

	moved := make([]ID, 0, len(moves))
	for _, m := range moves {
		e, _ := s.store.Get(m.id)
		e.alloc.Region = m.to
		e.alloc.Layer = m.layer
		s.store.Set(m.id, e)
		s.layers[m.layer].ids[m.id] = struct{}{}
		moved = append(moved, m.id)
	}
	l.clear()

	s.stats.migrations++
	Logger().Debug("atlas layer migrated", "layer", src, "moved", len(moved))
	return moved, nil
}

// unload drops trailing empty layers while at least layerFreeLimit of them
// are empty, then shrinks the texture array.
func (s *AtlasSet[K, D]) unload() (int, error) {
	trailing := 0
	for i := len(s.layers) - 1; i >= 0 && s.layers[i].isEmpty(); i-- {
		trailing++
	}

	keep := len(s.layers)
	for trailing >= s.layerFreeLimit && keep > 1 {
		keep--
		trailing--
	}
	freed := len(s.layers) - keep
	if freed == 0 {
		return 0, nil
	}

	if err := s.resize(keep, keep); err != nil {
		return 0, fmt.Errorf("atlas: unload layers: %w", err)
	}
	s.layers = s.layers[:keep]
	s.stats.shrinks++
	Logger().Info("atlas layers unloaded", "freed", freed, "layers", keep)
	return freed, nil
}
