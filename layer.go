package atlas

import "github.com/gogpu/atlas/internal/packer"

// layer is one slice of the texture array with its own packer.
type layer struct {
	packer *packer.ShelfAllocator
	ids    map[ID]struct{}

	// deallocations counts frees since the layer was last compacted.
	deallocations int
}

func newLayer(size, padding int) *layer {
	return &layer{
		packer: packer.NewShelfAllocator(size, size, padding),
		ids:    make(map[ID]struct{}),
	}
}

func (l *layer) allocate(w, h int) (Region, bool) {
	r, ok := l.packer.Allocate(w, h)
	if !ok {
		return Region{}, false
	}
	return regionOf(r), true
}

// release frees the region of id and counts the deallocation.
func (l *layer) release(id ID, r Region) {
	if !l.packer.Deallocate(r.rect()) {
		panic("atlas: layer does not own region " + r.String())
	}
	delete(l.ids, id)
	l.deallocations++
}

func (l *layer) isEmpty() bool {
	return len(l.ids) == 0
}

func (l *layer) clear() {
	l.packer.Clear()
	clear(l.ids)
	l.deallocations = 0
}

// LayerInfo describes one layer.
type LayerInfo struct {
	Index         int
	Allocations   int
	Deallocations int
	Utilization   float64
}

func (l *layer) info(index int) LayerInfo {
	return LayerInfo{
		Index:         index,
		Allocations:   len(l.ids),
		Deallocations: l.deallocations,
		Utilization:   l.packer.Utilization(),
	}
}
