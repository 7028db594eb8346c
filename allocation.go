package atlas

import (
	"fmt"

	"github.com/gogpu/atlas/internal/packer"
	"github.com/gogpu/atlas/internal/slab"
)

// ID identifies an allocation in an AtlasSet.
//
// IDs carry a generation, so an ID kept after its allocation was removed is
// rejected by every accessor rather than resolving to a newer allocation in
// the same slot. IDs issued before Clear must be dropped: Clear restarts the
// ID sequence.
type ID = slab.ID

// Region is a rectangle inside one atlas layer, in pixels.
type Region struct {
	// X is the left edge of the region.
	X int
	// Y is the top edge of the region.
	Y int
	// Width is the region width.
	Width int
	// Height is the region height.
	Height int
}

func regionOf(r packer.Rect) Region {
	return Region{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

func (r Region) rect() packer.Rect {
	return packer.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}

// Contains returns true if the point (x, y) is inside the region.
func (r Region) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// String returns a string representation of the region.
func (r Region) String() string {
	return fmt.Sprintf("Region(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// Allocation describes where an image lives in the atlas.
// It is a value: the atlas never mutates an allocation handed out.
type Allocation[D any] struct {
	// Region is the placed rectangle.
	Region Region

	// Layer is the texture array layer holding the region.
	Layer int

	// Data is the caller metadata supplied on upload.
	Data D
}

// Position returns the top-left corner of the allocation.
func (a Allocation[D]) Position() (x, y int) {
	return a.Region.X, a.Region.Y
}

// Size returns the width and height of the allocation.
func (a Allocation[D]) Size() (w, h int) {
	return a.Region.Width, a.Region.Height
}

// UV returns normalized texture coordinates (u0, v0, u1, v1) for a layer
// of the given size.
func (a Allocation[D]) UV(atlasSize uint32) [4]float32 {
	s := float32(atlasSize)
	r := a.Region
	return [4]float32{
		float32(r.X) / s,
		float32(r.Y) / s,
		float32(r.X+r.Width) / s,
		float32(r.Y+r.Height) / s,
	}
}
