// Package packer implements rectangle packing for a single atlas layer.
package packer

import "fmt"

// Rect is a placed rectangle inside a packing area.
type Rect struct {
	// X is the left edge of the rectangle.
	X int
	// Y is the top edge of the rectangle.
	Y int
	// Width is the rectangle width.
	Width int
	// Height is the rectangle height.
	Height int
}

// IsValid returns true if the rectangle has positive dimensions.
func (r Rect) IsValid() bool {
	return r.Width > 0 && r.Height > 0
}

// Area returns Width*Height.
func (r Rect) Area() int {
	return r.Width * r.Height
}

// Overlaps reports whether r and o share at least one pixel.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// String returns a string representation of the rectangle.
func (r Rect) String() string {
	return fmt.Sprintf("Rect(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// span is a horizontal run of a shelf, either occupied or free.
// The spans of a shelf are sorted by x and cover [0, width) without gaps.
type span struct {
	x     int
	width int
	used  bool
}

// shelf is a horizontal strip of the area.
type shelf struct {
	y      int
	height int
	spans  []span
}

func (s *shelf) isEmpty() bool {
	return len(s.spans) == 1 && !s.spans[0].used
}

// ShelfAllocator packs rectangles into horizontal shelves and supports
// freeing them again.
//
// Shelves are stacked from the top of the area with no vertical gaps.
// Each shelf is split into spans; allocation carves a used span out of a
// free one and deallocation merges a freed span with its free neighbours.
// A shelf that becomes entirely free merges with free neighbouring shelves,
// and a free shelf at the bottom is dropped, so freeing every rectangle
// returns the allocator to its initial state.
//
// ShelfAllocator is not safe for concurrent use.
type ShelfAllocator struct {
	width   int
	height  int
	padding int
	shelves []shelf

	allocCount int
	usedArea   int
}

// NewShelfAllocator creates an allocator for a width x height area.
// Padding is reserved to the right and below every rectangle.
func NewShelfAllocator(width, height, padding int) *ShelfAllocator {
	if padding < 0 {
		padding = 0
	}
	return &ShelfAllocator{
		width:   width,
		height:  height,
		padding: padding,
		shelves: make([]shelf, 0, 16),
	}
}

// padded returns the footprint of a w x h rectangle, clamped to the area.
func (a *ShelfAllocator) padded(w, h int) (pw, ph int) {
	return min(w+a.padding, a.width), min(h+a.padding, a.height)
}

// bottom returns the first y coordinate below the last shelf.
func (a *ShelfAllocator) bottom() int {
	if len(a.shelves) == 0 {
		return 0
	}
	last := a.shelves[len(a.shelves)-1]
	return last.y + last.height
}

// findSpan returns the index of the first free span of at least pw pixels.
func (s *shelf) findSpan(pw int) int {
	for i, sp := range s.spans {
		if !sp.used && sp.width >= pw {
			return i
		}
	}
	return -1
}

// Allocate finds space for a w x h rectangle.
// Returns false if the size is not positive or no free space is large
// enough. Running out of space is expected; callers try another layer.
func (a *ShelfAllocator) Allocate(w, h int) (Rect, bool) {
	if w <= 0 || h <= 0 || w > a.width || h > a.height {
		return Rect{}, false
	}
	pw, ph := a.padded(w, h)

	// Best fit: the shortest shelf that is tall enough and has a wide
	// enough free span.
	best, bestSpan := -1, -1
	for i := range a.shelves {
		s := &a.shelves[i]
		if s.height < ph {
			continue
		}
		if best >= 0 && s.height >= a.shelves[best].height {
			continue
		}
		if j := s.findSpan(pw); j >= 0 {
			best, bestSpan = i, j
		}
	}

	if best >= 0 {
		if a.shelves[best].isEmpty() && a.shelves[best].height > ph {
			a.splitShelf(best, ph)
		}
		return a.place(best, bestSpan, w, h, pw), true
	}

	// Open a new shelf at the bottom.
	y := a.bottom()
	if y+ph > a.height {
		return Rect{}, false
	}
	a.shelves = append(a.shelves, shelf{
		y:      y,
		height: ph,
		spans:  []span{{x: 0, width: a.width}},
	})
	return a.place(len(a.shelves)-1, 0, w, h, pw), true
}

// splitShelf shrinks an empty shelf to height and inserts an empty shelf
// holding the remainder directly below it.
func (a *ShelfAllocator) splitShelf(i, height int) {
	s := a.shelves[i]
	rest := shelf{
		y:      s.y + height,
		height: s.height - height,
		spans:  []span{{x: 0, width: a.width}},
	}
	a.shelves[i].height = height
	a.shelves = append(a.shelves, shelf{})
	copy(a.shelves[i+2:], a.shelves[i+1:])
	a.shelves[i+1] = rest
}

// place carves a used span of pw pixels from the start of a free span.
func (a *ShelfAllocator) place(si, spi, w, h, pw int) Rect {
	s := &a.shelves[si]
	free := s.spans[spi]

	s.spans[spi] = span{x: free.x, width: pw, used: true}
	if rest := free.width - pw; rest > 0 {
		s.spans = append(s.spans, span{})
		copy(s.spans[spi+2:], s.spans[spi+1:])
		s.spans[spi+1] = span{x: free.x + pw, width: rest}
	}

	a.allocCount++
	a.usedArea += w * h

	return Rect{X: free.x, Y: s.y, Width: w, Height: h}
}

// Deallocate returns a rectangle previously handed out by Allocate to the
// free pool. Returns false if r does not match an outstanding allocation.
func (a *ShelfAllocator) Deallocate(r Rect) bool {
	si := -1
	for i := range a.shelves {
		if a.shelves[i].y == r.Y {
			si = i
			break
		}
	}
	if si < 0 {
		return false
	}

	s := &a.shelves[si]
	spi := -1
	for i, sp := range s.spans {
		if sp.x == r.X && sp.used {
			spi = i
			break
		}
	}
	if spi < 0 {
		return false
	}

	s.spans[spi].used = false
	s.mergeSpans(spi)

	a.allocCount--
	a.usedArea -= r.Width * r.Height

	if s.isEmpty() {
		a.mergeShelves(si)
	}
	return true
}

// mergeSpans coalesces the free span at i with free neighbours.
func (s *shelf) mergeSpans(i int) {
	if i+1 < len(s.spans) && !s.spans[i+1].used {
		s.spans[i].width += s.spans[i+1].width
		s.spans = append(s.spans[:i+1], s.spans[i+2:]...)
	}
	if i > 0 && !s.spans[i-1].used {
		s.spans[i-1].width += s.spans[i].width
		s.spans = append(s.spans[:i], s.spans[i+1:]...)
	}
}

// mergeShelves coalesces the empty shelf at i with empty neighbours and
// drops it when it ends up at the bottom.
func (a *ShelfAllocator) mergeShelves(i int) {
	if i+1 < len(a.shelves) && a.shelves[i+1].isEmpty() {
		a.shelves[i].height += a.shelves[i+1].height
		a.shelves = append(a.shelves[:i+1], a.shelves[i+2:]...)
	}
	if i > 0 && a.shelves[i-1].isEmpty() {
		a.shelves[i-1].height += a.shelves[i].height
		a.shelves = append(a.shelves[:i], a.shelves[i+1:]...)
		i--
	}
	if i == len(a.shelves)-1 {
		a.shelves = a.shelves[:i]
	}
}

// CanFit reports whether a w x h rectangle could be allocated right now.
// It does not modify the allocator.
func (a *ShelfAllocator) CanFit(w, h int) bool {
	if w <= 0 || h <= 0 || w > a.width || h > a.height {
		return false
	}
	pw, ph := a.padded(w, h)
	for i := range a.shelves {
		s := &a.shelves[i]
		if s.height >= ph && s.findSpan(pw) >= 0 {
			return true
		}
	}
	return a.bottom()+ph <= a.height
}

// Clear releases every allocation at once.
func (a *ShelfAllocator) Clear() {
	a.shelves = a.shelves[:0] // Keep capacity
	a.allocCount = 0
	a.usedArea = 0
}

// IsEmpty returns true if nothing is allocated.
func (a *ShelfAllocator) IsEmpty() bool {
	return a.allocCount == 0
}

// AllocCount returns the number of outstanding allocations.
func (a *ShelfAllocator) AllocCount() int {
	return a.allocCount
}

// UsedArea returns the total area of outstanding allocations, without padding.
func (a *ShelfAllocator) UsedArea() int {
	return a.usedArea
}

// TotalArea returns the area managed by the allocator.
func (a *ShelfAllocator) TotalArea() int {
	return a.width * a.height
}

// Utilization returns the fraction of the area in use (0.0 to 1.0).
func (a *ShelfAllocator) Utilization() float64 {
	total := a.TotalArea()
	if total <= 0 {
		return 0
	}
	return float64(a.usedArea) / float64(total)
}

// ShelfCount returns the number of shelves, free ones included.
func (a *ShelfAllocator) ShelfCount() int {
	return len(a.shelves)
}

// RemainingHeight returns the vertical space below the last shelf.
func (a *ShelfAllocator) RemainingHeight() int {
	return a.height - a.bottom()
}
