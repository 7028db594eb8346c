package glyphs

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/atlas"
	"github.com/gogpu/atlas/gpucore"
)

var (
	// ErrNoGlyph is returned when the face has no glyph for a rune.
	ErrNoGlyph = errors.New("glyphs: face has no glyph")

	// ErrAtlasFull is returned when a glyph cannot be placed.
	ErrAtlasFull = errors.New("glyphs: atlas full")
)

// Key identifies one rasterized glyph.
type Key struct {
	// Face is a caller-assigned identifier of the font face.
	Face uint64

	// Rune is the rasterized character.
	Rune rune

	// Size is the face size in pixels per em.
	// We use int16 for efficiency; sizes above 32K are rare.
	Size int16
}

// Metrics positions a glyph mask relative to the dot.
type Metrics struct {
	// Bearing is the offset from the dot to the top-left of the mask.
	Bearing image.Point

	// Advance is the horizontal advance.
	Advance fixed.Int26_6
}

// Glyph is an acquired glyph.
type Glyph struct {
	Key     Key
	Metrics Metrics

	// Empty reports a glyph without visible pixels, such as a space.
	// Empty glyphs have no atlas slot; ID and Alloc are zero.
	Empty bool

	ID    atlas.ID
	Alloc atlas.Allocation[Metrics]
}

type emptyGlyph struct {
	metrics Metrics
	refs    int
}

// Atlas is a reference-counted glyph atlas.
//
// Atlas is safe for concurrent use.
type Atlas struct {
	mu    sync.Mutex
	set   *atlas.AtlasSet[Key, Metrics]
	empty map[Key]*emptyGlyph
}

// New creates a glyph atlas with size x size layers.
func New(device gpucore.Device, size uint32) (*Atlas, error) {
	cfg := atlas.DefaultConfig()
	cfg.Size = size
	return NewWithConfig(device, cfg)
}

// NewWithConfig creates a glyph atlas from cfg. Format and UseRefCount are
// forced to R8Unorm and true.
func NewWithConfig(device gpucore.Device, cfg atlas.Config) (*Atlas, error) {
	cfg.Format = gpucore.TextureFormatR8Unorm
	cfg.UseRefCount = true
	set, err := atlas.NewWithConfig[Key, Metrics](device, cfg)
	if err != nil {
		return nil, fmt.Errorf("glyphs: %w", err)
	}
	return &Atlas{
		set:   set,
		empty: make(map[Key]*emptyGlyph),
	}, nil
}

// Acquire returns the glyph for key, rasterizing it from face on first use.
// Each successful Acquire adds one reference.
func (a *Atlas) Acquire(face font.Face, key Key) (Glyph, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.empty[key]; ok {
		e.refs++
		return Glyph{Key: key, Metrics: e.metrics, Empty: true}, nil
	}
	if a.set.ContainsKey(key) {
		id, alloc, ok := a.set.UploadWithAlloc(key, nil, 0, 0, Metrics{})
		if !ok {
			return Glyph{}, atlas.ErrClosed
		}
		return Glyph{Key: key, Metrics: alloc.Data, ID: id, Alloc: alloc}, nil
	}

	mask, metrics, ok := rasterize(face, key.Rune)
	if !ok {
		return Glyph{}, fmt.Errorf("%w: %q", ErrNoGlyph, key.Rune)
	}
	if mask == nil {
		a.empty[key] = &emptyGlyph{metrics: metrics, refs: 1}
		return Glyph{Key: key, Metrics: metrics, Empty: true}, nil
	}

	id, ok := a.set.UploadImage(key, mask, metrics)
	if !ok {
		b := mask.Bounds()
		return Glyph{}, fmt.Errorf("%w: %q (%dx%d)", ErrAtlasFull, key.Rune, b.Dx(), b.Dy())
	}
	alloc, _ := a.set.Peek(id)
	return Glyph{Key: key, Metrics: metrics, ID: id, Alloc: alloc}, nil
}

// Release drops one reference to key and reports whether the glyph was
// freed.
func (a *Atlas) Release(key Key) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.empty[key]; ok {
		e.refs--
		if e.refs > 0 {
			return false
		}
		delete(a.empty, key)
		return true
	}
	_, removed := a.set.RemoveByKey(key)
	return removed
}

// Lookup returns a live glyph without adding a reference.
func (a *Atlas) Lookup(key Key) (Glyph, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.empty[key]; ok {
		return Glyph{Key: key, Metrics: e.metrics, Empty: true}, true
	}
	id, ok := a.set.Lookup(key)
	if !ok {
		return Glyph{}, false
	}
	alloc, _ := a.set.Peek(id)
	return Glyph{Key: key, Metrics: alloc.Data, ID: id, Alloc: alloc}, true
}

// Len returns the number of live glyphs, empty glyphs included.
func (a *Atlas) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.set.Len() + len(a.empty)
}

// LayerSize returns the layer width and height in pixels.
func (a *Atlas) LayerSize() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, _, _ := a.set.Size()
	return w
}

// BindGroup returns the bind group of the glyph texture array.
func (a *Atlas) BindGroup() gpucore.BindGroupID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.set.BindGroup()
}

// Texture returns the glyph texture array.
func (a *Atlas) Texture() gpucore.TextureID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.set.Texture()
}

// Maintain compacts fragmented layers. Glyphs listed in the report moved
// and must have their texture coordinates rebuilt.
func (a *Atlas) Maintain() (atlas.MaintenanceReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.set.Maintain()
}

// Stats returns the underlying atlas statistics.
func (a *Atlas) Stats() atlas.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.set.Stats()
}

// Close releases the texture array.
func (a *Atlas) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.set.Close()
	clear(a.empty)
}

// rasterize draws the glyph for r with the dot at the origin.
// A nil mask with ok set means the glyph has no visible pixels.
func rasterize(face font.Face, r rune) (*image.Alpha, Metrics, bool) {
	dr, src, srcp, advance, ok := face.Glyph(fixed.Point26_6{}, r)
	if !ok {
		return nil, Metrics{}, false
	}
	m := Metrics{Bearing: dr.Min, Advance: advance}
	if dr.Empty() || src == nil {
		return nil, m, true
	}

	mask := image.NewAlpha(image.Rect(0, 0, dr.Dx(), dr.Dy()))
	draw.Draw(mask, mask.Bounds(), src, srcp, draw.Src)
	if blank(mask.Pix) {
		return nil, m, true
	}
	return mask, m, true
}

func blank(pix []byte) bool {
	for _, p := range pix {
		if p != 0 {
			return false
		}
	}
	return true
}
