package atlas

import (
	"fmt"
	"math"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/gogpu/atlas/gpucore"
	"github.com/gogpu/atlas/internal/slab"
)

// entry is the store value: an allocation and the key it was uploaded under.
type entry[K comparable, D any] struct {
	alloc Allocation[D]
	key   K
}

// AtlasSet packs images keyed by K into the layers of one GPU texture array.
//
// Every upload is placed first-fit across layers. When no layer has room,
// space is reclaimed according to the eviction mode and, failing that, a new
// layer is added by growing the texture array.
//
// Two eviction modes exist:
//   - Reference-counted: each Upload of a live key adds a reference and
//     each Remove drops one; the allocation is freed when the count reaches
//     zero. Nothing is ever evicted under pressure.
//   - LRU: under pressure the least recently used allocations are evicted,
//     stopping at the first one used during the current frame. Call Trim
//     once per frame to start a new frame.
//
// AtlasSet is not safe for concurrent use.
type AtlasSet[K comparable, D any] struct {
	device gpucore.Device
	format gpucore.TextureFormat
	bpp    int

	useRefCount bool
	size        uint32
	padding     int
	maxLayers   int

	deallocationLimit int
	layerCheckLimit   int
	layerFreeLimit    int

	texture   gpucore.TextureID
	bindGroup gpucore.BindGroupID
	layers    []*layer

	store    *slab.Store[entry[K, D]]
	lookup   map[K]ID
	cache    *simplelru.LRU[ID, int] // id -> reference count, most recent first
	lastUsed map[ID]struct{}

	stats  counters
	closed bool
}

// New creates an atlas with default tuning.
// size is clamped to [MinSize, device max 2D dimension].
func New[K comparable, D any](device gpucore.Device, format gpucore.TextureFormat, useRefCount bool, size uint32) (*AtlasSet[K, D], error) {
	cfg := DefaultConfig()
	cfg.Format = format
	cfg.UseRefCount = useRefCount
	cfg.Size = size
	return NewWithConfig[K, D](device, cfg)
}

// NewWithConfig creates an atlas from a configuration.
func NewWithConfig[K comparable, D any](device gpucore.Device, cfg Config) (*AtlasSet[K, D], error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if gpucore.BytesPerPixel(cfg.Format) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, cfg.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	propagateLogger(device)

	limits := device.Limits()
	size := max(cfg.Size, MinSize)
	if limits.MaxTextureDimension2D > 0 {
		size = min(size, limits.MaxTextureDimension2D)
	}

	maxLayers := int(limits.MaxTextureArrayLayers)
	if cfg.MaxLayers != 0 && (maxLayers == 0 || int(cfg.MaxLayers) < maxLayers) {
		maxLayers = int(cfg.MaxLayers)
	}
	if maxLayers < 1 {
		maxLayers = 1
	}
	initial := max(int(cfg.InitialLayers), 1)
	initial = min(initial, maxLayers)

	cache, err := simplelru.NewLRU[ID, int](math.MaxInt, nil)
	if err != nil {
		return nil, fmt.Errorf("atlas: create lru: %w", err)
	}

	s := &AtlasSet[K, D]{
		device:            device,
		format:            cfg.Format,
		bpp:               gpucore.BytesPerPixel(cfg.Format),
		useRefCount:       cfg.UseRefCount,
		size:              size,
		padding:           cfg.Padding,
		maxLayers:         maxLayers,
		deallocationLimit: cfg.DeallocationLimit,
		layerCheckLimit:   max(int(float64(maxLayers)*cfg.LayerCheckRatio), 1),
		layerFreeLimit:    cfg.LayerFreeLimit,
		store:             slab.New[entry[K, D]](),
		lookup:            make(map[K]ID),
		cache:             cache,
		lastUsed:          make(map[ID]struct{}),
	}
	for range initial {
		s.layers = append(s.layers, newLayer(int(size), cfg.Padding))
	}

	if err := s.resize(initial, 0); err != nil {
		return nil, err
	}

	Logger().Info("atlas created",
		"size", size, "layers", initial, "max_layers", maxLayers,
		"format", FormatName(cfg.Format), "ref_count", cfg.UseRefCount)
	return s, nil
}

// Upload places an image under key and returns its ID.
//
// If key is already live the existing ID is returned without writing any
// pixels; in reference-counted mode this adds a reference. pixels holds
// width*height tightly packed texels in the atlas format.
// Returns false if the image cannot be placed or the device write fails.
func (s *AtlasSet[K, D]) Upload(key K, pixels []byte, width, height int, data D) (ID, bool) {
	id, _, ok := s.UploadWithAlloc(key, pixels, width, height, data)
	return id, ok
}

// UploadWithAlloc is like Upload but also returns the allocation.
func (s *AtlasSet[K, D]) UploadWithAlloc(key K, pixels []byte, width, height int, data D) (ID, Allocation[D], bool) {
	var none Allocation[D]
	if s.closed {
		return slab.InvalidID, none, false
	}

	if id, ok := s.lookup[key]; ok {
		e, _ := s.store.Get(id)
		count, _ := s.cache.Get(id)
		if s.useRefCount {
			count++
		}
		s.cache.Add(id, count)
		s.lastUsed[id] = struct{}{}
		s.stats.hits++
		return id, e.alloc, true
	}
	s.stats.misses++

	if width <= 0 || height <= 0 || len(pixels) < width*height*s.bpp {
		Logger().Warn("invalid upload",
			"width", width, "height", height, "bytes", len(pixels), "want", width*height*s.bpp)
		return slab.InvalidID, none, false
	}

	prevLayers := len(s.layers)
	alloc, ok := s.allocate(width, height, data)
	if !ok {
		return slab.InvalidID, none, false
	}

	if added := len(s.layers) - prevLayers; added > 0 {
		if err := s.grow(added); err != nil {
			// The allocation is in one of the new layers; dropping them
			// restores the previous state.
			s.layers = s.layers[:prevLayers]
			Logger().Warn("atlas grow failed", "layers", len(s.layers)+added, "err", err)
			return slab.InvalidID, none, false
		}
	}

	if err := s.write(alloc.Layer, alloc.Region, pixels); err != nil {
		s.layers[alloc.Layer].packer.Deallocate(alloc.Region.rect())
		Logger().Warn("atlas texture write failed", "layer", alloc.Layer, "region", alloc.Region, "err", err)
		return slab.InvalidID, none, false
	}

	id := s.store.Insert(entry[K, D]{alloc: alloc, key: key})
	s.layers[alloc.Layer].ids[id] = struct{}{}
	s.lookup[key] = id
	s.cache.Add(id, 1)
	s.lastUsed[id] = struct{}{}
	s.stats.uploads++

	return id, alloc, true
}

// allocate places a width x height rectangle, evicting or adding a layer
// if needed. New layers are appended to s.layers; the caller grows the
// texture to match.
func (s *AtlasSet[K, D]) allocate(width, height int, data D) (Allocation[D], bool) {
	if width > int(s.size) || height > int(s.size) {
		return Allocation[D]{}, false
	}

	for i, l := range s.layers {
		if r, ok := l.allocate(width, height); ok {
			return Allocation[D]{Region: r, Layer: i, Data: data}, true
		}
	}

	if !s.useRefCount {
		// Each pass removes one entry, so the LRU length bounds the loop.
		for budget := s.cache.Len(); budget > 0; budget-- {
			id, _, ok := s.cache.GetOldest()
			if !ok {
				break
			}
			if _, used := s.lastUsed[id]; used {
				break
			}
			index, removed := s.Remove(id)
			if !removed {
				break
			}
			s.stats.evictions++
			Logger().Debug("atlas evicted", "id", id, "layer", index)

			if r, ok := s.layers[index].allocate(width, height); ok {
				return Allocation[D]{Region: r, Layer: index, Data: data}, true
			}
		}
	}

	if len(s.layers) < s.maxLayers {
		l := newLayer(int(s.size), s.padding)
		r, ok := l.allocate(width, height)
		if !ok {
			return Allocation[D]{}, false
		}
		s.layers = append(s.layers, l)
		return Allocation[D]{Region: r, Layer: len(s.layers) - 1, Data: data}, true
	}

	return Allocation[D]{}, false
}

// write copies pixels into the texture at region.
func (s *AtlasSet[K, D]) write(layer int, r Region, pixels []byte) error {
	return s.device.WriteTexture(s.texture, gpucore.TextureRegion{
		Layer:  uint32(layer),
		X:      uint32(r.X),
		Y:      uint32(r.Y),
		Width:  uint32(r.Width),
		Height: uint32(r.Height),
	}, pixels, uint32(r.Width*s.bpp))
}

// Lookup returns the ID live under key.
func (s *AtlasSet[K, D]) Lookup(key K) (ID, bool) {
	id, ok := s.lookup[key]
	return id, ok
}

// Contains returns true if id is live.
func (s *AtlasSet[K, D]) Contains(id ID) bool {
	return s.store.Contains(id)
}

// ContainsKey returns true if key has a live allocation.
func (s *AtlasSet[K, D]) ContainsKey(key K) bool {
	_, ok := s.lookup[key]
	return ok
}

// Get returns the allocation of id and marks it used this frame.
func (s *AtlasSet[K, D]) Get(id ID) (Allocation[D], bool) {
	e, ok := s.store.Get(id)
	if !ok {
		return Allocation[D]{}, false
	}
	s.touch(id)
	return e.alloc, true
}

// GetByKey returns the allocation of key and marks it used this frame.
func (s *AtlasSet[K, D]) GetByKey(key K) (Allocation[D], bool) {
	id, ok := s.lookup[key]
	if !ok {
		return Allocation[D]{}, false
	}
	return s.Get(id)
}

// Peek returns the allocation of id without affecting recency.
func (s *AtlasSet[K, D]) Peek(id ID) (Allocation[D], bool) {
	e, ok := s.store.Get(id)
	return e.alloc, ok
}

// PeekByKey returns the allocation of key without affecting recency.
func (s *AtlasSet[K, D]) PeekByKey(key K) (Allocation[D], bool) {
	id, ok := s.lookup[key]
	if !ok {
		return Allocation[D]{}, false
	}
	return s.Peek(id)
}

// Promote marks id as most recently used and used this frame.
func (s *AtlasSet[K, D]) Promote(id ID) bool {
	if !s.store.Contains(id) {
		return false
	}
	s.touch(id)
	return true
}

// PromoteByKey marks key as most recently used and used this frame.
func (s *AtlasSet[K, D]) PromoteByKey(key K) bool {
	id, ok := s.lookup[key]
	if !ok {
		return false
	}
	return s.Promote(id)
}

func (s *AtlasSet[K, D]) touch(id ID) {
	s.cache.Get(id)
	s.lastUsed[id] = struct{}{}
}

// Remove drops one reference to id.
//
// In reference-counted mode the allocation stays live while references
// remain and Remove reports false. Otherwise the allocation is freed and
// Remove returns the layer it was freed from.
func (s *AtlasSet[K, D]) Remove(id ID) (layer int, removed bool) {
	count, ok := s.cache.Peek(id)
	if !ok {
		return -1, false
	}
	count--
	if s.useRefCount && count > 0 {
		s.cache.Add(id, count)
		return -1, false
	}

	s.cache.Remove(id)
	e, ok := s.store.Remove(id)
	if !ok {
		panic("atlas: cached id missing from store: " + id.String())
	}
	if s.lookup[e.key] == id {
		delete(s.lookup, e.key)
	}
	delete(s.lastUsed, id)

	s.layers[e.alloc.Layer].release(id, e.alloc.Region)
	s.stats.removals++

	return e.alloc.Layer, true
}

// RemoveByKey drops one reference to key. See Remove.
func (s *AtlasSet[K, D]) RemoveByKey(key K) (layer int, removed bool) {
	id, ok := s.lookup[key]
	if !ok {
		return -1, false
	}
	return s.Remove(id)
}

// Trim starts a new frame: nothing counts as used until it is read again.
func (s *AtlasSet[K, D]) Trim() {
	clear(s.lastUsed)
}

// Clear frees every allocation. Layers and texture memory are kept; stale
// pixels are overwritten by later uploads. IDs restart from the beginning,
// so IDs obtained before Clear must be dropped.
func (s *AtlasSet[K, D]) Clear() {
	for _, l := range s.layers {
		l.clear()
	}
	s.store.Clear()
	clear(s.lookup)
	s.cache.Purge()
	clear(s.lastUsed)
}

// Len returns the number of live allocations.
func (s *AtlasSet[K, D]) Len() int {
	return s.store.Len()
}

// Size returns the layer width, height and the number of layers.
func (s *AtlasSet[K, D]) Size() (width, height, layers uint32) {
	return s.size, s.size, uint32(len(s.layers))
}

// Format returns the texture format.
func (s *AtlasSet[K, D]) Format() gpucore.TextureFormat {
	return s.format
}

// UseRefCount reports whether the atlas runs in reference-counted mode.
func (s *AtlasSet[K, D]) UseRefCount() bool {
	return s.useRefCount
}

// BindGroup returns the shader binding for the current texture array.
// The handle changes whenever the array grows or shrinks.
func (s *AtlasSet[K, D]) BindGroup() gpucore.BindGroupID {
	return s.bindGroup
}

// Texture returns the current texture array.
func (s *AtlasSet[K, D]) Texture() gpucore.TextureID {
	return s.texture
}

// Close releases the GPU resources. Uploads fail afterwards.
func (s *AtlasSet[K, D]) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.bindGroup != gpucore.InvalidID {
		s.device.DestroyBindGroup(s.bindGroup)
		s.bindGroup = gpucore.InvalidID
	}
	if s.texture != gpucore.InvalidID {
		s.device.DestroyTexture(s.texture)
		s.texture = gpucore.InvalidID
	}
}
