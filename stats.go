package atlas

// counters accumulates operation counts over the atlas lifetime.
type counters struct {
	hits       uint64
	misses     uint64
	uploads    uint64
	evictions  uint64
	removals   uint64
	grows      uint64
	shrinks    uint64
	migrations uint64
}

// Stats is a snapshot of atlas activity and occupancy.
type Stats struct {
	// Hits counts uploads of keys that were already live.
	Hits uint64
	// Misses counts uploads of keys that were not live.
	Misses uint64
	// Uploads counts images written to the texture.
	Uploads uint64
	// Evictions counts allocations reclaimed under pressure in LRU mode.
	Evictions uint64
	// Removals counts allocations freed, evictions included.
	Removals uint64
	// Grows counts texture array growths.
	Grows uint64
	// Shrinks counts texture array shrinks by Maintain.
	Shrinks uint64
	// Migrations counts layers compacted by Maintain.
	Migrations uint64

	// Allocations is the number of live allocations.
	Allocations int
	// Layers describes each layer.
	Layers []LayerInfo
}

// HitRate returns Hits / (Hits + Misses), or 0 with no uploads.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the atlas counters and layers.
func (s *AtlasSet[K, D]) Stats() Stats {
	st := Stats{
		Hits:        s.stats.hits,
		Misses:      s.stats.misses,
		Uploads:     s.stats.uploads,
		Evictions:   s.stats.evictions,
		Removals:    s.stats.removals,
		Grows:       s.stats.grows,
		Shrinks:     s.stats.shrinks,
		Migrations:  s.stats.migrations,
		Allocations: s.store.Len(),
		Layers:      make([]LayerInfo, len(s.layers)),
	}
	for i, l := range s.layers {
		st.Layers[i] = l.info(i)
	}
	return st
}
