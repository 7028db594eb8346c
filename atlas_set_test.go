package atlas

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/gogpu/atlas/backend/soft"
	"github.com/gogpu/atlas/gpucore"
	"github.com/gogpu/atlas/internal/slab"
)

func testConfig(size, maxLayers uint32, refCount bool) Config {
	cfg := DefaultConfig()
	cfg.Size = size
	cfg.MaxLayers = maxLayers
	cfg.UseRefCount = refCount
	return cfg
}

func newTestSet(t *testing.T, cfg Config) (*AtlasSet[string, int], *soft.Device) {
	t.Helper()
	dev := soft.New(nil)
	set, err := NewWithConfig[string, int](dev, cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	t.Cleanup(set.Close)
	return set, dev
}

// solid returns RGBA pixels filled with v.
func solid(w, h int, v byte) []byte {
	return bytes.Repeat([]byte{v}, w*h*4)
}

func mustUpload(t *testing.T, set *AtlasSet[string, int], key string, w, h int) ID {
	t.Helper()
	id, ok := set.Upload(key, solid(w, h, 1), w, h, 0)
	if !ok {
		t.Fatalf("Upload(%q, %dx%d) failed", key, w, h)
	}
	return id
}

// checkInvariants verifies the bookkeeping shared by store, lookup, LRU,
// last-used set and layers.
func checkInvariants[K comparable, D any](t *testing.T, s *AtlasSet[K, D]) {
	t.Helper()

	if s.store.Len() != len(s.lookup) {
		t.Fatalf("store has %d entries, lookup %d", s.store.Len(), len(s.lookup))
	}
	if s.store.Len() != s.cache.Len() {
		t.Fatalf("store has %d entries, lru %d", s.store.Len(), s.cache.Len())
	}
	for key, id := range s.lookup {
		e, ok := s.store.Get(id)
		if !ok {
			t.Fatalf("lookup id %v is not live", id)
		}
		if e.key != key {
			t.Fatalf("entry %v has key %v, lookup says %v", id, e.key, key)
		}
		if _, ok := s.cache.Peek(id); !ok {
			t.Fatalf("live id %v missing from lru", id)
		}
	}
	for id := range s.lastUsed {
		if !s.store.Contains(id) {
			t.Fatalf("last-used id %v is not live", id)
		}
	}
	if len(s.layers) > s.maxLayers {
		t.Fatalf("%d layers exceed max %d", len(s.layers), s.maxLayers)
	}

	perLayer := make([][]Region, len(s.layers))
	total := 0
	s.store.Range(func(id ID, e entry[K, D]) bool {
		if e.alloc.Layer < 0 || e.alloc.Layer >= len(s.layers) {
			t.Fatalf("id %v on missing layer %d", id, e.alloc.Layer)
		}
		if _, ok := s.layers[e.alloc.Layer].ids[id]; !ok {
			t.Fatalf("layer %d does not list id %v", e.alloc.Layer, id)
		}
		perLayer[e.alloc.Layer] = append(perLayer[e.alloc.Layer], e.alloc.Region)
		return true
	})
	for i, l := range s.layers {
		total += len(l.ids)
		rs := perLayer[i]
		for a := range rs {
			for b := a + 1; b < len(rs); b++ {
				if rs[a].rect().Overlaps(rs[b].rect()) {
					t.Fatalf("layer %d: %v overlaps %v", i, rs[a], rs[b])
				}
			}
		}
	}
	if total != s.store.Len() {
		t.Fatalf("layers list %d ids, store has %d", total, s.store.Len())
	}
	if n, ok := s.device.(*soft.Device).TextureLayers(s.texture); !ok || int(n) != len(s.layers) {
		t.Fatalf("texture has %d layers, atlas %d", n, len(s.layers))
	}
}

func TestNew(t *testing.T) {
	dev := soft.New(&gpucore.Limits{MaxTextureDimension2D: 512, MaxTextureArrayLayers: 8})

	tests := []struct {
		name string
		size uint32
		want uint32
	}{
		{"clamped up", 100, 256},
		{"kept", 384, 384},
		{"clamped to device", 4096, 512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := New[string, int](dev, gpucore.TextureFormatRGBA8Unorm, false, tt.size)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer set.Close()

			w, h, layers := set.Size()
			if w != tt.want || h != tt.want {
				t.Errorf("Size() = %dx%d, want %dx%d", w, h, tt.want, tt.want)
			}
			if layers != 1 {
				t.Errorf("layers = %d, want 1", layers)
			}
			if set.BindGroup() == gpucore.InvalidID {
				t.Error("BindGroup() is invalid")
			}
			if set.maxLayers != 8 {
				t.Errorf("maxLayers = %d, want device limit 8", set.maxLayers)
			}
		})
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New[string, int](nil, gpucore.TextureFormatRGBA8Unorm, false, 256); !errors.Is(err, ErrNilDevice) {
		t.Errorf("nil device: err = %v, want ErrNilDevice", err)
	}

	dev := soft.New(nil)
	if _, err := New[string, int](dev, gpucore.TextureFormat(0), false, 256); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("undefined format: err = %v, want ErrUnsupportedFormat", err)
	}

	cfg := testConfig(256, 4, false)
	cfg.LayerFreeLimit = 0
	var cerr *ConfigError
	if _, err := NewWithConfig[string, int](dev, cfg); !errors.As(err, &cerr) || cerr.Field != "LayerFreeLimit" {
		t.Errorf("invalid config: err = %v, want ConfigError on LayerFreeLimit", err)
	}

	injected := errors.New("out of memory")
	dev.FailNextCreate(injected)
	if _, err := New[string, int](dev, gpucore.TextureFormatRGBA8Unorm, false, 256); !errors.Is(err, injected) {
		t.Errorf("device failure: err = %v, want wrapped injected error", err)
	}
}

func TestUploadAndLookup(t *testing.T) {
	set, _ := newTestSet(t, testConfig(256, 4, false))

	id, alloc, ok := set.UploadWithAlloc("a", solid(10, 20, 1), 10, 20, 42)
	if !ok {
		t.Fatal("UploadWithAlloc failed")
	}
	if w, h := alloc.Size(); w != 10 || h != 20 {
		t.Errorf("alloc size = %dx%d, want 10x20", w, h)
	}
	if alloc.Data != 42 || alloc.Layer != 0 {
		t.Errorf("alloc = %+v", alloc)
	}

	if got, ok := set.Lookup("a"); !ok || got != id {
		t.Errorf("Lookup(a) = %v, %v; want %v", got, ok, id)
	}
	if !set.Contains(id) || !set.ContainsKey("a") {
		t.Error("Contains/ContainsKey = false for live entry")
	}
	if set.ContainsKey("b") {
		t.Error("ContainsKey(b) = true")
	}
	if got, ok := set.Peek(id); !ok || got != alloc {
		t.Errorf("Peek = %+v, %v", got, ok)
	}
	if got, ok := set.GetByKey("a"); !ok || got != alloc {
		t.Errorf("GetByKey = %+v, %v", got, ok)
	}
	if got, ok := set.PeekByKey("a"); !ok || got != alloc {
		t.Errorf("PeekByKey = %+v, %v", got, ok)
	}
	if set.Len() != 1 {
		t.Errorf("Len() = %d, want 1", set.Len())
	}
	checkInvariants(t, set)
}

func TestUploadRepeatSameID(t *testing.T) {
	set, dev := newTestSet(t, testConfig(256, 4, false))

	first := mustUpload(t, set, "a", 16, 16)
	writes := dev.Stats().Writes

	second, ok := set.Upload("a", solid(16, 16, 9), 16, 16, 0)
	if !ok {
		t.Fatal("repeat Upload failed")
	}
	if second != first {
		t.Errorf("repeat Upload id = %v, want %v", second, first)
	}
	if got := dev.Stats().Writes; got != writes {
		t.Errorf("repeat Upload issued %d writes", got-writes)
	}
	if st := set.Stats(); st.Hits != 1 || st.Misses != 1 || st.Uploads != 1 {
		t.Errorf("Stats = %+v", st)
	}
}

// LRU mode: an entry read this frame survives pressure, an unread one is
// evicted.
func TestLRUEvictionKeepsUsedEntries(t *testing.T) {
	set, _ := newTestSet(t, testConfig(256, 4, false))

	a := mustUpload(t, set, "a", 64, 64)
	b := mustUpload(t, set, "b", 64, 64)
	if a == b {
		t.Fatal("a and b share an id")
	}
	allocA, _ := set.Peek(a)
	allocB, _ := set.Peek(b)
	if allocA.Layer != 0 || allocB.Layer != 0 {
		t.Fatalf("a and b on layers %d and %d, want 0", allocA.Layer, allocB.Layer)
	}

	set.Trim()
	if _, ok := set.GetByKey("a"); !ok {
		t.Fatal("GetByKey(a) failed")
	}

	for i := 0; ; i++ {
		key := fmt.Sprintf("big%d", i)
		if _, ok := set.Upload(key, solid(256, 256, 2), 256, 256, 0); !ok {
			break
		}
		if i > 8 {
			t.Fatal("uploads never exhausted the atlas")
		}
	}

	if set.ContainsKey("b") {
		t.Error("b survived eviction")
	}
	if !set.ContainsKey("a") {
		t.Error("a was evicted although it was used this frame")
	}
	if _, _, layers := set.Size(); layers != 4 {
		t.Errorf("layers = %d, want 4", layers)
	}
	if st := set.Stats(); st.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", st.Evictions)
	}
	checkInvariants(t, set)
}

func TestLayerCeiling(t *testing.T) {
	set, _ := newTestSet(t, testConfig(256, 1, false))

	first := mustUpload(t, set, "first", 256, 256)
	if _, ok := set.Upload("second", solid(256, 256, 1), 256, 256, 0); ok {
		t.Fatal("second full-layer upload succeeded with one layer")
	}
	if !set.Contains(first) {
		t.Error("first upload lost")
	}
	if _, _, layers := set.Size(); layers != 1 {
		t.Errorf("layers = %d, want 1", layers)
	}
	checkInvariants(t, set)
}

func TestTrimStartsNewFrame(t *testing.T) {
	set, _ := newTestSet(t, testConfig(256, 1, false))

	mustUpload(t, set, "a", 256, 256)
	if _, ok := set.Upload("b", solid(256, 256, 1), 256, 256, 0); ok {
		t.Fatal("upload evicted an entry used this frame")
	}

	set.Trim()
	if _, ok := set.Upload("b", solid(256, 256, 1), 256, 256, 0); !ok {
		t.Fatal("upload after Trim failed")
	}
	if set.ContainsKey("a") {
		t.Error("a not evicted after Trim")
	}
	checkInvariants(t, set)
}

func TestPeekDoesNotProtect(t *testing.T) {
	set, _ := newTestSet(t, testConfig(256, 1, false))

	a := mustUpload(t, set, "a", 128, 256)
	b := mustUpload(t, set, "b", 128, 256)
	set.Trim()

	if _, ok := set.Peek(a); !ok {
		t.Fatal("Peek(a) failed")
	}
	if !set.Promote(b) {
		t.Fatal("Promote(b) failed")
	}

	if _, ok := set.Upload("c", solid(128, 256, 1), 128, 256, 0); !ok {
		t.Fatal("Upload(c) failed")
	}
	if set.Contains(a) {
		t.Error("peeked entry a was protected from eviction")
	}
	if !set.Contains(b) {
		t.Error("promoted entry b was evicted")
	}
	checkInvariants(t, set)
}

func TestPromoteUnknown(t *testing.T) {
	set, _ := newTestSet(t, testConfig(256, 1, false))

	if set.Promote(slab.InvalidID) {
		t.Error("Promote(InvalidID) = true")
	}
	if set.PromoteByKey("missing") {
		t.Error("PromoteByKey(missing) = true")
	}
	if _, ok := set.Get(slab.InvalidID); ok {
		t.Error("Get(InvalidID) succeeded")
	}
	if len(set.lastUsed) != 0 {
		t.Errorf("unknown ids marked used: %v", set.lastUsed)
	}
}

func TestRefCountRemoval(t *testing.T) {
	set, _ := newTestSet(t, testConfig(256, 4, true))

	const n = 3
	var id ID
	for i := 0; i < n; i++ {
		got := mustUpload(t, set, "glyph", 64, 64)
		if i > 0 && got != id {
			t.Fatalf("upload %d id = %v, want %v", i, got, id)
		}
		id = got
	}
	alloc, _ := set.Peek(id)

	for i := 1; i < n; i++ {
		if layer, removed := set.Remove(id); removed || layer != -1 {
			t.Fatalf("Remove %d = %d, %v; want -1, false", i, layer, removed)
		}
		if !set.ContainsKey("glyph") {
			t.Fatalf("glyph freed after %d of %d removes", i, n)
		}
		if _, ok := set.Get(id); !ok {
			t.Fatalf("Get failed after %d removes", i)
		}
	}

	layer, removed := set.RemoveByKey("glyph")
	if !removed || layer != 0 {
		t.Fatalf("final RemoveByKey = %d, %v; want 0, true", layer, removed)
	}
	if _, ok := set.Lookup("glyph"); ok {
		t.Error("Lookup succeeded after final remove")
	}
	if set.Contains(id) {
		t.Error("Contains(id) after final remove")
	}

	// The freed rectangle is reused.
	_, reused, ok := set.UploadWithAlloc("other", solid(64, 64, 1), 64, 64, 0)
	if !ok {
		t.Fatal("upload into freed space failed")
	}
	if reused.Layer != alloc.Layer || reused.Region != alloc.Region {
		t.Errorf("reused allocation %+v, want region %v on layer %d", reused, alloc.Region, alloc.Layer)
	}
	checkInvariants(t, set)
}

func TestRefCountNeverEvicts(t *testing.T) {
	set, _ := newTestSet(t, testConfig(256, 1, true))

	mustUpload(t, set, "a", 256, 256)
	set.Trim()

	if _, ok := set.Upload("b", solid(8, 8, 1), 8, 8, 0); ok {
		t.Fatal("upload succeeded by evicting a referenced entry")
	}
	if !set.ContainsKey("a") {
		t.Error("referenced entry evicted")
	}
	if st := set.Stats(); st.Evictions != 0 {
		t.Errorf("Evictions = %d, want 0", st.Evictions)
	}
}

func TestRemoveUnknown(t *testing.T) {
	set, _ := newTestSet(t, testConfig(256, 1, false))

	if layer, removed := set.Remove(slab.InvalidID); removed || layer != -1 {
		t.Errorf("Remove(InvalidID) = %d, %v", layer, removed)
	}
	if _, removed := set.RemoveByKey("missing"); removed {
		t.Error("RemoveByKey(missing) = true")
	}
}

func TestStaleIDRejected(t *testing.T) {
	set, _ := newTestSet(t, testConfig(256, 1, false))

	old := mustUpload(t, set, "old", 32, 32)
	if _, removed := set.Remove(old); !removed {
		t.Fatal("Remove(old) failed")
	}
	fresh := mustUpload(t, set, "new", 32, 32)

	if fresh == old {
		t.Fatal("reused slot kept the same id")
	}
	if set.Contains(old) {
		t.Error("Contains(stale) = true")
	}
	if _, ok := set.Get(old); ok {
		t.Error("Get(stale) resolved to the new entry")
	}
	if _, removed := set.Remove(old); removed {
		t.Error("Remove(stale) removed the new entry")
	}
	if !set.Contains(fresh) {
		t.Error("new entry lost")
	}
}

func TestUploadTooLarge(t *testing.T) {
	for _, refCount := range []bool{false, true} {
		t.Run(fmt.Sprintf("refcount=%v", refCount), func(t *testing.T) {
			set, _ := newTestSet(t, testConfig(256, 4, refCount))
			mustUpload(t, set, "small", 8, 8)

			sizes := [][2]int{{257, 1}, {1, 257}, {300, 300}}
			for _, sz := range sizes {
				if _, ok := set.Upload("big", solid(sz[0], sz[1], 1), sz[0], sz[1], 0); ok {
					t.Errorf("Upload %dx%d succeeded", sz[0], sz[1])
				}
			}
			if _, _, layers := set.Size(); layers != 1 {
				t.Errorf("layers = %d, want 1", layers)
			}
			if !set.ContainsKey("small") {
				t.Error("oversized upload evicted an entry")
			}
		})
	}
}

func TestUploadInvalidInput(t *testing.T) {
	set, dev := newTestSet(t, testConfig(256, 1, false))

	tests := []struct {
		name   string
		pixels []byte
		w, h   int
	}{
		{"zero width", solid(1, 1, 0), 0, 1},
		{"negative height", solid(1, 1, 0), 1, -1},
		{"short data", solid(4, 3, 0), 4, 4},
		{"nil data", nil, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := set.Upload(tt.name, tt.pixels, tt.w, tt.h, 0); ok {
				t.Error("invalid upload succeeded")
			}
		})
	}
	if set.Len() != 0 || dev.Stats().Writes != 0 {
		t.Errorf("invalid uploads left state: len=%d writes=%d", set.Len(), dev.Stats().Writes)
	}
}

func TestGrowPreservesContent(t *testing.T) {
	set, dev := newTestSet(t, testConfig(256, 4, false))

	a := solid(256, 256, 0x11)
	if _, ok := set.Upload("a", a, 256, 256, 0); !ok {
		t.Fatal("Upload(a) failed")
	}
	oldBind := set.BindGroup()
	oldTex := set.Texture()

	if _, ok := set.Upload("b", solid(256, 256, 0x22), 256, 256, 0); !ok {
		t.Fatal("Upload(b) failed")
	}
	if _, _, layers := set.Size(); layers != 2 {
		t.Fatalf("layers = %d, want 2", layers)
	}
	if set.BindGroup() == oldBind || set.Texture() == oldTex {
		t.Error("grow did not replace texture and bind group")
	}

	got, err := dev.ReadRegion(set.Texture(), gpucore.TextureRegion{Layer: 0, Width: 256, Height: 256})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, a) {
		t.Error("layer 0 content lost during grow")
	}

	ds := dev.Stats()
	if ds.TexturesLive != 1 || ds.BindGroupsLive != 1 {
		t.Errorf("old resources leaked: %+v", ds)
	}
	if st := set.Stats(); st.Grows != 1 {
		t.Errorf("Grows = %d, want 1", st.Grows)
	}
	checkInvariants(t, set)
}

func TestGrowFailureRollsBack(t *testing.T) {
	set, dev := newTestSet(t, testConfig(256, 4, true))

	mustUpload(t, set, "a", 256, 256)
	dev.FailNextCreate(errors.New("out of memory"))

	if _, ok := set.Upload("b", solid(256, 256, 1), 256, 256, 0); ok {
		t.Fatal("upload succeeded although growth failed")
	}
	if set.ContainsKey("b") {
		t.Error("failed upload left a key behind")
	}
	if _, _, layers := set.Size(); layers != 1 {
		t.Errorf("layers = %d after failed grow, want 1", layers)
	}
	checkInvariants(t, set)

	if _, ok := set.Upload("b", solid(256, 256, 1), 256, 256, 0); !ok {
		t.Fatal("retry after failed grow failed")
	}
	checkInvariants(t, set)
}

func TestWriteFailureFreesSpace(t *testing.T) {
	set, dev := newTestSet(t, testConfig(256, 1, true))

	dev.FailNextWrite(errors.New("device lost"))
	if _, ok := set.Upload("a", solid(256, 256, 1), 256, 256, 0); ok {
		t.Fatal("upload succeeded although the write failed")
	}
	if _, ok := set.Upload("a", solid(256, 256, 1), 256, 256, 0); !ok {
		t.Fatal("space of the failed upload was not released")
	}
	checkInvariants(t, set)
}

func TestClearMatchesFreshSet(t *testing.T) {
	run := func(set *AtlasSet[string, int]) []Allocation[int] {
		var out []Allocation[int]
		for i, sz := range [][2]int{{30, 40}, {64, 64}, {10, 10}, {200, 50}} {
			id, alloc, ok := set.UploadWithAlloc(fmt.Sprint(i), solid(sz[0], sz[1], 1), sz[0], sz[1], i)
			if !ok {
				t.Fatalf("upload %d failed", i)
			}
			alloc.Data = int(id.Index())<<8 | int(id.Generation())
			out = append(out, alloc)
		}
		return out
	}

	used, _ := newTestSet(t, testConfig(256, 4, false))
	run(used)
	used.RemoveByKey("1")
	mustUpload(t, used, "extra", 100, 100)
	used.Clear()

	if used.Len() != 0 || used.ContainsKey("0") || used.ContainsKey("extra") {
		t.Fatalf("Clear left entries: len=%d", used.Len())
	}
	checkInvariants(t, used)

	fresh, _ := newTestSet(t, testConfig(256, 4, false))

	got := run(used)
	want := run(fresh)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("upload %d after Clear = %+v, fresh = %+v", i, got[i], want[i])
		}
	}
}

func TestLookupTracksLiveKeys(t *testing.T) {
	for _, refCount := range []bool{false, true} {
		t.Run(fmt.Sprintf("refcount=%v", refCount), func(t *testing.T) {
			set, _ := newTestSet(t, testConfig(256, 3, refCount))
			rng := rand.New(rand.NewSource(7))
			refs := make(map[string]int)

			for step := 0; step < 1500; step++ {
				key := fmt.Sprintf("k%d", rng.Intn(40))
				switch op := rng.Intn(10); {
				case op < 5:
					w, h := 8+rng.Intn(100), 8+rng.Intn(100)
					if _, ok := set.Upload(key, solid(w, h, byte(step)), w, h, step); ok {
						refs[key]++
					}
				case op < 8:
					if _, removed := set.RemoveByKey(key); removed || !refCount {
						delete(refs, key)
					} else if refs[key] > 0 {
						refs[key]--
					}
				case op < 9:
					set.GetByKey(key)
				default:
					set.Trim()
				}

				if !refCount {
					// Evictions remove keys behind the model's back.
					for k := range refs {
						if !set.ContainsKey(k) {
							delete(refs, k)
						}
					}
				}
				for k := range refs {
					if _, ok := set.Lookup(k); !ok {
						t.Fatalf("step %d: live key %s not found", step, k)
					}
				}
				if set.Len() != len(refs) {
					t.Fatalf("step %d: Len() = %d, model has %d keys", step, set.Len(), len(refs))
				}
				checkInvariants(t, set)
			}
		})
	}
}

func TestCloseReleasesResources(t *testing.T) {
	dev := soft.New(nil)
	set, err := New[string, int](dev, gpucore.TextureFormatR8Unorm, true, 256)
	if err != nil {
		t.Fatal(err)
	}
	set.Close()
	set.Close()

	if ds := dev.Stats(); ds.TexturesLive != 0 || ds.BindGroupsLive != 0 {
		t.Errorf("resources alive after Close: %+v", ds)
	}
	if _, ok := set.Upload("a", []byte{1}, 1, 1, 0); ok {
		t.Error("Upload after Close succeeded")
	}
	if _, err := set.Maintain(); !errors.Is(err, ErrClosed) {
		t.Errorf("Maintain after Close: err = %v, want ErrClosed", err)
	}
}

func TestAllocationUV(t *testing.T) {
	a := Allocation[int]{Region: Region{X: 64, Y: 128, Width: 64, Height: 32}}
	uv := a.UV(256)
	want := [4]float32{0.25, 0.5, 0.5, 0.625}
	if uv != want {
		t.Errorf("UV = %v, want %v", uv, want)
	}
	if x, y := a.Position(); x != 64 || y != 128 {
		t.Errorf("Position = %d,%d", x, y)
	}
	if !a.Region.Contains(64, 128) || a.Region.Contains(128, 128) {
		t.Error("Region.Contains wrong at edges")
	}
}

func BenchmarkUploadHit(b *testing.B) {
	set, err := New[int, struct{}](soft.New(nil), gpucore.TextureFormatR8Unorm, true, 1024)
	if err != nil {
		b.Fatal(err)
	}
	px := make([]byte, 16*16)
	set.Upload(0, px, 16, 16, struct{}{})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		set.Upload(0, px, 16, 16, struct{}{})
	}
}

func BenchmarkUploadChurn(b *testing.B) {
	set, err := New[int, struct{}](soft.New(nil), gpucore.TextureFormatR8Unorm, false, 1024)
	if err != nil {
		b.Fatal(err)
	}
	px := make([]byte, 32*32)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		set.Upload(i, px, 8+i%24, 8+i%24, struct{}{})
		if i%64 == 0 {
			set.Trim()
		}
	}
}
