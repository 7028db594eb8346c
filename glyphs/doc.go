// Package glyphs caches rasterized glyph masks in an R8Unorm atlas.
//
// The atlas is reference counted: every Acquire of a glyph must be matched
// by a Release, and a glyph's slot is freed when its last reference is
// released. Glyphs are rasterized from any golang.org/x/image/font.Face.
//
// Example:
//
//	ga, err := glyphs.New(device, 1024)
//	if err != nil {
//		return err
//	}
//	defer ga.Close()
//
//	g, err := ga.Acquire(face, glyphs.Key{Face: 1, Rune: 'A', Size: 13})
//	if err != nil {
//		return err
//	}
//	defer ga.Release(g.Key)
//	uv := g.Alloc.UV(ga.LayerSize())
package glyphs
