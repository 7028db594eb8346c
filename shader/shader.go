// Package shader holds the WGSL used to draw from an atlas texture array.
//
// The bind group layout matches the one created by backend/native:
// binding 0 is a texture_2d_array<f32> and binding 1 a filtering sampler,
// both visible to the fragment stage.
package shader

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed shaders/atlas.wgsl
var AtlasWGSL string

// Entry points in AtlasWGSL.
const (
	VertexEntry = "vs_main"

	// ColorEntry samples RGBA texels and multiplies them by the vertex color.
	ColorEntry = "fs_main"

	// MaskEntry uses the red channel as coverage for the vertex color.
	MaskEntry = "fs_mask"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("shader: compile: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("shader: SPIR-V length %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
