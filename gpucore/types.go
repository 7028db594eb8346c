package gpucore

import "github.com/gogpu/gputypes"

// Resource IDs
//
// These opaque IDs represent GPU resources. Each device implementation
// maintains a mapping between IDs and actual backend resources.

// TextureID is an opaque handle to a GPU texture array.
type TextureID uint64

// BindGroupID is an opaque handle to a bind group.
type BindGroupID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// TextureFormat specifies the format of texture data.
type TextureFormat = gputypes.TextureFormat

// Texture formats the atlas can copy bytes into.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, 4 bytes per pixel.
	TextureFormatRGBA8Unorm = gputypes.TextureFormatRGBA8Unorm

	// TextureFormatBGRA8Unorm is 8-bit BGRA, 4 bytes per pixel.
	TextureFormatBGRA8Unorm = gputypes.TextureFormatBGRA8Unorm

	// TextureFormatR8Unorm is a single 8-bit channel, used for glyph masks.
	TextureFormatR8Unorm = gputypes.TextureFormatR8Unorm
)

// BytesPerPixel returns the texel size of a supported format, or 0 if the
// format is not supported by the byte-copy path.
func BytesPerPixel(format TextureFormat) int {
	switch format {
	case TextureFormatRGBA8Unorm, TextureFormatBGRA8Unorm:
		return 4
	case TextureFormatR8Unorm:
		return 1
	default:
		return 0
	}
}

// Limits describes the device limits the atlas depends on.
type Limits struct {
	// MaxTextureDimension2D is the largest width or height of a 2D texture.
	MaxTextureDimension2D uint32

	// MaxTextureArrayLayers is the largest layer count of a texture array.
	MaxTextureArrayLayers uint32
}

// DefaultLimits returns limits matching common desktop hardware.
func DefaultLimits() Limits {
	return Limits{
		MaxTextureDimension2D: 8192,
		MaxTextureArrayLayers: 256,
	}
}

// TextureArrayDescriptor describes a square 2D texture array.
type TextureArrayDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Size is the width and height of every layer.
	Size uint32

	// Layers is the number of array layers.
	Layers uint32

	// Format is the pixel format.
	Format TextureFormat
}

// TextureRegion addresses a rectangle inside one layer of a texture array.
type TextureRegion struct {
	Layer  uint32
	X, Y   uint32
	Width  uint32
	Height uint32
}

// CopyRegion describes a texture-to-texture copy between layers.
// A region with zero Width and Height copies the whole layer.
type CopyRegion struct {
	SrcLayer uint32
	SrcX     uint32
	SrcY     uint32

	DstLayer uint32
	DstX     uint32
	DstY     uint32

	Width  uint32
	Height uint32
}
