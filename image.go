package atlas

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/atlas/gpucore"
)

// UploadImage uploads img under key, converting it to the atlas format.
//
// RGBA and BGRA atlases receive non-premultiplied color. R8 atlases receive
// the alpha channel, which is what glyph and mask images carry.
func (s *AtlasSet[K, D]) UploadImage(key K, img image.Image, data D) (ID, bool) {
	if _, ok := s.lookup[key]; ok {
		// Skip the conversion for live keys.
		return s.Upload(key, nil, 0, 0, data)
	}
	b := img.Bounds()
	pixels := s.pixels(img, b.Dx(), b.Dy(), false)
	return s.Upload(key, pixels, b.Dx(), b.Dy(), data)
}

// UploadImageScaled uploads img resized to width x height with bilinear
// filtering.
func (s *AtlasSet[K, D]) UploadImageScaled(key K, img image.Image, width, height int, data D) (ID, bool) {
	if _, ok := s.lookup[key]; ok {
		return s.Upload(key, nil, 0, 0, data)
	}
	if width <= 0 || height <= 0 {
		return s.Upload(key, nil, width, height, data)
	}
	pixels := s.pixels(img, width, height, true)
	return s.Upload(key, pixels, width, height, data)
}

// pixels converts img into tightly packed texels of the atlas format.
func (s *AtlasSet[K, D]) pixels(img image.Image, width, height int, scale bool) []byte {
	if width <= 0 || height <= 0 {
		return nil
	}
	rect := image.Rect(0, 0, width, height)

	render := func(dst draw.Image) {
		if scale {
			draw.ApproxBiLinear.Scale(dst, rect, img, img.Bounds(), draw.Src, nil)
			return
		}
		draw.Draw(dst, rect, img, img.Bounds().Min, draw.Src)
	}

	switch s.format {
	case gpucore.TextureFormatR8Unorm:
		if a, ok := img.(*image.Alpha); ok && !scale && a.Stride == width {
			return a.Pix[:width*height]
		}
		dst := image.NewAlpha(rect)
		render(dst)
		return dst.Pix
	default:
		dst := image.NewNRGBA(rect)
		render(dst)
		if s.format == gpucore.TextureFormatBGRA8Unorm {
			for i := 0; i+3 < len(dst.Pix); i += 4 {
				dst.Pix[i], dst.Pix[i+2] = dst.Pix[i+2], dst.Pix[i]
			}
		}
		return dst.Pix
	}
}
