package atlas

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/atlas/backend/soft"
	"github.com/gogpu/atlas/gpucore"
)

func readAlloc(t *testing.T, dev *soft.Device, tex gpucore.TextureID, a Allocation[int]) []byte {
	t.Helper()
	got, err := dev.ReadRegion(tex, gpucore.TextureRegion{
		Layer:  uint32(a.Layer),
		X:      uint32(a.Region.X),
		Y:      uint32(a.Region.Y),
		Width:  uint32(a.Region.Width),
		Height: uint32(a.Region.Height),
	})
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func uniform(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestUploadImageFormats(t *testing.T) {
	src := uniform(4, 3, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	tests := []struct {
		name   string
		format gpucore.TextureFormat
		texel  []byte
	}{
		{"rgba", gpucore.TextureFormatRGBA8Unorm, []byte{200, 100, 50, 255}},
		{"bgra", gpucore.TextureFormatBGRA8Unorm, []byte{50, 100, 200, 255}},
		{"r8 takes alpha", gpucore.TextureFormatR8Unorm, []byte{255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(256, 1, false)
			cfg.Format = tt.format
			set, dev := newTestSet(t, cfg)

			id, ok := set.UploadImage("img", src, 0)
			if !ok {
				t.Fatal("UploadImage failed")
			}
			alloc, _ := set.Peek(id)
			if w, h := alloc.Size(); w != 4 || h != 3 {
				t.Fatalf("size = %dx%d, want 4x3", w, h)
			}
			want := bytes.Repeat(tt.texel, 12)
			if got := readAlloc(t, dev, set.Texture(), alloc); !bytes.Equal(got, want) {
				t.Errorf("pixels = %v, want %v", got, want)
			}
		})
	}
}

func TestUploadImageAlphaMask(t *testing.T) {
	cfg := testConfig(256, 1, true)
	cfg.Format = gpucore.TextureFormatR8Unorm
	set, dev := newTestSet(t, cfg)

	mask := image.NewAlpha(image.Rect(10, 10, 13, 12))
	copy(mask.Pix, []byte{1, 2, 3, 4, 5, 6})

	id, ok := set.UploadImage("mask", mask, 0)
	if !ok {
		t.Fatal("UploadImage failed")
	}
	alloc, _ := set.Peek(id)
	if got := readAlloc(t, dev, set.Texture(), alloc); !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("pixels = %v", got)
	}

	// Live keys skip conversion and count a reference.
	again, ok := set.UploadImage("mask", nil, 0)
	if !ok || again != id {
		t.Errorf("repeat UploadImage = %v, %v; want %v", again, ok, id)
	}
}

func TestUploadImageScaled(t *testing.T) {
	set, _ := newTestSet(t, testConfig(256, 1, false))
	src := uniform(16, 16, color.NRGBA{R: 255, A: 255})

	id, ok := set.UploadImageScaled("thumb", src, 4, 4, 0)
	if !ok {
		t.Fatal("UploadImageScaled failed")
	}
	alloc, _ := set.Peek(id)
	if w, h := alloc.Size(); w != 4 || h != 4 {
		t.Errorf("size = %dx%d, want 4x4", w, h)
	}

	if _, ok := set.UploadImageScaled("bad", src, 0, 4, 0); ok {
		t.Error("UploadImageScaled with zero width succeeded")
	}
}
