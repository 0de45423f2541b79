package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func solidImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var b bytes.Buffer
	if err := png.Encode(&b, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return b.Bytes()
}

func testEntry(w, h int, o Orientation) *ImageEntry {
	return NewImageEntry("test.png", solidImage(w, h, color.White), OriginUpload, o)
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func assertCrop(t *testing.T, got CropRect, position, size float64) {
	t.Helper()
	if !approx(got.Position, position) || !approx(got.Size, size) {
		t.Fatalf("expected pos=%.4f size=%.4f, got %s", position, size, got)
	}
}
