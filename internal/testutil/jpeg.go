// Package testutil builds JPEG fixtures for tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// JPEGBytes encodes a w x h image with a deterministic pattern. The pattern
// keeps even small images above the scanner's minimum file size.
func JPEGBytes(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 37 % 256), G: uint8(y * 91 % 256), B: uint8((x ^ y) * 13 % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// WriteJPEG writes a 64x64 fixture to dir/name and returns its path.
func WriteJPEG(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, JPEGBytes(t, 64, 64), 0o644); err != nil {
		t.Fatalf("write jpeg: %v", err)
	}
	return path
}
