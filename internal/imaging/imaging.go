// Package imaging provides lightweight image inspection for the import
// pipeline: format probing without a full decode, and a perceptual hash
// for catching near-duplicate photos before they are submitted for face
// extraction.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Info describes a probed image.
type Info struct {
	Format string
	Width  int
	Height int
}

// Probe reads just enough of the data to identify the image format and
// dimensions. Returns an error for data that is not a supported image
// (JPEG, PNG, GIF, BMP, WebP).
func Probe(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("unsupported image: %w", err)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// DHash computes a 64-bit difference hash: the image is shrunk to 9x8
// grayscale and each bit records whether a pixel is brighter than its
// right neighbor. Near-identical images produce hashes within a small
// Hamming distance regardless of scaling or recompression.
func DHash(data []byte) (uint64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to decode image: %w", err)
	}

	// 9 columns give 8 horizontal comparisons per row
	small := image.NewRGBA(image.Rect(0, 0, 9, 8))
	draw.BiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Over, nil)

	var hash uint64
	bit := 63
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if luma(small, x, y) > luma(small, x+1, y) {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash, nil
}

// luma returns the ITU-R BT.601 brightness of a pixel.
func luma(img *image.RGBA, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}

// HammingDistance counts the differing bits between two hashes.
func HammingDistance(a, b uint64) int {
	xor := a ^ b
	distance := 0
	for xor != 0 {
		distance++
		xor &= xor - 1
	}
	return distance
}

// Similar reports whether two hashes are within threshold bits of each
// other. A threshold of 10 works well for near-duplicate photos.
func Similar(a, b uint64, threshold int) bool {
	return HammingDistance(a, b) <= threshold
}
