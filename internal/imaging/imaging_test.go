package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// gradientImage renders a horizontal gradient with a colored block, giving
// the hash some structure to latch onto.
func gradientImage(blockShade uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(x * 4), B: uint8(x * 4), A: 255})
		}
	}
	for y := 16; y < 32; y++ {
		for x := 16; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: blockShade, G: 0, B: 0, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestProbe(t *testing.T) {
	data := encodePNG(t, gradientImage(255))

	info, err := Probe(data)
	if err != nil {
		t.Fatalf("failed to probe png: %v", err)
	}
	if info.Format != "png" {
		t.Errorf("expected format 'png', got '%s'", info.Format)
	}
	if info.Width != 64 || info.Height != 64 {
		t.Errorf("expected 64x64, got %dx%d", info.Width, info.Height)
	}

	info, err = Probe(encodeJPEG(t, gradientImage(255)))
	if err != nil {
		t.Fatalf("failed to probe jpeg: %v", err)
	}
	if info.Format != "jpeg" {
		t.Errorf("expected format 'jpeg', got '%s'", info.Format)
	}
}

func TestProbeRejectsNonImage(t *testing.T) {
	if _, err := Probe([]byte("definitely not an image")); err == nil {
		t.Error("expected an error for non-image data")
	}
}

func TestDHashStableAcrossEncodings(t *testing.T) {
	img := gradientImage(255)

	pngHash, err := DHash(encodePNG(t, img))
	if err != nil {
		t.Fatalf("failed to hash png: %v", err)
	}
	jpegHash, err := DHash(encodeJPEG(t, img))
	if err != nil {
		t.Fatalf("failed to hash jpeg: %v", err)
	}

	if !Similar(pngHash, jpegHash, 10) {
		t.Errorf("same image across encodings should hash similarly, distance %d",
			HammingDistance(pngHash, jpegHash))
	}
}

func TestDHashIdenticalImages(t *testing.T) {
	data := encodePNG(t, gradientImage(255))

	h1, err := DHash(data)
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}
	h2, err := DHash(data)
	if err != nil {
		t.Fatalf("failed to hash: %v", err)
	}
	if h1 != h2 {
		t.Error("identical bytes must produce identical hashes")
	}
}

func TestHammingDistance(t *testing.T) {
	if d := HammingDistance(0, 0); d != 0 {
		t.Errorf("expected distance 0, got %d", d)
	}
	if d := HammingDistance(0, ^uint64(0)); d != 64 {
		t.Errorf("expected distance 64, got %d", d)
	}
	if d := HammingDistance(0b1010, 0b0110); d != 2 {
		t.Errorf("expected distance 2, got %d", d)
	}
}
