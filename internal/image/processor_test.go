package image

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// encodePanorama creates a real equirectangular JPEG of the given size.
func encodePanorama(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y += 32 {
		for x := 0; x < width; x += 32 {
			c := color.RGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: 128,
				A: 255,
			}
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode test panorama: %v", err)
	}
	return buf.Bytes()
}

func TestValidatePanorama(t *testing.T) {
	pano := encodePanorama(t, 4096, 2048)

	info, err := ValidatePanorama(pano)
	if err != nil {
		t.Fatalf("ValidatePanorama failed: %v", err)
	}
	if info.Width != 4096 || info.Height != 2048 || info.Format != "jpeg" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestValidatePanorama_WrongAspect(t *testing.T) {
	square := encodePanorama(t, 2048, 2048)

	_, err := ValidatePanorama(square)
	if !errors.Is(err, ErrNotEquirectangular) {
		t.Errorf("expected ErrNotEquirectangular, got %v", err)
	}
}

func TestValidatePanorama_NearMissAspectAccepted(t *testing.T) {
	// Stitchers crop a few pixels off; ratio within tolerance must pass.
	pano := encodePanorama(t, 4096, 2052)

	if _, err := ValidatePanorama(pano); err != nil {
		t.Errorf("near-2:1 panorama rejected: %v", err)
	}
}

func TestValidatePanorama_TooSmall(t *testing.T) {
	small := encodePanorama(t, 1024, 512)

	_, err := ValidatePanorama(small)
	if !errors.Is(err, ErrTooSmall) {
		t.Errorf("expected ErrTooSmall, got %v", err)
	}
}

func TestValidatePanorama_PNGAccepted(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2048, 1024))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}

	info, err := ValidatePanorama(buf.Bytes())
	if err != nil {
		t.Fatalf("ValidatePanorama failed: %v", err)
	}
	if info.Format != "png" {
		t.Errorf("expected png, got %s", info.Format)
	}
}

func TestValidatePanorama_Garbage(t *testing.T) {
	if _, err := ValidatePanorama([]byte("not an image")); err == nil {
		t.Error("expected error for non-image bytes")
	}
}

func TestProcess_StripsEXIF(t *testing.T) {
	pano := encodePanorama(t, 4096, 2048)

	processedBytes, err := ProcessBytes(pano)
	if err != nil {
		t.Fatalf("ProcessBytes failed: %v", err)
	}
	if len(processedBytes) == 0 {
		t.Fatal("Processed panorama is empty")
	}

	noEXIF, err := VerifyNoEXIF(processedBytes)
	if err != nil {
		t.Fatalf("VerifyNoEXIF failed: %v", err)
	}
	if !noEXIF {
		t.Error("EXIF metadata still present after processing")
	}
}

func TestProcess_RejectsNonPanorama(t *testing.T) {
	square := encodePanorama(t, 2048, 2048)

	_, err := ProcessBytes(square)
	if !errors.Is(err, ErrNotEquirectangular) {
		t.Errorf("expected ErrNotEquirectangular, got %v", err)
	}
}

func TestProcessWithConfig_Downscale(t *testing.T) {
	pano := encodePanorama(t, 8192, 4096)

	config := DefaultConfig()
	config.MaxWidth = 4096

	processedBytes, err := ProcessWithConfig(bytes.NewReader(pano), config)
	if err != nil {
		t.Fatalf("ProcessWithConfig failed: %v", err)
	}

	info, err := ValidatePanorama(processedBytes)
	if err != nil {
		t.Fatalf("downscaled output not a valid panorama: %v", err)
	}
	if info.Width != 4096 || info.Height != 2048 {
		t.Errorf("expected 4096x2048, got %dx%d", info.Width, info.Height)
	}
}

func TestProcessWithConfig_Quality(t *testing.T) {
	pano := encodePanorama(t, 4096, 2048)

	for _, quality := range []int{95, 85, 60} {
		config := DefaultConfig()
		config.Quality = quality

		processedBytes, err := ProcessWithConfig(bytes.NewReader(pano), config)
		if err != nil {
			t.Fatalf("ProcessWithConfig quality=%d failed: %v", quality, err)
		}
		if len(processedBytes) == 0 {
			t.Fatalf("empty output at quality %d", quality)
		}
	}
}
