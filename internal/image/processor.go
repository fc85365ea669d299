// Package image validates and sanitizes uploaded panorama images.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/h2non/bimg"
)

// Panorama validation errors
var (
	ErrNotEquirectangular = errors.New("panorama must have a 2:1 aspect ratio")
	ErrUnsupportedFormat  = errors.New("panorama must be JPEG or PNG")
	ErrTooSmall           = errors.New("panorama resolution too low")
)

// Aspect ratio tolerance for equirectangular checks. Stitchers crop by a
// few pixels, so an exact 2:1 test rejects valid panoramas.
const aspectTolerance = 0.01

// MinPanoramaWidth is the smallest usable equirectangular width.
const MinPanoramaWidth = 2048

// ProcessorConfig holds configuration for panorama processing.
type ProcessorConfig struct {
	// Quality for JPEG encoding (1-100, default: 85)
	Quality int
	// OutputFormat specifies the output format (jpeg, png)
	OutputFormat string
	// StripMetadata removes all EXIF/metadata (default: true)
	StripMetadata bool
	// MaxWidth limits panorama width (0 = no limit); height follows 2:1
	MaxWidth int
}

// DefaultConfig returns sensible defaults for panorama processing.
func DefaultConfig() ProcessorConfig {
	return ProcessorConfig{
		Quality:       85,
		OutputFormat:  "jpeg",
		StripMetadata: true,
		MaxWidth:      0,
	}
}

// Info describes a validated panorama.
type Info struct {
	Width  int
	Height int
	Format string
}

// ValidatePanorama checks that the bytes are a JPEG or PNG
// equirectangular image of usable size.
func ValidatePanorama(imageBytes []byte) (*Info, error) {
	img := bimg.NewImage(imageBytes)
	metadata, err := img.Metadata()
	if err != nil {
		return nil, fmt.Errorf("failed to read image metadata: %w", err)
	}

	if metadata.Type != "jpeg" && metadata.Type != "png" {
		return nil, fmt.Errorf("got %s: %w", metadata.Type, ErrUnsupportedFormat)
	}

	width := metadata.Size.Width
	height := metadata.Size.Height
	if height == 0 {
		return nil, ErrNotEquirectangular
	}
	ratio := float64(width) / float64(height)
	if math.Abs(ratio-2.0) > aspectTolerance*2.0 {
		return nil, fmt.Errorf("got %dx%d: %w", width, height, ErrNotEquirectangular)
	}
	if width < MinPanoramaWidth {
		return nil, fmt.Errorf("got width %d, need %d: %w", width, MinPanoramaWidth, ErrTooSmall)
	}

	return &Info{Width: width, Height: height, Format: metadata.Type}, nil
}

// Processor handles panorama sanitization and re-encoding.
type Processor struct {
	config ProcessorConfig
}

// NewProcessor creates a new panorama processor with the given config.
func NewProcessor(config ProcessorConfig) *Processor {
	return &Processor{config: config}
}

// Process takes a panorama (as io.Reader) and returns sanitized bytes.
// The panorama is validated as equirectangular, EXIF metadata (GPS,
// camera details, timestamps) is stripped, and the image is re-encoded.
func Process(r io.Reader) ([]byte, error) {
	return ProcessWithConfig(r, DefaultConfig())
}

// ProcessWithConfig processes a panorama with custom configuration.
func ProcessWithConfig(r io.Reader, config ProcessorConfig) ([]byte, error) {
	inputBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input image: %w", err)
	}

	info, err := ValidatePanorama(inputBytes)
	if err != nil {
		return nil, err
	}

	options := bimg.Options{
		Quality:       config.Quality,
		StripMetadata: config.StripMetadata,
	}

	switch config.OutputFormat {
	case "jpeg", "jpg":
		options.Type = bimg.JPEG
	case "png":
		options.Type = bimg.PNG
	default:
		options.Type = determineImageType(info.Format)
	}

	// Downscale oversized panoramas; height follows from the 2:1 ratio.
	if config.MaxWidth > 0 && info.Width > config.MaxWidth {
		options.Width = config.MaxWidth
		options.Height = config.MaxWidth / 2
	}

	outputBytes, err := bimg.NewImage(inputBytes).Process(options)
	if err != nil {
		return nil, fmt.Errorf("failed to process image: %w", err)
	}

	return outputBytes, nil
}

// ProcessBytes is a convenience wrapper for processing panorama bytes directly.
func ProcessBytes(inputBytes []byte) ([]byte, error) {
	return ProcessWithConfig(bytes.NewReader(inputBytes), DefaultConfig())
}

// determineImageType maps bimg's string type to bimg.ImageType constant.
func determineImageType(typeStr string) bimg.ImageType {
	switch typeStr {
	case "png":
		return bimg.PNG
	default:
		return bimg.JPEG
	}
}

// VerifyNoEXIF checks if the image has EXIF metadata.
// Returns true if no EXIF data is present, false otherwise.
func VerifyNoEXIF(imageBytes []byte) (bool, error) {
	img := bimg.NewImage(imageBytes)
	metadata, err := img.Metadata()
	if err != nil {
		return false, fmt.Errorf("failed to read image metadata: %w", err)
	}

	exif := metadata.EXIF
	hasEXIF := exif.Make != "" || exif.Model != "" ||
		exif.GPSLatitude != "" || exif.GPSLongitude != "" ||
		exif.DateTimeOriginal != "" || exif.Software != ""

	return !hasEXIF, nil
}
