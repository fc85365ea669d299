package validate

import (
	"errors"
	"fmt"
	"strings"
)

// File validation errors
var (
	ErrInvalidMIMEType = errors.New("invalid MIME type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrFileTooSmall    = errors.New("file too small")
)

// Common MIME type categories
const (
	MIMEImageJPEG = "image/jpeg"
	MIMEImagePNG  = "image/png"
	MIMEImageWebP = "image/webp"
	MIMEImageSVG  = "image/svg+xml"
	MIMEAppPDF    = "application/pdf"
)

// AllowedPanoramaTypes defines allowed panorama MIME types. The viewer
// only renders JPEG and PNG equirectangular sources.
var AllowedPanoramaTypes = []string{
	MIMEImageJPEG,
	MIMEImagePNG,
}

// AllowedLogoTypes defines allowed client logo MIME types.
var AllowedLogoTypes = []string{
	MIMEImageJPEG,
	MIMEImagePNG,
	MIMEImageWebP,
	MIMEImageSVG,
}

// AllowedDocumentTypes defines allowed onboarding document MIME types.
var AllowedDocumentTypes = []string{
	MIMEAppPDF,
	MIMEImageJPEG,
	MIMEImagePNG,
}

// FileConstraints defines validation constraints for file uploads.
type FileConstraints struct {
	AllowedTypes []string // Allowed MIME types
	MaxSizeBytes int64    // Maximum file size in bytes
	MinSizeBytes int64    // Minimum file size in bytes (0 = no minimum)
}

// MIMEType validates a MIME type against allowed types.
// Returns the normalized MIME type (lowercased) and an error if invalid.
func MIMEType(mimeType string, allowedTypes []string) (string, error) {
	// Normalize: trim whitespace and lowercase
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	if mimeType == "" {
		return "", ErrEmpty
	}

	// Check if in allowed list
	for _, allowed := range allowedTypes {
		if mimeType == strings.ToLower(allowed) {
			return mimeType, nil
		}
	}

	return "", fmt.Errorf("%w: %q not in allowed types", ErrInvalidMIMEType, mimeType)
}

// FileSize validates a file size against constraints.
func FileSize(sizeBytes int64, constraints FileConstraints) error {
	if sizeBytes <= 0 {
		return errors.New("file size must be positive")
	}

	if constraints.MinSizeBytes > 0 && sizeBytes < constraints.MinSizeBytes {
		return fmt.Errorf("%w: got %d bytes, minimum is %d", ErrFileTooSmall, sizeBytes, constraints.MinSizeBytes)
	}

	if constraints.MaxSizeBytes > 0 && sizeBytes > constraints.MaxSizeBytes {
		return fmt.Errorf("%w: got %d bytes, maximum is %d", ErrFileTooLarge, sizeBytes, constraints.MaxSizeBytes)
	}

	return nil
}

// File validates both MIME type and file size.
func File(mimeType string, sizeBytes int64, constraints FileConstraints) (string, error) {
	// Validate MIME type
	validatedType, err := MIMEType(mimeType, constraints.AllowedTypes)
	if err != nil {
		return "", err
	}

	// Validate size
	if err := FileSize(sizeBytes, constraints); err != nil {
		return "", err
	}

	return validatedType, nil
}

// PanoramaFile validates a panorama upload: JPEG or PNG, max 50MB.
func PanoramaFile(mimeType string, sizeBytes int64) (string, error) {
	return File(mimeType, sizeBytes, FileConstraints{
		AllowedTypes: AllowedPanoramaTypes,
		MaxSizeBytes: 50 * 1024 * 1024, // 50MB
		MinSizeBytes: 0,
	})
}

// LogoFile validates a client logo upload: common image types, max 5MB.
func LogoFile(mimeType string, sizeBytes int64) (string, error) {
	return File(mimeType, sizeBytes, FileConstraints{
		AllowedTypes: AllowedLogoTypes,
		MaxSizeBytes: 5 * 1024 * 1024, // 5MB
		MinSizeBytes: 0,
	})
}

// DocumentFile validates an onboarding document upload: PDF or scanned
// image, max 20MB.
func DocumentFile(mimeType string, sizeBytes int64) (string, error) {
	return File(mimeType, sizeBytes, FileConstraints{
		AllowedTypes: AllowedDocumentTypes,
		MaxSizeBytes: 20 * 1024 * 1024, // 20MB
		MinSizeBytes: 0,
	})
}
