// Package upload provides services for generating signed URLs for direct
// panorama uploads to R2.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/mvail/tourhost/internal/image"
	"github.com/mvail/tourhost/internal/tracing"
)

// Allowed MIME types for panorama uploads. Equirectangular source images
// arrive as JPEG or PNG only.
const (
	MIMEImageJPEG = "image/jpeg"
	MIMEImagePNG  = "image/png"
)

// Validation errors
var (
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrFileTooLarge    = errors.New("file size exceeds maximum allowed")
	ErrInvalidTourID   = errors.New("invalid tour ID")
	ErrInvalidKey      = errors.New("invalid object key")
)

// AllowedMIMETypes maps allowed MIME types to their file extensions
var AllowedMIMETypes = map[string]string{
	MIMEImageJPEG: ".jpg",
	MIMEImagePNG:  ".png",
}

// SignedURLRequest represents a request for a signed panorama upload URL.
type SignedURLRequest struct {
	ContentType string // MIME type of the panorama
	SizeBytes   int64  // Size of the file in bytes
	TourID      string // Tour the scene image belongs to
}

// SignedURLResponse represents the response containing the signed URL and metadata.
type SignedURLResponse struct {
	URL       string    `json:"url"`        // Pre-signed PUT URL
	Key       string    `json:"key"`        // Object key in R2
	ExpiresAt time.Time `json:"expires_at"` // URL expiration time
}

// Service handles generating signed URLs for R2 panorama uploads.
type Service struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	store         ObjectStore // For testability
	bucketName    string
	maxSizeBytes  int64
	urlExpiry     time.Duration
	timeNow       func() time.Time // For testability
}

// ObjectStore abstracts the bucket operations Finalize performs so tests
// can run without a live R2 bucket.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// s3ObjectStore implements ObjectStore against R2 via the S3 API.
type s3ObjectStore struct {
	client *s3.Client
	bucket string
}

func (o *s3ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (o *s3ObjectStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// ServiceConfig holds configuration for the upload service.
type ServiceConfig struct {
	BucketName       string
	AccessKeyID      string
	SecretAccessKey  string
	Endpoint         string
	MaxSizeMB        int
	URLExpiryMinutes int // Default: 5 minutes
}

// NewService creates a new upload service with the given configuration.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("access key ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("secret access key is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}

	// Panoramas are big; default cap well above ordinary photos.
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 50
	}
	if cfg.URLExpiryMinutes <= 0 {
		cfg.URLExpiryMinutes = 5
	}

	// Create S3 client with R2-compatible configuration
	s3Client := s3.New(s3.Options{
		Region: "auto", // R2 uses auto region
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // No session token for R2
		)),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true, // R2 requires path-style addressing
	})

	presignClient := s3.NewPresignClient(s3Client)

	return &Service{
		s3Client:      s3Client,
		presignClient: presignClient,
		store:         &s3ObjectStore{client: s3Client, bucket: cfg.BucketName},
		bucketName:    cfg.BucketName,
		maxSizeBytes:  int64(cfg.MaxSizeMB) * 1024 * 1024,
		urlExpiry:     time.Duration(cfg.URLExpiryMinutes) * time.Minute,
		timeNow:       time.Now,
	}, nil
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	if _, ok := AllowedMIMETypes[contentType]; !ok {
		return ErrUnsupportedType
	}
	return nil
}

// ValidateFileSize checks if the file size is within limits.
func (s *Service) ValidateFileSize(sizeBytes int64) error {
	if sizeBytes > s.maxSizeBytes {
		return ErrFileTooLarge
	}
	if sizeBytes <= 0 {
		return errors.New("file size must be positive")
	}
	return nil
}

// GenerateObjectKey creates a unique object key for a scene panorama.
// Pattern: tours/{tourID}/scenes/{uuid}{ext}
func GenerateObjectKey(contentType, tourID string) (string, error) {
	ext, ok := AllowedMIMETypes[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}

	sanitized := sanitizePathComponent(tourID)
	if sanitized == "" {
		return "", ErrInvalidTourID
	}

	key := fmt.Sprintf("tours/%s/scenes/%s%s", sanitized, uuid.New().String(), ext)
	return key, nil
}

// sanitizePathComponent removes potentially dangerous characters from path components.
func sanitizePathComponent(s string) string {
	// Only allow alphanumeric, hyphens, and underscores
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// GenerateSignedURL generates a pre-signed PUT URL for direct panorama
// upload to R2.
func (s *Service) GenerateSignedURL(ctx context.Context, req SignedURLRequest) (*SignedURLResponse, error) {
	if err := ValidateContentType(req.ContentType); err != nil {
		return nil, err
	}
	if err := s.ValidateFileSize(req.SizeBytes); err != nil {
		return nil, err
	}

	key, err := GenerateObjectKey(req.ContentType, req.TourID)
	if err != nil {
		return nil, err
	}

	putObjectInput := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(key),
		ContentType:   aws.String(req.ContentType),
		ContentLength: aws.Int64(req.SizeBytes),
	}

	presignedReq, err := s.presignClient.PresignPutObject(ctx, putObjectInput, func(opts *s3.PresignOptions) {
		opts.Expires = s.urlExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign request: %w", err)
	}

	return &SignedURLResponse{
		URL:       presignedReq.URL,
		Key:       key,
		ExpiresAt: s.timeNow().Add(s.urlExpiry),
	}, nil
}

// FinalizeResult describes a sanitized panorama after Finalize.
type FinalizeResult struct {
	Key       string `json:"key"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int64  `json:"size_bytes"`
}

// Finalize downloads a freshly uploaded panorama, validates that it is a
// 2:1 equirectangular JPEG or PNG, strips its metadata, re-encodes it, and
// writes the sanitized bytes back under the same key. Callers invoke this
// after completing the pre-signed PUT; the object is not referenced by any
// scene until it passes.
func (s *Service) Finalize(ctx context.Context, key string) (*FinalizeResult, error) {
	// Keys are minted by GenerateObjectKey; anything outside that shape is
	// an attempt to touch arbitrary objects.
	if !strings.HasPrefix(key, "tours/") || strings.Contains(key, "..") {
		return nil, ErrInvalidKey
	}

	getCtx, endGet := tracing.StartStorageSpan(ctx, "get", key)
	raw, err := s.store.Get(getCtx, key)
	endGet(err)
	if err != nil {
		return nil, err
	}

	processed, err := image.Process(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	info, err := image.ValidatePanorama(processed)
	if err != nil {
		return nil, err
	}

	putCtx, endPut := tracing.StartStorageSpan(ctx, "put", key)
	err = s.store.Put(putCtx, key, processed, MIMEImageJPEG)
	endPut(err)
	if err != nil {
		return nil, err
	}

	return &FinalizeResult{
		Key:       key,
		Width:     info.Width,
		Height:    info.Height,
		SizeBytes: int64(len(processed)),
	}, nil
}

// GetS3Client returns the S3 client used by the service.
func (s *Service) GetS3Client() *s3.Client {
	return s.s3Client
}

// GetBucketName returns the bucket name used by the service.
func (s *Service) GetBucketName() string {
	return s.bucketName
}
