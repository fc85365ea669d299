package health

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Checker implements health checking for the R2 panorama bucket.
type R2Checker struct {
	client *s3.Client
	bucket string
}

// NewR2Checker creates a new R2 health checker for the given bucket.
func NewR2Checker(client *s3.Client, bucket string) *R2Checker {
	return &R2Checker{
		client: client,
		bucket: bucket,
	}
}

// HealthCheck verifies the bucket is reachable with a HeadBucket call.
func (r *R2Checker) HealthCheck(ctx context.Context) error {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(r.bucket),
	})
	return err
}
