package utils

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var s3Client *s3.Client

// InitS3 prepares the client used for archiving registered demo images.
// The demo store is optional: callers skip uploads while the client is nil.
func InitS3(ctx context.Context) error {
	region := os.Getenv("S3_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		return fmt.Errorf("S3_REGION or AWS_REGION must be set")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return fmt.Errorf("unable to load AWS config for S3: %w", err)
	}

	s3Client = s3.NewFromConfig(cfg)
	return nil
}

// S3Enabled reports whether InitS3 has run.
func S3Enabled() bool { return s3Client != nil }

// UploadDemoImage archives the original bytes of a registered demo image
// under a hash-derived key, so a mapping entry can always be traced back to
// the exact picture it was built from.
func UploadDemoImage(ctx context.Context, imageBytes []byte, hash string) (string, error) {
	if s3Client == nil {
		return "", fmt.Errorf("s3 client not initialized")
	}

	contentType := http.DetectContentType(imageBytes)
	ext := ".bin"
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	}

	key := fmt.Sprintf("demo-images/%s-%d%s", hash, time.Now().UnixNano(), ext)

	_, err := s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(os.Getenv("S3_BUCKET_NAME")),
		Key:         aws.String(key),
		Body:        bytes.NewReader(imageBytes),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", NewUpstreamError("s3 upload", err)
	}
	return key, nil
}
