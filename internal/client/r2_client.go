package client

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/framecast/render-gateway/internal/config"
)

// StorageClient defines the interface for object storage operations. Upload
// consumes the body as a forward-only stream and returns the number of bytes
// actually stored.
type StorageClient interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (int64, error)
}

// R2Client implements StorageClient for any S3-compatible backend
// (Cloudflare R2, MinIO, AWS S3).
type R2Client struct {
	uploader   *manager.Uploader
	bucketName string
}

// NewR2Client creates a new storage client from gateway credentials.
func NewR2Client(cfg *config.StorageConfig) (*R2Client, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("storage configuration incomplete")
	}

	endpoint := cfg.Endpoint
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: endpoint,
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &R2Client{
		uploader:   manager.NewUploader(s3Client),
		bucketName: cfg.BucketName,
	}, nil
}

// Upload relays body to the bucket under key. The upload manager sends the
// stream in parts, so no upfront Content-Length is needed and memory stays
// bounded by the part buffer regardless of artifact size. A read error from
// body aborts the upload; nothing is silently committed.
func (c *R2Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (int64, error) {
	counted := &countingReader{r: body}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(key),
		Body:        counted,
		ContentType: aws.String(contentType),
	}

	if _, err := c.uploader.Upload(ctx, input); err != nil {
		return 0, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return counted.n, nil
}

// countingReader tracks how many bytes were actually drawn from the stream.
// The final stored size is this count, not any declared Content-Length.
type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
