package archive

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the configuration for an S3-compatible bucket (AWS, MinIO,
// R2 and similar).
type S3Config struct {
	// Endpoint is the S3-compatible endpoint URL. Leave empty for AWS S3.
	Endpoint string
	Region   string
	Bucket   string

	AccessKey string
	SecretKey string

	// UseSSL picks the scheme when Endpoint has none.
	UseSSL bool

	// ForcePathStyle puts the bucket in the path rather than the host.
	ForcePathStyle bool
}

// S3Writer implements Writer with single PutObject requests.
type S3Writer struct {
	client *s3.Client
	bucket string
}

// NewS3Writer builds an S3 client from cfg.
func NewS3Writer(ctx context.Context, cfg S3Config) (*S3Writer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("archive: region is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint, cfg.UseSSL)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Writer{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
	}, nil
}

// Put uploads body as a single object.
func (w *S3Writer) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("archive: put object %s: %w", key, err)
	}
	return nil
}

// normaliseEndpoint prepends a scheme when the endpoint has none.
func normaliseEndpoint(endpoint string, useSSL bool) string {
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}
