// Package blobstore turns stored exam attachment references into short-lived
// download links. Uploads happen outside this service.
package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Presigner produces a download URL for an attachment key.
type Presigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

// NopPresigner is used when no bucket is configured; it yields no links.
type NopPresigner struct{}

func (NopPresigner) PresignGet(context.Context, string) (string, error) { return "", nil }

// S3Presigner signs GetObject requests against one bucket.
type S3Presigner struct {
	client *s3.PresignClient
	bucket string
	ttl    time.Duration
}

// NewS3Presigner loads the default AWS configuration chain (env, shared
// config, instance role).
func NewS3Presigner(ctx context.Context, bucket string, ttl time.Duration) (*S3Presigner, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
		UsePathStyle: true,
	})
	return &S3Presigner{client: s3.NewPresignClient(client), bucket: bucket, ttl: ttl}, nil
}

func (p *S3Presigner) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
