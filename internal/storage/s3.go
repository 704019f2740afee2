// Package storage wraps an S3-compatible bucket used for ticket
// attachments. Clients upload directly against short-lived presigned URLs;
// the service only ever handles object references.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// UploadCredential is handed to the client for a direct-to-bucket upload.
type UploadCredential struct {
	URL       string
	Method    string
	ObjectKey string
	PublicURL string
	ExpiresAt time.Time
}

// Client wraps the AWS S3 client configured for S3-compatible storage.
type Client struct {
	s3            *s3.Client
	presig        *s3.PresignClient
	bucket        string
	publicBaseURL string
	ttl           time.Duration
}

// New creates a storage client from config.
func New(cfg config.StorageConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket name is required")
	}

	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...any) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				SigningRegion:     cfg.Region,
				HostnameImmutable: true,
			}, nil
		},
	)

	awsCfg, err := awscfg.LoadDefaultConfig(context.Background(),
		awscfg.WithRegion(cfg.Region),
		awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awscfg.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load config: %w", err)
	}

	cli := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &Client{
		s3:            cli,
		presig:        s3.NewPresignClient(cli),
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		ttl:           cfg.PresignTTL(),
	}, nil
}

// PresignUpload issues a time-limited PUT credential for a single object.
// The key embeds a fresh uuid so uploads never collide.
func (c *Client) PresignUpload(ctx context.Context, filename, contentType string) (*UploadCredential, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	key := fmt.Sprintf("attachments/%s%s", uuid.NewString(), ext)

	req, err := c.presig.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(c.ttl))
	if err != nil {
		return nil, fmt.Errorf("storage presign %q: %w", key, err)
	}

	return &UploadCredential{
		URL:       req.URL,
		Method:    req.Method,
		ObjectKey: key,
		PublicURL: fmt.Sprintf("%s/%s/%s", c.publicBaseURL, c.bucket, key),
		ExpiresAt: time.Now().Add(c.ttl),
	}, nil
}

// Delete removes an object from the bucket. S3 DeleteObject succeeds for
// absent keys, so repeated deletes are safe.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage delete %q: %w", key, err)
	}
	return nil
}
