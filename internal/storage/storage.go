// Package storage resolves attachment references (object keys) to downloadable URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/Spok95/school-portal/internal/apperr"
	"github.com/Spok95/school-portal/internal/config"
)

// Store maps a stored reference to a URL the client can fetch.
type Store interface {
	URL(ctx context.Context, ref string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// ValidateRef rejects keys that could escape the bucket prefix.
func ValidateRef(ref string) error {
	switch {
	case ref == "":
		return nil
	case strings.HasPrefix(ref, "/"), strings.Contains(ref, ".."), strings.ContainsAny(ref, "\\\x00"):
		return apperr.Invalid("attachment", "invalid attachment reference")
	case len(ref) > 512:
		return apperr.Invalid("attachment", "attachment reference too long")
	}
	return nil
}

// Nop is used when S3 is not configured: absolute URLs pass through, bare keys resolve to "".
type Nop struct{}

func (Nop) URL(_ context.Context, ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	return "", nil
}

func (Nop) Delete(context.Context, string) error { return nil }

type S3 struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
	log     *zap.Logger
}

// NewS3 builds an S3 (or S3-compatible) store from cfg.
func NewS3(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*S3, error) {
	if !cfg.Enabled() {
		return nil, errors.New("storage: bucket and credentials are required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		ttl:     ttl,
		log:     log,
	}, nil
}

// URL returns a presigned GET url for ref. Empty ref yields "".
func (s *S3) URL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	if err := ValidateRef(ref); err != nil {
		return "", err
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", ref, err)
	}
	return req.URL, nil
}

func (s *S3) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if err := ValidateRef(ref); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", ref, err)
	}
	s.log.Debug("attachment deleted", zap.String("key", ref))
	return nil
}

var (
	_ Store = Nop{}
	_ Store = (*S3)(nil)
)
