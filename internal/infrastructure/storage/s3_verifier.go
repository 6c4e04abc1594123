// Package storage checks payment evidence objects in S3-compatible storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/infrastructure/config"
)

// Ensure S3EvidenceVerifier implements UploadVerifier
var _ payment.UploadVerifier = (*S3EvidenceVerifier)(nil)

// S3EvidenceVerifier confirms that a presigned evidence upload reached the bucket.
// It is compatible with any S3-compatible storage (AWS S3, MinIO, etc.)
type S3EvidenceVerifier struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// S3EvidenceVerifierOption is a functional option for configuring S3EvidenceVerifier
type S3EvidenceVerifierOption func(*S3EvidenceVerifier)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3EvidenceVerifierOption {
	return func(v *S3EvidenceVerifier) {
		v.logger = logger
	}
}

// NewS3EvidenceVerifier creates a verifier from configuration. Without static
// credentials the default AWS credential chain is used.
func NewS3EvidenceVerifier(ctx context.Context, cfg config.StorageConfig, opts ...S3EvidenceVerifierOption) (*S3EvidenceVerifier, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		if cfg.SecretAccessKey == "" {
			return nil, errors.New("storage secret access key is required with an access key id")
		}
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	v := &S3EvidenceVerifier{
		client: client,
		bucket: cfg.Bucket,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Exists reports whether an object with the given key is present in the bucket
func (v *S3EvidenceVerifier) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("storage key is required")
	}

	_, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return false, nil
	}
	// Some S3-compatible services report a missing key differently
	if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") {
		return false, nil
	}

	v.logger.Warn("Evidence object check failed", zap.String("bucket", v.bucket), zap.Error(err))
	return false, fmt.Errorf("failed to check object existence: %w", err)
}

// Bucket returns the bucket name
func (v *S3EvidenceVerifier) Bucket() string {
	return v.bucket
}
