package proofstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config selects the bucket and, for S3-compatible services, the endpoint.
type S3Config struct {
	Bucket          string
	Region          string
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
}

// S3API is the subset of *s3.Client used by the S3 store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 stores proofs as objects in one bucket.
type S3 struct {
	client S3API
	bucket string
}

// NewS3 builds an S3 client from cfg. Static credentials are used when
// given; otherwise the default AWS credential chain applies.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("proof bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	slog.Info("Proof store using S3", "bucket", cfg.Bucket, "region", cfg.Region)
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

// NewS3WithClient allows injecting a test client.
func NewS3WithClient(client S3API, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// Put implements Store.
func (s *S3) Put(ctx context.Context, fundID, filename, contentType string, r io.Reader) (string, error) {
	key := objectKey(fundID, filename)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload proof: %w", err)
	}
	return s.ref(key), nil
}

// Open implements Store.
func (s *S3) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	key, ok := strings.CutPrefix(ref, s.ref(""))
	if !ok || !validKey(key) {
		return nil, ErrInvalidRef
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download proof: %w", err)
	}
	return out.Body, nil
}

func (s *S3) ref(key string) string {
	return "s3://" + s.bucket + "/" + key
}
