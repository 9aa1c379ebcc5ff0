// Package s3store implements objectstore.Store on top of Amazon S3 using the
// AWS SDK for Go v2.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/sakif/signal-registry/internal/objectstore"
)

var _ objectstore.Store = (*Store)(nil)

// API is the subset of *s3.Client the store calls. Tests substitute a fake.
type API interface {
	HeadObject(ctx context.Context, params *awss3.HeadObjectInput, optFns ...func(*awss3.Options)) (*awss3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

// Config holds what is needed to build an S3 client.
type Config struct {
	Bucket string
	Region string
	// Endpoint overrides the S3 endpoint, e.g. "http://localhost:9000" for MinIO.
	// Path-style addressing is switched on whenever it is set.
	Endpoint string
	// AccessKeyID and SecretAccessKey are optional. When both are empty the SDK's
	// default credential chain (env, shared config, instance role) is used.
	AccessKeyID     string
	SecretAccessKey string
}

// Store reads and deletes objects in one S3 bucket.
type Store struct {
	api    API
	bucket string
}

// New builds an S3 client from cfg and returns a Store for cfg.Bucket.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket name is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: loading AWS config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg.Bucket), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(api API, bucket string) *Store {
	return &Store{api: api, bucket: bucket}
}

// Head issues a HeadObject request, so only metadata crosses the wire.
func (s *Store) Head(ctx context.Context, key string) error {
	_, err := s.api.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("s3: checking %s/%s: %w: %w", s.bucket, key, objectstore.ErrNotFound, err)
		}
		return fmt.Errorf("s3: checking %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Get downloads the whole object into memory.
//
// Signal CSV files are small, so there is no streaming API. A missing key is
// reported as objectstore.ErrNotFound with the SDK error still in the chain,
// so its text ("NoSuchKey: ...") ends up in client-facing messages.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3: getting %s/%s: %w: %w", s.bucket, key, objectstore.ErrNotFound, err)
		}
		return nil, fmt.Errorf("s3: getting %s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3: reading body of %s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}

// Delete removes the object. S3 itself treats deleting a missing key as success.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3: deleting %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// isNotFound matches the typed NoSuchKey (GetObject) and NotFound (HeadObject)
// errors, and the generic API error codes some S3-compatible servers return
// instead.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
