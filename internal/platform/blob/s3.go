// Package blob stores uploaded files in an S3 compatible bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config describes the target bucket.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL is the base URL objects are served from. Defaults to
	// Endpoint/Bucket.
	PublicURL string
}

// ObjectAPI is the subset of the S3 client used here.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store puts and deletes objects in one bucket.
type Store struct {
	api       ObjectAPI
	bucket    string
	publicURL string
}

// New builds a Store backed by the AWS SDK.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("platform/blob: bucket required")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("platform/blob: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	public := cfg.PublicURL
	if public == "" {
		public = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return NewWithAPI(client, cfg.Bucket, public), nil
}

// NewWithAPI builds a Store over an existing client.
func NewWithAPI(api ObjectAPI, bucket, publicURL string) *Store {
	return &Store{api: api, bucket: bucket, publicURL: strings.TrimSuffix(publicURL, "/") + "/"}
}

// Put uploads body under key and returns its public URL. body must be
// seekable: the SDK rewinds it to compute checksums on plain HTTP endpoints.
func (s *Store) Put(ctx context.Context, key, contentType string, body io.ReadSeeker, size int64) (string, error) {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("platform/blob: put %s: %w", key, err)
	}
	return s.publicURL + key, nil
}

// Delete removes key. Deleting a missing key succeeds.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("platform/blob: delete %s: %w", key, err)
	}
	return nil
}

// KeyFor returns the object key of url when it was served from this store.
func (s *Store) KeyFor(url string) (string, bool) {
	if !strings.HasPrefix(url, s.publicURL) {
		return "", false
	}
	key := strings.TrimPrefix(url, s.publicURL)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, key != ""
}
