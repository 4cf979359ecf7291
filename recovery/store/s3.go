package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Transport.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Transport stores each location as an object in an S3 bucket, under an
// optional key prefix.
type S3Transport struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Transport loads the default AWS configuration for region and
// verifies the bucket is reachable.
//
// Credentials come from the usual chain: AWS_ACCESS_KEY_ID /
// AWS_SECRET_ACCESS_KEY, ~/.aws/credentials, or an instance role.
func NewS3Transport(ctx context.Context, bucket, region, prefix string) (*S3Transport, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithRetryMode(aws.RetryModeStandard),
		config.WithRetryMaxAttempts(3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", bucket, err)
	}

	return NewS3TransportWithClient(client, bucket, prefix), nil
}

// NewS3TransportWithClient wraps an existing client, e.g. one configured
// for a custom endpoint.
func NewS3TransportWithClient(client S3API, bucket, prefix string) *S3Transport {
	return &S3Transport{client: client, bucket: bucket, prefix: prefix}
}

func (t *S3Transport) key(location string) string {
	if t.prefix == "" {
		return location
	}
	return path.Join(t.prefix, location)
}

func (t *S3Transport) Exists(ctx context.Context, location string) (bool, error) {
	_, err := t.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.key(location)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head s3://%s/%s: %w", t.bucket, t.key(location), err)
	}
	return true, nil
}

func (t *S3Transport) Read(ctx context.Context, location string) ([]byte, error) {
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.key(location)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%s: %w", location, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", t.bucket, t.key(location), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read s3://%s/%s: %w", t.bucket, t.key(location), err)
	}
	return data, nil
}

func (t *S3Transport) Write(ctx context.Context, location string, data []byte) error {
	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(t.bucket),
		Key:          aws.String(t.key(location)),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String("application/octet-stream"),
		StorageClass: types.StorageClassStandard,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to s3://%s/%s: %w", t.bucket, t.key(location), err)
	}
	return nil
}

func (t *S3Transport) Remove(ctx context.Context, location string) error {
	_, err := t.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.key(location)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3://%s/%s: %w", t.bucket, t.key(location), err)
	}
	return nil
}

func (t *S3Transport) List(ctx context.Context, prefix string) ([]string, error) {
	full := t.key(prefix)
	if prefix == "" && t.prefix != "" {
		full = t.prefix + "/"
	}

	var out []string
	p := s3.NewListObjectsV2Paginator(t.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(t.bucket),
		Prefix: aws.String(full),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%s/%s: %w", t.bucket, full, err)
		}
		for _, obj := range page.Contents {
			out = append(out, t.location(aws.ToString(obj.Key)))
		}
	}
	return out, nil
}

func (t *S3Transport) location(key string) string {
	if t.prefix == "" {
		return key
	}
	rel := key[len(t.prefix):]
	if len(rel) > 0 && rel[0] == '/' {
		rel = rel[1:]
	}
	return rel
}
