// Package s3 implements remote.BlobStore on an S3-compatible bucket prefix.
// The prefix is the app's shared folder; file metadata travels as object
// metadata.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"pocketledger/internal/netx"
	"pocketledger/internal/remote"
	"pocketledger/internal/shared"
)

// Options configures the bucket connection. BaseEndpoint supports
// MinIO-style deployments.
type Options struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Prefix       string
}

// Store is an S3-backed remote.BlobStore.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New builds a Store from explicit credentials, the way a self-hosted bucket
// is usually configured.
func New(ctx context.Context, opts Options) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	return NewWithClient(client, opts.Bucket, opts.Prefix), nil
}

// NewWithClient wraps an existing client, mainly for tests.
func NewWithClient(client *s3.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *Store) name(key string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, s.prefix), "/")
}

// wrap classifies provider errors so the sync queue can tell retryable
// outages from permanent failures.
func wrap(op string, err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return fmt.Errorf("%s: %w", op, shared.ErrorNotFound)
	}
	if netx.IsTransient(err) {
		return fmt.Errorf("%s: %w: %v", op, shared.ErrorTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Store) List(ctx context.Context) ([]remote.FileEntry, error) {
	var result []remote.FileEntry

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrap("listing folder", err)
		}
		for _, obj := range page.Contents {
			entry := remote.FileEntry{
				ID:   aws.ToString(obj.Key),
				Name: s.name(aws.ToString(obj.Key)),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				entry.ModifiedAt = *obj.LastModified
				entry.CreatedAt = *obj.LastModified
			}
			result = append(result, entry)
		}
	}

	// object listings carry no metadata, fetch it per file
	for i := range result {
		head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(result[i].ID),
		})
		if err != nil {
			return nil, wrap("reading file metadata", err)
		}
		result[i].Properties = head.Metadata
	}

	return result, nil
}

func (s *Store) Upload(ctx context.Context, in remote.UploadInput) (remote.FileEntry, error) {
	key := s.key(in.Name)

	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Body:     bytes.NewReader(in.Content),
		Metadata: in.Properties,
	}
	if in.ContentType != "" {
		input.ContentType = aws.String(in.ContentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return remote.FileEntry{}, wrap("uploading file", err)
	}

	return remote.FileEntry{
		ID:         key,
		Name:       in.Name,
		Size:       int64(len(in.Content)),
		Properties: in.Properties,
	}, nil
}

func (s *Store) Download(ctx context.Context, id string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return nil, wrap("downloading file", err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, wrap("reading file body", err)
	}
	return content, nil
}

func (s *Store) Update(ctx context.Context, id string, content []byte) error {
	// objects are immutable, an update is a put under the same key; the
	// existing metadata is preserved by reading it first
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return wrap("reading file metadata", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(id),
		Body:     bytes.NewReader(content),
		Metadata: head.Metadata,
	})
	if err != nil {
		return wrap("updating file", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return wrap("deleting file", err)
	}
	return nil
}
