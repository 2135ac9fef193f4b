package minio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tkachdev/herostore/pkg/herostore"
)

var tracer = otel.Tracer("herostore-storage-minio")

// Config options for the MinIO backend
type Config struct {
	Endpoint               string // Host:port of the MinIO server
	AccessKeyID            string
	SecretAccessKey        string
	Bucket                 string
	UseSSL                 bool
	CreateBucketIfNotExist bool
}

// Backend is a MinIO implementation of the herostore.BlobStore interface.
// Operations are traced with OpenTelemetry spans.
type Backend struct {
	client *minio.Client
	bucket string
}

// New creates a new MinIO storage backend
func New(config Config) (herostore.BlobStore, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	b := &Backend{
		client: client,
		bucket: config.Bucket,
	}

	if config.CreateBucketIfNotExist {
		ctx := context.Background()
		exists, err := client.BucketExists(ctx, config.Bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to check bucket existence: %w", err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, config.Bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("failed to create bucket: %w", err)
			}
		}
	}

	return b, nil
}

// GetObjectMeta retrieves metadata for an object in MinIO
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*herostore.ObjectMeta, error) {
	ctx, span := tracer.Start(ctx, "minio.stat_object",
		trace.WithAttributes(attribute.String("object_key", objectKey)),
	)
	defer span.End()

	info, err := b.client.StatObject(ctx, b.bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.New("object not found")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	metadata := make(map[string]string)
	for k, v := range info.UserMetadata {
		metadata[k] = v
	}
	metadata["content_type"] = info.ContentType

	return &herostore.ObjectMeta{
		Key:         objectKey,
		Size:        info.Size,
		ContentType: info.ContentType,
		UpdatedAt:   info.LastModified,
		ETag:        info.ETag,
		Metadata:    metadata,
	}, nil
}

// Upload uploads content directly to MinIO
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	return b.UploadWithParams(ctx, reader, herostore.UploadParams{
		ObjectKey: objectKey,
		MimeType:  "application/octet-stream",
	})
}

// UploadWithParams uploads content with additional parameters
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params herostore.UploadParams) error {
	ctx, span := tracer.Start(ctx, "minio.put_object",
		trace.WithAttributes(
			attribute.String("object_key", params.ObjectKey),
			attribute.String("content_type", params.MimeType),
		),
	)
	defer span.End()

	// Size -1 streams with multipart upload; image blobs are small enough
	// that a single part is used in practice.
	_, err := b.client.PutObject(ctx, b.bucket, params.ObjectKey, reader, -1, minio.PutObjectOptions{
		ContentType: params.MimeType,
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to upload object: %w", err)
	}

	return nil
}

// Download downloads content directly from MinIO
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	ctx, span := tracer.Start(ctx, "minio.get_object",
		trace.WithAttributes(attribute.String("object_key", objectKey)),
	)
	defer span.End()

	object, err := b.client.GetObject(ctx, b.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get object: %w", err)
	}

	// GetObject is lazy: probe so a missing key surfaces here, not mid-stream.
	if _, err := object.Stat(); err != nil {
		object.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.New("object not found")
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	return object, nil
}

// Delete deletes content from MinIO
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	ctx, span := tracer.Start(ctx, "minio.remove_object",
		trace.WithAttributes(attribute.String("object_key", objectKey)),
	)
	defer span.End()

	if err := b.client.RemoveObject(ctx, b.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}
