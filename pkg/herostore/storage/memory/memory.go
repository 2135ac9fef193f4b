package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/tkachdev/herostore/pkg/herostore"
)

// Backend is an in-memory implementation of the herostore.BlobStore interface
type Backend struct {
	mu              sync.RWMutex
	objects         map[string][]byte
	objectsMimeType map[string]string
	objectsModTime  map[string]time.Time
}

// New creates a new in-memory storage backend
func New() herostore.BlobStore {
	return &Backend{
		objects:         make(map[string][]byte),
		objectsMimeType: make(map[string]string),
		objectsModTime:  make(map[string]time.Time),
	}
}

// GetObjectMeta retrieves metadata for an object in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*herostore.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}
	mimeType, exists := b.objectsMimeType[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}

	meta := &herostore.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: mimeType,
		UpdatedAt:   b.objectsModTime[objectKey],
		Metadata:    map[string]string{"mime_type": mimeType},
	}

	return meta, nil
}

// Upload uploads content directly
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	b.objectsModTime[objectKey] = time.Now().UTC()
	// Set default MIME type if not set
	if _, exists := b.objectsMimeType[objectKey]; !exists {
		b.objectsMimeType[objectKey] = "application/octet-stream"
	}
	return nil
}

// UploadWithParams uploads content with parameters
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params herostore.UploadParams) error {
	err := b.Upload(ctx, params.ObjectKey, reader)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objectsMimeType[params.ObjectKey] = params.MimeType
	return nil
}

// Download downloads content directly
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return errors.New("object not found")
	}

	delete(b.objects, objectKey)
	delete(b.objectsMimeType, objectKey)
	delete(b.objectsModTime, objectKey)
	return nil
}
