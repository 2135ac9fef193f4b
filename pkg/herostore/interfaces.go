package herostore

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Repository defines the interface for hero record persistence.
//
// WithTx runs fn against a transactional view of the repository. All record
// operations performed through the view either commit together or roll back
// together when fn returns an error. Blob storage is outside this scope.
type Repository interface {
	CreateHero(ctx context.Context, hero *Hero) error
	GetHero(ctx context.Context, id uuid.UUID) (*Hero, error)
	UpdateHero(ctx context.Context, hero *Hero) error
	DeleteHero(ctx context.Context, id uuid.UUID) error
	ListHeroes(ctx context.Context, offset, limit int) ([]*Hero, error)
	CountHeroes(ctx context.Context) (int, error)

	// AppendImage atomically appends ref to the hero's image list and sets
	// the hero's UpdatedAt to ref.UploadDate, failing with ErrHeroNotFound
	// if the hero no longer exists.
	AppendImage(ctx context.Context, heroID uuid.UUID, ref ImageRef) error

	// RemoveImage removes the ref with the given blob id from the hero's
	// image list, failing with ErrImageNotFound when it is not present.
	RemoveImage(ctx context.Context, heroID uuid.UUID, blobID uuid.UUID) error

	// GetImageRef looks up an image ref by blob id across all heroes.
	GetImageRef(ctx context.Context, blobID uuid.UUID) (*ImageRef, error)

	WithTx(ctx context.Context, fn func(tx Repository) error) error
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}
