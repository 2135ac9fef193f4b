package herostore

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service coordinates hero records and blob storage so that a hero's image
// list and the blob store never diverge outside the documented orphan window.
type Service interface {
	// ListHeroes returns one page of heroes, newest first. A page below 1
	// is treated as 1 and a limit below 1 as the default of 5.
	ListHeroes(ctx context.Context, page, limit int) (*HeroPage, error)

	// GetHero retrieves a hero by id.
	GetHero(ctx context.Context, id uuid.UUID) (*Hero, error)

	// CreateHero validates and stores a new hero record.
	CreateHero(ctx context.Context, req CreateHeroRequest) (*Hero, error)

	// UpdateHero validates and replaces the text fields of an existing hero.
	UpdateHero(ctx context.Context, id uuid.UUID, req UpdateHeroRequest) (*Hero, error)

	// DeleteHero removes the hero record and best-effort deletes its blobs.
	// Record deletion is strict; blob cleanup failures are logged and
	// swallowed because the record is already gone.
	DeleteHero(ctx context.Context, id uuid.UUID) error

	// AddImage stores the image bytes and appends a ref to the hero's image
	// list inside a record transaction. The blob write itself is not covered
	// by the transaction: if the hero vanishes before the append commits,
	// the blob is left behind as an orphan.
	AddImage(ctx context.Context, heroID uuid.UUID, r io.Reader, filename, contentType string) (*Hero, error)

	// RemoveImage pulls the ref from the hero's image list and deletes the
	// blob, both inside a record transaction. A blob-delete failure aborts
	// the transaction so no dangling ref is ever committed.
	RemoveImage(ctx context.Context, heroID, blobID uuid.UUID) (*Hero, error)

	// GetImageStream returns a single-pass byte stream plus the metadata
	// needed to relay it. The blob is not buffered in memory.
	GetImageStream(ctx context.Context, blobID uuid.UUID) (*ImageDownload, error)
}
