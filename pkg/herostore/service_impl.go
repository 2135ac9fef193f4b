package herostore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const defaultPageLimit = 5

// service implements the Service interface
type service struct {
	repository Repository
	blobStore  BlobStore
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the blob storage backend for the service
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithLogger sets the logger used for advisory warnings
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options. Both a
// repository and a blob store are required; the blob store is bound once at
// construction so operations never race a lazy initialization.
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, ErrBlobStoreNotConfigured
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// Hero operations

func (s *service) ListHeroes(ctx context.Context, page, limit int) (*HeroPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}

	total, err := s.repository.CountHeroes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count heroes: %w", err)
	}

	heroes, err := s.repository.ListHeroes(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list heroes: %w", err)
	}

	return &HeroPage{
		Heroes:     heroes,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func (s *service) GetHero(ctx context.Context, id uuid.UUID) (*Hero, error) {
	return s.repository.GetHero(ctx, id)
}

func (s *service) CreateHero(ctx context.Context, req CreateHeroRequest) (*Hero, error) {
	fields, err := validateHeroFields(req.Nickname, req.RealName, req.OriginDescription, req.Superpowers, req.CatchPhrase)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	hero := &Hero{
		ID:                uuid.New(),
		Nickname:          fields.Nickname,
		RealName:          fields.RealName,
		OriginDescription: fields.OriginDescription,
		Superpowers:       fields.Superpowers,
		CatchPhrase:       fields.CatchPhrase,
		Images:            []ImageRef{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repository.CreateHero(ctx, hero); err != nil {
		return nil, &HeroError{HeroID: hero.ID, Op: "create", Err: err}
	}

	return hero, nil
}

func (s *service) UpdateHero(ctx context.Context, id uuid.UUID, req UpdateHeroRequest) (*Hero, error) {
	fields, err := validateHeroFields(req.Nickname, req.RealName, req.OriginDescription, req.Superpowers, req.CatchPhrase)
	if err != nil {
		return nil, err
	}

	hero, err := s.repository.GetHero(ctx, id)
	if err != nil {
		return nil, err
	}

	hero.Nickname = fields.Nickname
	hero.RealName = fields.RealName
	hero.OriginDescription = fields.OriginDescription
	hero.Superpowers = fields.Superpowers
	hero.CatchPhrase = fields.CatchPhrase
	hero.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdateHero(ctx, hero); err != nil {
		if errors.Is(err, ErrHeroNotFound) {
			return nil, err
		}
		return nil, &HeroError{HeroID: id, Op: "update", Err: err}
	}

	return hero, nil
}

func (s *service) DeleteHero(ctx context.Context, id uuid.UUID) error {
	err := s.repository.WithTx(ctx, func(tx Repository) error {
		hero, err := tx.GetHero(ctx, id)
		if err != nil {
			return err
		}

		if err := tx.DeleteHero(ctx, id); err != nil {
			return err
		}

		// Blob cleanup is advisory: the record delete has already been
		// decided and a stuck blob is not caller-actionable.
		for _, img := range hero.Images {
			if err := s.blobStore.Delete(ctx, img.BlobID.String()); err != nil {
				s.logger.Warn("failed to delete image blob during hero delete",
					"hero_id", id.String(),
					"blob_id", img.BlobID.String(),
					"error", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrHeroNotFound) {
			return err
		}
		return &HeroError{HeroID: id, Op: "delete", Err: err}
	}
	return nil
}

// Image lifecycle operations

func (s *service) AddImage(ctx context.Context, heroID uuid.UUID, r io.Reader, filename, contentType string) (*Hero, error) {
	ref := ImageRef{
		BlobID:      uuid.New(),
		Filename:    filename,
		ContentType: contentType,
		UploadDate:  time.Now().UTC(),
	}

	err := s.repository.WithTx(ctx, func(tx Repository) error {
		// The blob write is the one step the record transaction cannot roll
		// back: the blob store has no shared transaction scope. If the
		// append below fails the blob stays behind as an orphan.
		if err := s.blobStore.UploadWithParams(ctx, r, UploadParams{
			ObjectKey: ref.BlobID.String(),
			MimeType:  contentType,
		}); err != nil {
			return &StorageError{Key: ref.BlobID.String(), Op: "upload", Err: err}
		}

		return tx.AppendImage(ctx, heroID, ref)
	})
	if err != nil {
		if errors.Is(err, ErrHeroNotFound) {
			return nil, err
		}
		return nil, &HeroError{HeroID: heroID, Op: "add_image", Err: err}
	}

	return s.repository.GetHero(ctx, heroID)
}

func (s *service) RemoveImage(ctx context.Context, heroID, blobID uuid.UUID) (*Hero, error) {
	err := s.repository.WithTx(ctx, func(tx Repository) error {
		hero, err := tx.GetHero(ctx, heroID)
		if err != nil {
			return err
		}

		found := false
		for _, img := range hero.Images {
			if img.BlobID == blobID {
				found = true
				break
			}
		}
		if !found {
			return ErrImageNotFound
		}

		if err := tx.RemoveImage(ctx, heroID, blobID); err != nil {
			return err
		}

		// Record mutation first, blob delete second: a failure here aborts
		// the transaction and restores the ref, so the committed state never
		// holds a reference to a missing blob.
		if err := s.blobStore.Delete(ctx, blobID.String()); err != nil {
			return &StorageError{Key: blobID.String(), Op: "delete", Err: err}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrHeroNotFound) || errors.Is(err, ErrImageNotFound) {
			return nil, err
		}
		return nil, &HeroError{HeroID: heroID, Op: "remove_image", Err: err}
	}

	return s.repository.GetHero(ctx, heroID)
}

func (s *service) GetImageStream(ctx context.Context, blobID uuid.UUID) (*ImageDownload, error) {
	ref, err := s.repository.GetImageRef(ctx, blobID)
	if err != nil {
		return nil, err
	}

	key := blobID.String()
	meta, err := s.blobStore.GetObjectMeta(ctx, key)
	if err != nil {
		return nil, ErrImageNotFound
	}

	body, err := s.blobStore.Download(ctx, key)
	if err != nil {
		return nil, &StorageError{Key: key, Op: "download", Err: err}
	}

	return &ImageDownload{
		Body:        body,
		ContentType: ref.ContentType,
		Filename:    ref.Filename,
		Size:        meta.Size,
	}, nil
}
