package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tkachdev/herostore/pkg/herostore"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements herostore.Repository using PostgreSQL. Heroes live
// in the heroes table; image refs in hero_images, ordered by insertion.
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// NewWithPool creates a new PostgreSQL repository with a connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// handlePostgresError translates driver errors into repository errors
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return herostore.ErrHeroNotFound
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s: %s", operation, pgErr.ConstraintName)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) CreateHero(ctx context.Context, hero *herostore.Hero) error {
	query := `
		INSERT INTO heroes (
			id, nickname, real_name, origin_description, superpowers,
			catch_phrase, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		hero.ID, hero.Nickname, hero.RealName, hero.OriginDescription,
		hero.Superpowers, hero.CatchPhrase, hero.CreatedAt, hero.UpdatedAt)
	if err != nil {
		return handlePostgresError("create hero", err)
	}

	return nil
}

func (r *Repository) GetHero(ctx context.Context, id uuid.UUID) (*herostore.Hero, error) {
	query := `
		SELECT id, nickname, real_name, origin_description, superpowers,
		       catch_phrase, created_at, updated_at
		FROM heroes WHERE id = $1`

	var hero herostore.Hero
	err := r.db.QueryRow(ctx, query, id).Scan(
		&hero.ID, &hero.Nickname, &hero.RealName, &hero.OriginDescription,
		&hero.Superpowers, &hero.CatchPhrase, &hero.CreatedAt, &hero.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, herostore.ErrHeroNotFound
		}
		return nil, handlePostgresError("get hero", err)
	}

	images, err := r.imagesForHeroes(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	hero.Images = images[id]
	if hero.Images == nil {
		hero.Images = []herostore.ImageRef{}
	}

	return &hero, nil
}

func (r *Repository) UpdateHero(ctx context.Context, hero *herostore.Hero) error {
	query := `
		UPDATE heroes SET
			nickname = $2, real_name = $3, origin_description = $4,
			superpowers = $5, catch_phrase = $6, updated_at = $7
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		hero.ID, hero.Nickname, hero.RealName, hero.OriginDescription,
		hero.Superpowers, hero.CatchPhrase, hero.UpdatedAt)
	if err != nil {
		return handlePostgresError("update hero", err)
	}
	if tag.RowsAffected() == 0 {
		return herostore.ErrHeroNotFound
	}

	return nil
}

func (r *Repository) DeleteHero(ctx context.Context, id uuid.UUID) error {
	// hero_images rows go with the hero via ON DELETE CASCADE
	tag, err := r.db.Exec(ctx, `DELETE FROM heroes WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError("delete hero", err)
	}
	if tag.RowsAffected() == 0 {
		return herostore.ErrHeroNotFound
	}
	return nil
}

func (r *Repository) ListHeroes(ctx context.Context, offset, limit int) ([]*herostore.Hero, error) {
	query := `
		SELECT id, nickname, real_name, origin_description, superpowers,
		       catch_phrase, created_at, updated_at
		FROM heroes
		ORDER BY created_at DESC, id
		OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, handlePostgresError("list heroes", err)
	}
	defer rows.Close()

	var heroes []*herostore.Hero
	var ids []uuid.UUID
	for rows.Next() {
		var hero herostore.Hero
		if err := rows.Scan(
			&hero.ID, &hero.Nickname, &hero.RealName, &hero.OriginDescription,
			&hero.Superpowers, &hero.CatchPhrase, &hero.CreatedAt, &hero.UpdatedAt); err != nil {
			return nil, handlePostgresError("list heroes", err)
		}
		hero.Images = []herostore.ImageRef{}
		heroes = append(heroes, &hero)
		ids = append(ids, hero.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("list heroes", err)
	}

	if len(ids) > 0 {
		images, err := r.imagesForHeroes(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, hero := range heroes {
			if refs, ok := images[hero.ID]; ok {
				hero.Images = refs
			}
		}
	}

	if heroes == nil {
		heroes = []*herostore.Hero{}
	}
	return heroes, nil
}

func (r *Repository) CountHeroes(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM heroes`).Scan(&count); err != nil {
		return 0, handlePostgresError("count heroes", err)
	}
	return count, nil
}

// imagesForHeroes loads image refs for the given hero ids, in upload order.
func (r *Repository) imagesForHeroes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]herostore.ImageRef, error) {
	query := `
		SELECT hero_id, blob_id, filename, content_type, upload_date
		FROM hero_images
		WHERE hero_id = ANY($1)
		ORDER BY ord`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, handlePostgresError("load hero images", err)
	}
	defer rows.Close()

	images := make(map[uuid.UUID][]herostore.ImageRef)
	for rows.Next() {
		var heroID uuid.UUID
		var ref herostore.ImageRef
		if err := rows.Scan(&heroID, &ref.BlobID, &ref.Filename, &ref.ContentType, &ref.UploadDate); err != nil {
			return nil, handlePostgresError("load hero images", err)
		}
		images[heroID] = append(images[heroID], ref)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("load hero images", err)
	}

	return images, nil
}

func (r *Repository) AppendImage(ctx context.Context, heroID uuid.UUID, ref herostore.ImageRef) error {
	// Touching the hero row first both asserts existence and serializes
	// concurrent appends on the same hero via the row lock.
	tag, err := r.db.Exec(ctx,
		`UPDATE heroes SET updated_at = $2 WHERE id = $1`,
		heroID, ref.UploadDate)
	if err != nil {
		return handlePostgresError("append image", err)
	}
	if tag.RowsAffected() == 0 {
		return herostore.ErrHeroNotFound
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO hero_images (blob_id, hero_id, filename, content_type, upload_date)
		VALUES ($1, $2, $3, $4, $5)`,
		ref.BlobID, heroID, ref.Filename, ref.ContentType, ref.UploadDate)
	if err != nil {
		return handlePostgresError("append image", err)
	}

	return nil
}

func (r *Repository) RemoveImage(ctx context.Context, heroID uuid.UUID, blobID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM hero_images WHERE hero_id = $1 AND blob_id = $2`,
		heroID, blobID)
	if err != nil {
		return handlePostgresError("remove image", err)
	}
	if tag.RowsAffected() == 0 {
		return herostore.ErrImageNotFound
	}

	return nil
}

func (r *Repository) GetImageRef(ctx context.Context, blobID uuid.UUID) (*herostore.ImageRef, error) {
	query := `
		SELECT blob_id, filename, content_type, upload_date
		FROM hero_images WHERE blob_id = $1`

	var ref herostore.ImageRef
	err := r.db.QueryRow(ctx, query, blobID).Scan(
		&ref.BlobID, &ref.Filename, &ref.ContentType, &ref.UploadDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, herostore.ErrImageNotFound
		}
		return nil, handlePostgresError("get image ref", err)
	}

	return &ref, nil
}

// WithTx runs fn inside a database transaction. A repository that is already
// transactional (fn nesting) reuses the open transaction handle.
func (r *Repository) WithTx(ctx context.Context, fn func(tx herostore.Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Repository{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
