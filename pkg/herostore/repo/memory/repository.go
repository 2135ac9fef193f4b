package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tkachdev/herostore/pkg/herostore"
)

// Repository is an in-memory implementation of herostore.Repository,
// intended for tests and development.
//
// Transactions are serialized: WithTx holds the transaction lock for the
// whole closure, snapshots the state, and restores the snapshot when the
// closure fails. Every mutating method takes the same lock, so writes from
// other callers wait for an open transaction to finish and a rollback only
// ever undoes the closure's own writes. Plain reads stay concurrent under
// the RWMutex.
type Repository struct {
	mu     sync.RWMutex
	txMu   sync.Mutex
	heroes map[uuid.UUID]*herostore.Hero
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		heroes: make(map[uuid.UUID]*herostore.Hero),
	}
}

func cloneHero(h *herostore.Hero) *herostore.Hero {
	c := *h
	c.Images = make([]herostore.ImageRef, len(h.Images))
	copy(c.Images, h.Images)
	return &c
}

func (r *Repository) snapshotLocked() map[uuid.UUID]*herostore.Hero {
	snap := make(map[uuid.UUID]*herostore.Hero, len(r.heroes))
	for id, h := range r.heroes {
		snap[id] = cloneHero(h)
	}
	return snap
}

func (r *Repository) CreateHero(ctx context.Context, hero *herostore.Hero) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	return r.createHero(hero)
}

func (r *Repository) createHero(hero *herostore.Hero) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.heroes[hero.ID] = cloneHero(hero)
	return nil
}

func (r *Repository) GetHero(ctx context.Context, id uuid.UUID) (*herostore.Hero, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hero, ok := r.heroes[id]
	if !ok {
		return nil, herostore.ErrHeroNotFound
	}
	return cloneHero(hero), nil
}

func (r *Repository) UpdateHero(ctx context.Context, hero *herostore.Hero) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	return r.updateHero(hero)
}

func (r *Repository) updateHero(hero *herostore.Hero) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.heroes[hero.ID]; !ok {
		return herostore.ErrHeroNotFound
	}
	r.heroes[hero.ID] = cloneHero(hero)
	return nil
}

func (r *Repository) DeleteHero(ctx context.Context, id uuid.UUID) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	return r.deleteHero(id)
}

func (r *Repository) deleteHero(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.heroes[id]; !ok {
		return herostore.ErrHeroNotFound
	}
	delete(r.heroes, id)
	return nil
}

func (r *Repository) ListHeroes(ctx context.Context, offset, limit int) ([]*herostore.Hero, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*herostore.Hero, 0, len(r.heroes))
	for _, h := range r.heroes {
		all = append(all, h)
	}

	// Newest first; creation time ties broken by id for a stable order.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	if offset >= len(all) {
		return []*herostore.Hero{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	page := make([]*herostore.Hero, 0, end-offset)
	for _, h := range all[offset:end] {
		page = append(page, cloneHero(h))
	}
	return page, nil
}

func (r *Repository) CountHeroes(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.heroes), nil
}

func (r *Repository) AppendImage(ctx context.Context, heroID uuid.UUID, ref herostore.ImageRef) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	return r.appendImage(heroID, ref)
}

func (r *Repository) appendImage(heroID uuid.UUID, ref herostore.ImageRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	hero, ok := r.heroes[heroID]
	if !ok {
		return herostore.ErrHeroNotFound
	}
	hero.Images = append(hero.Images, ref)
	hero.UpdatedAt = ref.UploadDate
	return nil
}

func (r *Repository) RemoveImage(ctx context.Context, heroID uuid.UUID, blobID uuid.UUID) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	return r.removeImage(heroID, blobID)
}

func (r *Repository) removeImage(heroID uuid.UUID, blobID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	hero, ok := r.heroes[heroID]
	if !ok {
		return herostore.ErrHeroNotFound
	}

	for i, img := range hero.Images {
		if img.BlobID == blobID {
			hero.Images = append(hero.Images[:i], hero.Images[i+1:]...)
			return nil
		}
	}
	return herostore.ErrImageNotFound
}

func (r *Repository) GetImageRef(ctx context.Context, blobID uuid.UUID) (*herostore.ImageRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hero := range r.heroes {
		for _, img := range hero.Images {
			if img.BlobID == blobID {
				ref := img
				return &ref, nil
			}
		}
	}
	return nil, herostore.ErrImageNotFound
}

// WithTx holds the transaction lock across the closure and rolls the state
// back to a snapshot when fn fails. Other writers block on the same lock
// until the transaction ends, so the snapshot never captures, and a restore
// never discards, writes that did not belong to the closure. fn receives a
// view of the repository, so nested operations observe their own
// uncommitted writes.
func (r *Repository) WithTx(ctx context.Context, fn func(tx herostore.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	snapshot := r.snapshotLocked()
	r.mu.Unlock()

	if err := fn(&txView{repo: r}); err != nil {
		r.mu.Lock()
		r.heroes = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

// txView is the repository handle passed to a transaction closure. It writes
// through without taking the transaction lock, which WithTx already holds.
type txView struct {
	repo *Repository
}

func (v *txView) CreateHero(ctx context.Context, hero *herostore.Hero) error {
	return v.repo.createHero(hero)
}

func (v *txView) GetHero(ctx context.Context, id uuid.UUID) (*herostore.Hero, error) {
	return v.repo.GetHero(ctx, id)
}

func (v *txView) UpdateHero(ctx context.Context, hero *herostore.Hero) error {
	return v.repo.updateHero(hero)
}

func (v *txView) DeleteHero(ctx context.Context, id uuid.UUID) error {
	return v.repo.deleteHero(id)
}

func (v *txView) ListHeroes(ctx context.Context, offset, limit int) ([]*herostore.Hero, error) {
	return v.repo.ListHeroes(ctx, offset, limit)
}

func (v *txView) CountHeroes(ctx context.Context) (int, error) {
	return v.repo.CountHeroes(ctx)
}

func (v *txView) AppendImage(ctx context.Context, heroID uuid.UUID, ref herostore.ImageRef) error {
	return v.repo.appendImage(heroID, ref)
}

func (v *txView) RemoveImage(ctx context.Context, heroID uuid.UUID, blobID uuid.UUID) error {
	return v.repo.removeImage(heroID, blobID)
}

func (v *txView) GetImageRef(ctx context.Context, blobID uuid.UUID) (*herostore.ImageRef, error) {
	return v.repo.GetImageRef(ctx, blobID)
}

// WithTx on a view joins the transaction already open on the repository.
func (v *txView) WithTx(ctx context.Context, fn func(tx herostore.Repository) error) error {
	return fn(v)
}
