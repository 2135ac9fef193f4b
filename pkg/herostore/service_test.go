package herostore_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkachdev/herostore/pkg/herostore"
	"github.com/tkachdev/herostore/pkg/herostore/repo/memory"
	memorystorage "github.com/tkachdev/herostore/pkg/herostore/storage/memory"
)

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 64)...)

func newTestService(t *testing.T) herostore.Service {
	t.Helper()
	svc, err := herostore.New(
		herostore.WithRepository(memory.New()),
		herostore.WithBlobStore(memorystorage.New()),
	)
	require.NoError(t, err)
	return svc
}

func validCreateRequest() herostore.CreateHeroRequest {
	return herostore.CreateHeroRequest{
		Nickname:          "Superman",
		RealName:          "Clark Kent",
		OriginDescription: "Born on Krypton",
		Superpowers:       "flight, strength",
		CatchPhrase:       "Up, up and away!",
	}
}

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []herostore.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []herostore.Option{},
			expectError: true,
		},
		{
			name: "repository alone should fail",
			options: []herostore.Option{
				herostore.WithRepository(memory.New()),
			},
			expectError: true,
		},
		{
			name: "with repository and blob store should succeed",
			options: []herostore.Option{
				herostore.WithRepository(memory.New()),
				herostore.WithBlobStore(memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := herostore.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func TestCreateHero(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	hero, err := svc.CreateHero(ctx, validCreateRequest())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, hero.ID)
	assert.Equal(t, "Superman", hero.Nickname)
	assert.NotNil(t, hero.Images)
	assert.Empty(t, hero.Images)
	assert.Equal(t, hero.CreatedAt, hero.UpdatedAt)
}

func TestCreateHeroValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	req := herostore.CreateHeroRequest{
		Nickname:    "  ",
		Superpowers: "flight",
	}
	hero, err := svc.CreateHero(ctx, req)
	assert.Nil(t, hero)

	var validationErr *herostore.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{
		"Nickname is required",
		"Real name is required",
		"Origin description is required",
		"Catch phrase is required",
	}, validationErr.Details)
}

func TestUpdateHero(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	hero, err := svc.CreateHero(ctx, validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.UpdateHero(ctx, hero.ID, herostore.UpdateHeroRequest{
		Nickname:          "Batman",
		RealName:          "Bruce Wayne",
		OriginDescription: "Gotham orphan",
		Superpowers:       "money",
		CatchPhrase:       "I am the night",
	})
	require.NoError(t, err)
	assert.Equal(t, "Batman", updated.Nickname)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))

	_, err = svc.UpdateHero(ctx, uuid.New(), herostore.UpdateHeroRequest{
		Nickname:          "x",
		RealName:          "x",
		OriginDescription: "x",
		Superpowers:       "x",
		CatchPhrase:       "x",
	})
	assert.ErrorIs(t, err, herostore.ErrHeroNotFound)
}

func TestListHeroesPagination(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		req := validCreateRequest()
		req.Nickname = fmt.Sprintf("Hero %d", i)
		_, err := svc.CreateHero(ctx, req)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	page, err := svc.ListHeroes(ctx, 1, 5)
	require.NoError(t, err)
	assert.Len(t, page.Heroes, 5)
	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	// Newest first
	assert.Equal(t, "Hero 6", page.Heroes[0].Nickname)

	page2, err := svc.ListHeroes(ctx, 2, 5)
	require.NoError(t, err)
	assert.Len(t, page2.Heroes, 2)
	assert.Equal(t, "Hero 0", page2.Heroes[1].Nickname)

	// Out-of-range parameters are normalized, not rejected
	normalized, err := svc.ListHeroes(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, normalized.Page)
	assert.Equal(t, 5, normalized.Limit)
}

func TestAddImage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	hero, err := svc.CreateHero(ctx, validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.AddImage(ctx, hero.ID, bytes.NewReader(pngBytes), "portrait.png", "image/png")
	require.NoError(t, err)
	require.Len(t, updated.Images, 1)
	assert.Equal(t, "portrait.png", updated.Images[0].Filename)
	assert.Equal(t, "image/png", updated.Images[0].ContentType)

	// Second image appends, order preserved
	updated, err = svc.AddImage(ctx, hero.ID, bytes.NewReader(pngBytes), "action.png", "image/png")
	require.NoError(t, err)
	require.Len(t, updated.Images, 2)
	assert.Equal(t, "portrait.png", updated.Images[0].Filename)
	assert.Equal(t, "action.png", updated.Images[1].Filename)
}

func TestAddImageConcurrent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	hero, err := svc.CreateHero(ctx, validCreateRequest())
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AddImage(ctx, hero.ID, bytes.NewReader(pngBytes),
				fmt.Sprintf("shot-%d.png", i), "image/png")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "upload %d", i)
	}

	// Every concurrent add must land; none may overwrite another
	current, err := svc.GetHero(ctx, hero.ID)
	require.NoError(t, err)
	assert.Len(t, current.Images, n)
}

// recordingStore captures the object keys of every upload
type recordingStore struct {
	herostore.BlobStore
	mu   sync.Mutex
	keys []string
}

func (s *recordingStore) UploadWithParams(ctx context.Context, r io.Reader, params herostore.UploadParams) error {
	s.mu.Lock()
	s.keys = append(s.keys, params.ObjectKey)
	s.mu.Unlock()
	return s.BlobStore.UploadWithParams(ctx, r, params)
}

func TestAddImageFailureLeavesOrphanBlob(t *testing.T) {
	store := &recordingStore{BlobStore: memorystorage.New()}
	svc, err := herostore.New(
		herostore.WithRepository(memory.New()),
		herostore.WithBlobStore(store),
	)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.AddImage(ctx, uuid.New(), bytes.NewReader(pngBytes), "portrait.png", "image/png")
	require.ErrorIs(t, err, herostore.ErrHeroNotFound)

	// The blob upload preceded the failed append and is not rolled back
	require.Len(t, store.keys, 1)
	meta, err := store.GetObjectMeta(ctx, store.keys[0])
	require.NoError(t, err)
	assert.Equal(t, int64(len(pngBytes)), meta.Size)
}

func TestAddImageHeroMissing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddImage(ctx, uuid.New(), bytes.NewReader(pngBytes), "portrait.png", "image/png")
	assert.ErrorIs(t, err, herostore.ErrHeroNotFound)
}

func TestRemoveImage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	hero, err := svc.CreateHero(ctx, validCreateRequest())
	require.NoError(t, err)

	withImage, err := svc.AddImage(ctx, hero.ID, bytes.NewReader(pngBytes), "portrait.png", "image/png")
	require.NoError(t, err)
	blobID := withImage.Images[0].BlobID

	updated, err := svc.RemoveImage(ctx, hero.ID, blobID)
	require.NoError(t, err)
	assert.Empty(t, updated.Images)

	// The blob is gone too
	_, err = svc.GetImageStream(ctx, blobID)
	assert.ErrorIs(t, err, herostore.ErrImageNotFound)

	_, err = svc.RemoveImage(ctx, hero.ID, blobID)
	assert.ErrorIs(t, err, herostore.ErrImageNotFound)
}

// failingDeleteStore wraps a working blob store but refuses deletes
type failingDeleteStore struct {
	herostore.BlobStore
}

func (s *failingDeleteStore) Delete(ctx context.Context, objectKey string) error {
	return errors.New("backend unavailable")
}

func TestRemoveImageBlobDeleteFailureAbortsTransaction(t *testing.T) {
	store := &failingDeleteStore{BlobStore: memorystorage.New()}
	svc, err := herostore.New(
		herostore.WithRepository(memory.New()),
		herostore.WithBlobStore(store),
	)
	require.NoError(t, err)
	ctx := context.Background()

	hero, err := svc.CreateHero(ctx, validCreateRequest())
	require.NoError(t, err)
	withImage, err := svc.AddImage(ctx, hero.ID, bytes.NewReader(pngBytes), "portrait.png", "image/png")
	require.NoError(t, err)
	blobID := withImage.Images[0].BlobID

	_, err = svc.RemoveImage(ctx, hero.ID, blobID)
	require.Error(t, err)

	var storageErr *herostore.StorageError
	assert.ErrorAs(t, err, &storageErr)

	// The ref must still be on the hero: no dangling commit
	current, err := svc.GetHero(ctx, hero.ID)
	require.NoError(t, err)
	require.Len(t, current.Images, 1)
	assert.Equal(t, blobID, current.Images[0].BlobID)
}

func TestDeleteHeroSurvivesBlobFailure(t *testing.T) {
	store := &failingDeleteStore{BlobStore: memorystorage.New()}
	svc, err := herostore.New(
		herostore.WithRepository(memory.New()),
		herostore.WithBlobStore(store),
	)
	require.NoError(t, err)
	ctx := context.Background()

	hero, err := svc.CreateHero(ctx, validCreateRequest())
	require.NoError(t, err)
	_, err = svc.AddImage(ctx, hero.ID, bytes.NewReader(pngBytes), "portrait.png", "image/png")
	require.NoError(t, err)

	// Blob cleanup fails, record deletion still goes through
	require.NoError(t, svc.DeleteHero(ctx, hero.ID))

	_, err = svc.GetHero(ctx, hero.ID)
	assert.ErrorIs(t, err, herostore.ErrHeroNotFound)
}

func TestDeleteHeroMissing(t *testing.T) {
	svc := newTestService(t)
	err := svc.DeleteHero(context.Background(), uuid.New())
	assert.ErrorIs(t, err, herostore.ErrHeroNotFound)
}

func TestGetImageStream(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	hero, err := svc.CreateHero(ctx, validCreateRequest())
	require.NoError(t, err)
	withImage, err := svc.AddImage(ctx, hero.ID, bytes.NewReader(pngBytes), "portrait.png", "image/png")
	require.NoError(t, err)

	download, err := svc.GetImageStream(ctx, withImage.Images[0].BlobID)
	require.NoError(t, err)
	defer download.Body.Close()

	assert.Equal(t, "image/png", download.ContentType)
	assert.Equal(t, "portrait.png", download.Filename)
	assert.Equal(t, int64(len(pngBytes)), download.Size)

	data, err := io.ReadAll(download.Body)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	// A repeated read of an unmutated blob returns the same metadata and bytes
	again, err := svc.GetImageStream(ctx, withImage.Images[0].BlobID)
	require.NoError(t, err)
	defer again.Body.Close()

	assert.Equal(t, download.ContentType, again.ContentType)
	assert.Equal(t, download.Filename, again.Filename)
	assert.Equal(t, download.Size, again.Size)

	data2, err := io.ReadAll(again.Body)
	require.NoError(t, err)
	assert.Equal(t, data, data2)
}

func TestGetImageStreamMissing(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetImageStream(context.Background(), uuid.New())
	assert.ErrorIs(t, err, herostore.ErrImageNotFound)
}
