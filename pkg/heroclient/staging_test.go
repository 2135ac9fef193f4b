package heroclient_test

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkachdev/herostore/pkg/heroclient"
)

func TestStageAddGuards(t *testing.T) {
	session := heroclient.NewStagingSession(nil, nil)

	tests := []struct {
		name     string
		filename string
		data     []byte
	}{
		{name: "bad extension", filename: "script.exe", data: pngBytes},
		{name: "no extension", filename: "portrait", data: pngBytes},
		{name: "empty data", filename: "portrait.png", data: nil},
		{name: "oversized", filename: "huge.png", data: make([]byte, 5<<20+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := session.StageAdd(tt.filename, tt.data, nil)
			assert.Error(t, err)
		})
	}

	assert.Empty(t, session.DisplayList())
}

func TestDisplayListMergesServerAndStaged(t *testing.T) {
	serverImages := []heroclient.Image{
		{FileID: "f1", Filename: "one.png", URL: "http://example.com/1"},
		{FileID: "f2", Filename: "two.png", URL: "http://example.com/2"},
	}
	session := heroclient.NewStagingSession(nil, serverImages)

	staged, err := session.StageAdd("three.png", pngBytes, nil)
	require.NoError(t, err)

	list := session.DisplayList()
	require.Len(t, list, 3)
	assert.Equal(t, "f1", list[0].ID)
	assert.False(t, list[0].Staged)
	assert.Equal(t, "http://example.com/2", list[1].URL)
	assert.Equal(t, staged.LocalID, list[2].ID)
	assert.True(t, list[2].Staged)
	assert.Empty(t, list[2].URL)

	// Marking a server image hides it from the list without network traffic
	require.True(t, session.StageRemove("f1"))
	list = session.DisplayList()
	require.Len(t, list, 2)
	assert.Equal(t, "f2", list[0].ID)

	assert.False(t, session.StageRemove("unknown"))
}

func TestStageRemoveOfStagedReleasesPreview(t *testing.T) {
	session := heroclient.NewStagingSession(nil, nil)

	var released int32
	staged, err := session.StageAdd("shot.png", pngBytes, func() {
		atomic.AddInt32(&released, 1)
	})
	require.NoError(t, err)

	require.True(t, session.StageRemove(staged.LocalID))
	assert.Equal(t, int32(1), released)
	assert.Empty(t, session.DisplayList())

	// Discard after the entry is gone must not release twice
	session.Discard()
	assert.Equal(t, int32(1), released)
}

func TestDiscardReleasesOnce(t *testing.T) {
	session := heroclient.NewStagingSession(nil, nil)

	var released int32
	_, err := session.StageAdd("shot.png", pngBytes, func() {
		atomic.AddInt32(&released, 1)
	})
	require.NoError(t, err)

	session.Discard()
	session.Discard()
	assert.Equal(t, int32(1), released)
}

func TestCommitAppliesAddsAndRemovals(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	hero, err := client.CreateHero(ctx, validInput())
	require.NoError(t, err)
	withImage, err := client.AddImage(ctx, hero.ID, "old.png", bytes.NewReader(pngBytes))
	require.NoError(t, err)
	require.Len(t, withImage.Images, 1)
	oldID := withImage.Images[0].FileID

	session := heroclient.NewStagingSession(client, withImage.Images)
	require.True(t, session.StageRemove(oldID))
	staged, err := session.StageAdd("new.png", pngBytes, nil)
	require.NoError(t, err)

	result, err := session.Commit(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{oldID}, result.Removed)
	assert.Equal(t, []string{staged.LocalID}, result.Added)
	assert.Empty(t, result.Failed)

	current, err := client.GetHero(ctx, hero.ID)
	require.NoError(t, err)
	require.Len(t, current.Images, 1)
	assert.Equal(t, "new.png", current.Images[0].Filename)
}

func TestCommitReportsPerItemFailures(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	hero, err := client.CreateHero(ctx, validInput())
	require.NoError(t, err)

	session := heroclient.NewStagingSession(client, nil)
	good, err := session.StageAdd("good.png", pngBytes, nil)
	require.NoError(t, err)
	// Passes the local extension check, fails server-side sniffing
	bad, err := session.StageAdd("bad.png", []byte("not actually a png"), nil)
	require.NoError(t, err)

	result, err := session.Commit(ctx, hero.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{good.LocalID}, result.Added)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, bad.LocalID, result.Failed[0].ID)
	assert.Equal(t, "bad.png", result.Failed[0].Filename)
	assert.Error(t, result.Failed[0].Err)

	current, err := client.GetHero(ctx, hero.ID)
	require.NoError(t, err)
	require.Len(t, current.Images, 1)
	assert.Equal(t, "good.png", current.Images[0].Filename)
}

func TestCommitResetsSession(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	hero, err := client.CreateHero(ctx, validInput())
	require.NoError(t, err)

	session := heroclient.NewStagingSession(client, nil)
	_, err = session.StageAdd("shot.png", pngBytes, nil)
	require.NoError(t, err)

	_, err = session.Commit(ctx, hero.ID)
	require.NoError(t, err)

	// A second commit has nothing left to do
	result, err := session.Commit(ctx, hero.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Added)
	assert.Empty(t, result.Removed)
	assert.Empty(t, result.Failed)

	current, err := client.GetHero(ctx, hero.ID)
	require.NoError(t, err)
	assert.Len(t, current.Images, 1)
}

func TestStageAddThenRemoveIsFree(t *testing.T) {
	client, requests := newTestClient(t)
	ctx := context.Background()

	hero, err := client.CreateHero(ctx, validInput())
	require.NoError(t, err)

	session := heroclient.NewStagingSession(client, nil)
	staged, err := session.StageAdd("shot.png", pngBytes, nil)
	require.NoError(t, err)
	require.True(t, session.StageRemove(staged.LocalID))

	before := atomic.LoadInt64(requests)
	result, err := session.Commit(ctx, hero.ID)
	require.NoError(t, err)

	// Adding and removing the same staged entry cancels out entirely
	assert.Equal(t, before, atomic.LoadInt64(requests))
	assert.Empty(t, result.Added)
	assert.Empty(t, result.Removed)
	assert.Empty(t, result.Failed)
}
