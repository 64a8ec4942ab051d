package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionkit/asset-ingest/pkg/assetingest"
)

func newAsset(sessionID, publicID string) *assetingest.Asset {
	return &assetingest.Asset{
		PublicID:   publicID,
		SessionID:  sessionID,
		OwnerID:    "owner-1",
		Type:       assetingest.AssetTypeImage,
		Status:     assetingest.AssetStatusRaw,
		StorageKey: "image/2025/3/" + publicID + ".jpg",
	}
}

func TestSaveAndGetAsset(t *testing.T) {
	repo := New()
	ctx := context.Background()

	asset := newAsset("sess-1", "pub-1")
	require.NoError(t, repo.SaveAsset(ctx, asset))
	require.NotEqual(t, uuid.Nil, asset.ID)
	require.False(t, asset.CreatedAt.IsZero())

	byID, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.PublicID, byID.PublicID)

	byPublic, err := repo.GetAssetByPublicID(ctx, "pub-1")
	require.NoError(t, err)
	assert.Equal(t, asset.ID, byPublic.ID)
}

func TestGetAssetNotFound(t *testing.T) {
	repo := New()
	ctx := context.Background()

	_, err := repo.GetAsset(ctx, uuid.New())
	assert.ErrorIs(t, err, assetingest.ErrAssetNotFound)

	_, err = repo.GetAssetByPublicID(ctx, "nope")
	assert.ErrorIs(t, err, assetingest.ErrAssetNotFound)
}

func TestDeleteAsset(t *testing.T) {
	repo := New()
	ctx := context.Background()

	asset := newAsset("sess-1", "pub-1")
	require.NoError(t, repo.SaveAsset(ctx, asset))
	require.NoError(t, repo.DeleteAsset(ctx, asset.ID))

	_, err := repo.GetAsset(ctx, asset.ID)
	assert.ErrorIs(t, err, assetingest.ErrAssetNotFound)
	_, err = repo.GetAssetByPublicID(ctx, "pub-1")
	assert.ErrorIs(t, err, assetingest.ErrAssetNotFound)

	assert.ErrorIs(t, repo.DeleteAsset(ctx, asset.ID), assetingest.ErrAssetNotFound)
}

func TestReplaceThumbnails(t *testing.T) {
	repo := New()
	ctx := context.Background()

	asset := newAsset("sess-1", "pub-1")
	require.NoError(t, repo.SaveAsset(ctx, asset))

	first := []assetingest.Thumbnail{
		{Size: assetingest.ThumbSize320, StorageKey: "thumbnails/pub-1_thumb_320.jpg"},
	}
	require.NoError(t, repo.ReplaceThumbnails(ctx, asset.ID, first))

	second := []assetingest.Thumbnail{
		{Size: assetingest.ThumbSize320, StorageKey: "thumbnails/pub-1_thumb_320.jpg"},
		{Size: assetingest.ThumbSize640, StorageKey: "thumbnails/pub-1_thumb_640.jpg"},
	}
	require.NoError(t, repo.ReplaceThumbnails(ctx, asset.ID, second))

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, got.Thumbnails, 2, "replace must swap the list, not append")

	require.NoError(t, repo.ReplaceThumbnails(ctx, asset.ID, nil))
	got, err = repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Thumbnails)

	assert.ErrorIs(t, repo.ReplaceThumbnails(ctx, uuid.New(), first), assetingest.ErrAssetNotFound)
}

func TestUpdateStatus(t *testing.T) {
	repo := New()
	ctx := context.Background()

	asset := newAsset("sess-1", "pub-1")
	require.NoError(t, repo.SaveAsset(ctx, asset))

	require.NoError(t, repo.UpdateStatus(ctx, asset.ID, assetingest.AssetStatusVectorized))

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, assetingest.AssetStatusVectorized, got.Status)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New(), assetingest.AssetStatusError), assetingest.ErrAssetNotFound)
}

func TestListBySessionNewestFirst(t *testing.T) {
	repo := New()
	ctx := context.Background()

	for i, publicID := range []string{"pub-a", "pub-b", "pub-c"} {
		asset := newAsset("sess-1", publicID)
		asset.CreatedAt = time.Date(2025, time.March, 1+i, 0, 0, 0, 0, time.UTC)
		require.NoError(t, repo.SaveAsset(ctx, asset))
	}
	require.NoError(t, repo.SaveAsset(ctx, newAsset("sess-2", "pub-other")))

	assets, err := repo.ListBySession(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, assets, 3)
	assert.Equal(t, "pub-c", assets[0].PublicID)
	assert.Equal(t, "pub-a", assets[2].PublicID)

	count, err := repo.CountBySession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	empty, err := repo.ListBySession(ctx, "sess-none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReturnedAssetsAreCopies(t *testing.T) {
	repo := New()
	ctx := context.Background()

	asset := newAsset("sess-1", "pub-1")
	require.NoError(t, repo.SaveAsset(ctx, asset))
	require.NoError(t, repo.ReplaceThumbnails(ctx, asset.ID, []assetingest.Thumbnail{
		{Size: assetingest.ThumbSize320, StorageKey: "thumbnails/pub-1_thumb_320.jpg"},
	}))

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	got.Thumbnails[0].StorageKey = "mutated"
	got.Status = assetingest.AssetStatusError

	fresh, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "thumbnails/pub-1_thumb_320.jpg", fresh.Thumbnails[0].StorageKey)
	assert.Equal(t, assetingest.AssetStatusRaw, fresh.Status)
}
