package assetingest

import (
	"context"
	"io"
)

// Service defines the business operations of the asset ingestion pipeline.
// It is the only entry point HTTP handlers and background jobs should use;
// repositories and blob stores are wiring details behind it.
type Service interface {
	// UploadAsset validates, stores and registers one uploaded file, and
	// schedules thumbnail generation for images. The returned asset reflects
	// the persisted record; its thumbnail list is empty until the pipeline
	// catches up.
	UploadAsset(ctx context.Context, req UploadAssetRequest) (*Asset, error)

	// GetAssetByPublicID returns the asset record, or ErrAssetNotFound.
	GetAssetByPublicID(ctx context.Context, publicID string) (*Asset, error)

	// DeleteAsset removes the asset's derivatives, its original blob and
	// finally its record. The record outlives the blob, never the reverse.
	DeleteAsset(ctx context.Context, publicID string) error

	// OpenOriginal streams the asset's validated original bytes.
	OpenOriginal(ctx context.Context, publicID string) (io.ReadCloser, *Asset, error)

	// OpenThumbnail streams one derivative, or ErrThumbnailNotReady when the
	// requested size has not been generated.
	OpenThumbnail(ctx context.Context, publicID string, size ThumbnailSize) (io.ReadCloser, *Asset, error)

	// ListSessionAssets returns a session's assets, newest first.
	ListSessionAssets(ctx context.Context, sessionID string) ([]*Asset, error)

	// CountSessionAssets counts a session's assets.
	CountSessionAssets(ctx context.Context, sessionID string) (int64, error)

	// LatestSessionThumbnail streams the given size of the newest session
	// asset that has it, or ErrThumbnailNotReady when no asset does.
	LatestSessionThumbnail(ctx context.Context, sessionID string, size ThumbnailSize) (io.ReadCloser, *Asset, error)

	// UpdateAssetStatus advances the asset's lifecycle status. Transitions
	// that move backwards fail with ErrInvalidStatusTransition.
	UpdateAssetStatus(ctx context.Context, publicID string, status AssetStatus) (*Asset, error)
}
