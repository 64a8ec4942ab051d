// Package memory provides an in-memory implementation of the
// assetingest.Repository interface.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sessionkit/asset-ingest/pkg/assetingest"
)

// Repository implements assetingest.Repository using in-memory storage.
type Repository struct {
	mu         sync.RWMutex
	assets     map[uuid.UUID]*assetingest.Asset
	byPublicID map[string]uuid.UUID
}

// New creates a new in-memory repository.
func New() *Repository {
	return &Repository{
		assets:     make(map[uuid.UUID]*assetingest.Asset),
		byPublicID: make(map[string]uuid.UUID),
	}
}

func (r *Repository) SaveAsset(ctx context.Context, asset *assetingest.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = now

	// Store a copy to avoid external modifications.
	assetCopy := copyAsset(asset)
	r.assets[asset.ID] = assetCopy
	r.byPublicID[asset.PublicID] = asset.ID
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*assetingest.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, exists := r.assets[id]
	if !exists {
		return nil, assetingest.ErrAssetNotFound
	}
	return copyAsset(asset), nil
}

func (r *Repository) GetAssetByPublicID(ctx context.Context, publicID string) (*assetingest.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byPublicID[publicID]
	if !exists {
		return nil, assetingest.ErrAssetNotFound
	}
	return copyAsset(r.assets[id]), nil
}

func (r *Repository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	asset, exists := r.assets[id]
	if !exists {
		return assetingest.ErrAssetNotFound
	}
	delete(r.byPublicID, asset.PublicID)
	delete(r.assets, id)
	return nil
}

func (r *Repository) ReplaceThumbnails(ctx context.Context, id uuid.UUID, thumbnails []assetingest.Thumbnail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	asset, exists := r.assets[id]
	if !exists {
		return assetingest.ErrAssetNotFound
	}
	asset.Thumbnails = append([]assetingest.Thumbnail(nil), thumbnails...)
	asset.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status assetingest.AssetStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	asset, exists := r.assets[id]
	if !exists {
		return assetingest.ErrAssetNotFound
	}
	asset.Status = status
	asset.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]*assetingest.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*assetingest.Asset
	for _, asset := range r.assets {
		if asset.SessionID == sessionID {
			result = append(result, copyAsset(asset))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, asset := range r.assets {
		if asset.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func copyAsset(a *assetingest.Asset) *assetingest.Asset {
	assetCopy := *a
	assetCopy.Thumbnails = append([]assetingest.Thumbnail(nil), a.Thumbnails...)
	if a.Metadata != nil {
		metaCopy := *a.Metadata
		assetCopy.Metadata = &metaCopy
	}
	if a.DeviceLocation != nil {
		locCopy := *a.DeviceLocation
		assetCopy.DeviceLocation = &locCopy
	}
	if a.SpotID != nil {
		spotCopy := *a.SpotID
		assetCopy.SpotID = &spotCopy
	}
	return &assetCopy
}
