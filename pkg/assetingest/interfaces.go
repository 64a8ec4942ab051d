package assetingest

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for durable byte storage backends. Keys
// are caller-generated opaque relative paths; implementations must treat
// them as collision-free by construction.
type BlobStore interface {
	// Upload stores the reader's bytes under objectKey, creating any
	// intermediate hierarchy the key implies.
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download returns the stored bytes, or ErrBlobNotFound.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the blob. A missing key is ErrBlobNotFound, never
	// silently ignored.
	Delete(ctx context.Context, objectKey string) error
}

// ObjectMeta contains metadata about a blob in storage. The concrete
// backends expose it through a GetObjectMeta helper that sits outside the
// BlobStore contract.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
}

// Repository defines the persistence contract for asset records. It is an
// external collaborator; this package ships memory and postgres
// implementations.
type Repository interface {
	// SaveAsset persists a new asset record.
	SaveAsset(ctx context.Context, asset *Asset) error

	// GetAsset returns the asset with the given internal id, or
	// ErrAssetNotFound.
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)

	// GetAssetByPublicID returns the asset with the given public id, or
	// ErrAssetNotFound.
	GetAssetByPublicID(ctx context.Context, publicID string) (*Asset, error)

	// DeleteAsset removes the record.
	DeleteAsset(ctx context.Context, id uuid.UUID) error

	// ReplaceThumbnails swaps the asset's derivative list in one targeted
	// field update, leaving concurrent edits of other fields intact.
	ReplaceThumbnails(ctx context.Context, id uuid.UUID, thumbnails []Thumbnail) error

	// UpdateStatus sets the asset's lifecycle status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status AssetStatus) error

	// ListBySession returns the session's assets, newest first.
	ListBySession(ctx context.Context, sessionID string) ([]*Asset, error)

	// CountBySession counts the session's assets.
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}

// Validator turns an untrusted upload stream into a ValidatedUpload or a
// typed rejection.
type Validator interface {
	Validate(ctx context.Context, reader io.Reader, filename, declaredMime string) (*ValidatedUpload, error)
}

// Extractor pulls best-effort metadata from a validated file. It never
// fails; absence of metadata is a nil result.
type Extractor interface {
	Extract(ctx context.Context, path, mimeType string) *ExtractedMetadata
}

// KeyGenerator produces storage keys and public ids for new assets and
// derivative keys for their thumbnails.
type KeyGenerator interface {
	GenerateKey(assetType, extension string) (storageKey, publicID string)
	ThumbnailKey(publicID, sizeName string) string
}

// ThumbnailJob identifies one asset whose derivatives should be generated.
type ThumbnailJob struct {
	AssetID       uuid.UUID
	AssetPublicID string
	OriginalKey   string
}

// ThumbnailScheduler accepts fire-and-forget thumbnail jobs. Scheduling runs
// off the request path; Schedule returns an error only when the queue is
// saturated.
type ThumbnailScheduler interface {
	Schedule(job ThumbnailJob) error
}
