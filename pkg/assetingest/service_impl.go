package assetingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sessionkit/asset-ingest/pkg/assetingest/objectkey"
)

// service implements the Service interface.
type service struct {
	repo      Repository
	store     BlobStore
	validator Validator
	extractor Extractor
	keys      KeyGenerator
	scheduler ThumbnailScheduler
}

// Option is a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repo = repo
	}
}

// WithBlobStore sets the blob store for the service
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithValidator sets the upload validator for the service
func WithValidator(v Validator) Option {
	return func(s *service) {
		s.validator = v
	}
}

// WithExtractor sets the metadata extractor for the service
func WithExtractor(e Extractor) Option {
	return func(s *service) {
		s.extractor = e
	}
}

// WithKeyGenerator sets the key generator for the service
func WithKeyGenerator(g KeyGenerator) Option {
	return func(s *service) {
		s.keys = g
	}
}

// WithThumbnailScheduler sets the thumbnail scheduler for the service
func WithThumbnailScheduler(ts ThumbnailScheduler) Option {
	return func(s *service) {
		s.scheduler = ts
	}
}

// New creates a new service with the given options. A repository, a blob
// store and a validator are required; the key generator defaults to the
// date-sharded layout, and the extractor and scheduler are optional.
func New(opts ...Option) (Service, error) {
	s := &service{}
	for _, opt := range opts {
		opt(s)
	}

	if s.repo == nil {
		return nil, errors.New("repository is required")
	}
	if s.store == nil {
		return nil, errors.New("blob store is required")
	}
	if s.validator == nil {
		return nil, errors.New("validator is required")
	}
	if s.keys == nil {
		s.keys = objectkey.NewDateShardedGenerator()
	}
	return s, nil
}

func (s *service) UploadAsset(ctx context.Context, req UploadAssetRequest) (*Asset, error) {
	if err := req.Validate(); err != nil {
		return nil, NewUploadError(KindBadInput, CodeUploadFailed, err.Error())
	}

	upload, err := s.validator.Validate(ctx, req.Reader, req.Filename, req.DeclaredMime)
	if err != nil {
		return nil, err
	}
	// The temp file is ours from here on, success or failure.
	defer func() {
		if derr := upload.Discard(); derr != nil {
			slog.Warn("failed to discard validated upload", "path", upload.Path, "error", derr)
		}
	}()

	storageKey, publicID := s.keys.GenerateKey(string(req.Type), upload.Extension)

	// Storage and metadata extraction read the same immutable temp file, so
	// they can run concurrently. Extraction is best-effort and contributes no
	// error; only storage can fail the upload.
	var meta *ExtractedMetadata
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		f, err := upload.Open()
		if err != nil {
			return fmt.Errorf("failed to reopen validated upload: %w", err)
		}
		defer f.Close()
		return s.store.Upload(gctx, storageKey, f)
	})
	if s.extractor != nil {
		g.Go(func() error {
			meta = s.extractor.Extract(gctx, upload.Path, upload.MimeType)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, WrapUploadError(KindInternal, CodeStorageFailure, "failed to store original", err)
	}

	asset := &Asset{
		PublicID:         publicID,
		SessionID:        req.SessionID,
		OwnerID:          req.OwnerID,
		SpotID:           req.SpotID,
		Type:             req.Type,
		Status:           AssetStatusRaw,
		MimeType:         upload.MimeType,
		OriginalFilename: upload.OriginalFilename,
		StorageKey:       storageKey,
		LocationSource:   locationSource(meta, req.DeviceLocation),
		Metadata:         meta,
		DeviceLocation:   req.DeviceLocation,
		Thumbnails:       []Thumbnail{},
	}

	if err := s.repo.SaveAsset(ctx, asset); err != nil {
		// The blob is orphaned without its record; best-effort rollback.
		if derr := s.store.Delete(ctx, storageKey); derr != nil && !errors.Is(derr, ErrBlobNotFound) {
			slog.Warn("failed to roll back stored blob", "key", storageKey, "error", derr)
		}
		return nil, WrapUploadError(KindInternal, CodeUploadFailed, "failed to save asset", err)
	}

	if req.Type == AssetTypeImage && s.scheduler != nil {
		job := ThumbnailJob{AssetID: asset.ID, AssetPublicID: asset.PublicID, OriginalKey: storageKey}
		if err := s.scheduler.Schedule(job); err != nil {
			// The upload already succeeded; derivatives stay absent until a
			// later regeneration.
			slog.Error("failed to schedule thumbnails",
				"asset_public_id", asset.PublicID, "error", err)
		}
	}

	slog.Info("asset uploaded",
		"asset_public_id", asset.PublicID,
		"session_id", asset.SessionID,
		"type", asset.Type,
		"mime_type", asset.MimeType,
		"size", upload.Size,
		"location_source", asset.LocationSource)
	return asset, nil
}

func (s *service) GetAssetByPublicID(ctx context.Context, publicID string) (*Asset, error) {
	return s.repo.GetAssetByPublicID(ctx, publicID)
}

// DeleteAsset removes blobs before the record so a failed blob delete leaves
// the record pointing at still-existing bytes rather than the reverse.
func (s *service) DeleteAsset(ctx context.Context, publicID string) error {
	asset, err := s.repo.GetAssetByPublicID(ctx, publicID)
	if err != nil {
		return err
	}

	for _, t := range asset.Thumbnails {
		if err := s.store.Delete(ctx, t.StorageKey); err != nil {
			if errors.Is(err, ErrBlobNotFound) {
				slog.Warn("thumbnail blob already gone", "key", t.StorageKey)
				continue
			}
			return fmt.Errorf("failed to delete thumbnail %s: %w", t.StorageKey, err)
		}
	}

	if err := s.store.Delete(ctx, asset.StorageKey); err != nil {
		return fmt.Errorf("failed to delete original %s: %w", asset.StorageKey, err)
	}

	if err := s.repo.DeleteAsset(ctx, asset.ID); err != nil {
		return err
	}

	slog.Info("asset deleted", "asset_public_id", publicID, "session_id", asset.SessionID)
	return nil
}

func (s *service) OpenOriginal(ctx context.Context, publicID string) (io.ReadCloser, *Asset, error) {
	asset, err := s.repo.GetAssetByPublicID(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Download(ctx, asset.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return rc, asset, nil
}

func (s *service) OpenThumbnail(ctx context.Context, publicID string, size ThumbnailSize) (io.ReadCloser, *Asset, error) {
	asset, err := s.repo.GetAssetByPublicID(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}
	t, ok := asset.ThumbnailBySize(size)
	if !ok {
		return nil, nil, ErrThumbnailNotReady
	}
	rc, err := s.store.Download(ctx, t.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return rc, asset, nil
}

func (s *service) ListSessionAssets(ctx context.Context, sessionID string) ([]*Asset, error) {
	return s.repo.ListBySession(ctx, sessionID)
}

func (s *service) CountSessionAssets(ctx context.Context, sessionID string) (int64, error) {
	return s.repo.CountBySession(ctx, sessionID)
}

func (s *service) LatestSessionThumbnail(ctx context.Context, sessionID string, size ThumbnailSize) (io.ReadCloser, *Asset, error) {
	assets, err := s.repo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	for _, asset := range assets {
		t, ok := asset.ThumbnailBySize(size)
		if !ok {
			continue
		}
		rc, err := s.store.Download(ctx, t.StorageKey)
		if err != nil {
			return nil, nil, err
		}
		return rc, asset, nil
	}
	return nil, nil, ErrThumbnailNotReady
}

func (s *service) UpdateAssetStatus(ctx context.Context, publicID string, status AssetStatus) (*Asset, error) {
	asset, err := s.repo.GetAssetByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	if !asset.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, asset.Status, status)
	}
	if err := s.repo.UpdateStatus(ctx, asset.ID, status); err != nil {
		return nil, err
	}
	asset.Status = status
	slog.Info("asset status updated", "asset_public_id", publicID, "status", status)
	return asset, nil
}

// locationSource picks the provenance label: file-embedded coordinates beat
// the client-reported ones.
func locationSource(meta *ExtractedMetadata, device *GeoPoint) LocationSource {
	if meta.HasLocation() {
		return LocationSourceExif
	}
	if device != nil {
		return LocationSourceDevice
	}
	return LocationSourceUnknown
}
