// Package postgres provides a PostgreSQL implementation of the
// assetingest.Repository interface.
//
// Expected schema:
//
//	CREATE TABLE asset (
//	    id                UUID PRIMARY KEY,
//	    public_id         TEXT NOT NULL UNIQUE,
//	    session_id        TEXT NOT NULL,
//	    owner_id          TEXT NOT NULL,
//	    spot_id           TEXT,
//	    asset_type        TEXT NOT NULL,
//	    status            TEXT NOT NULL,
//	    mime_type         TEXT NOT NULL DEFAULT '',
//	    original_filename TEXT NOT NULL DEFAULT '',
//	    storage_key       TEXT NOT NULL,
//	    location_source   TEXT NOT NULL,
//	    metadata          JSONB,
//	    device_location   JSONB,
//	    thumbnails        JSONB NOT NULL DEFAULT '[]',
//	    created_at        TIMESTAMPTZ NOT NULL,
//	    updated_at        TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_asset_session ON asset (session_id, created_at DESC);
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sessionkit/asset-ingest/pkg/assetingest"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements assetingest.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) assetingest.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) assetingest.Repository {
	return &Repository{db: pool}
}

const assetColumns = `id, public_id, session_id, owner_id, spot_id, asset_type,
       status, mime_type, original_filename, storage_key, location_source,
       metadata, device_location, thumbnails, created_at, updated_at`

func (r *Repository) SaveAsset(ctx context.Context, asset *assetingest.Asset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = now

	metadata, err := marshalNullable(asset.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	deviceLocation, err := marshalNullable(asset.DeviceLocation)
	if err != nil {
		return fmt.Errorf("failed to encode device location: %w", err)
	}
	thumbnails, err := marshalThumbnails(asset.Thumbnails)
	if err != nil {
		return fmt.Errorf("failed to encode thumbnails: %w", err)
	}

	query := `
		INSERT INTO asset (
			id, public_id, session_id, owner_id, spot_id, asset_type,
			status, mime_type, original_filename, storage_key, location_source,
			metadata, device_location, thumbnails, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			location_source = EXCLUDED.location_source,
			metadata = EXCLUDED.metadata,
			device_location = EXCLUDED.device_location,
			updated_at = EXCLUDED.updated_at`

	_, err = r.db.Exec(ctx, query,
		asset.ID, asset.PublicID, asset.SessionID, asset.OwnerID, asset.SpotID,
		asset.Type, asset.Status, asset.MimeType, asset.OriginalFilename,
		asset.StorageKey, asset.LocationSource,
		metadata, deviceLocation, thumbnails,
		asset.CreatedAt, asset.UpdatedAt)
	if err != nil {
		return handlePostgresError("save asset", err)
	}
	return nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*assetingest.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM asset WHERE id = $1`
	return scanAsset(r.db.QueryRow(ctx, query, id))
}

func (r *Repository) GetAssetByPublicID(ctx context.Context, publicID string) (*assetingest.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM asset WHERE public_id = $1`
	return scanAsset(r.db.QueryRow(ctx, query, publicID))
}

func (r *Repository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM asset WHERE id = $1`, id)
	if err != nil {
		return handlePostgresError("delete asset", err)
	}
	if tag.RowsAffected() == 0 {
		return assetingest.ErrAssetNotFound
	}
	return nil
}

// ReplaceThumbnails swaps the asset's full derivative list in one targeted
// update. It never touches any other column besides updated_at.
func (r *Repository) ReplaceThumbnails(ctx context.Context, id uuid.UUID, thumbnails []assetingest.Thumbnail) error {
	encoded, err := marshalThumbnails(thumbnails)
	if err != nil {
		return fmt.Errorf("failed to encode thumbnails: %w", err)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE asset SET thumbnails = $2, updated_at = $3 WHERE id = $1`,
		id, encoded, time.Now().UTC())
	if err != nil {
		return handlePostgresError("replace thumbnails", err)
	}
	if tag.RowsAffected() == 0 {
		return assetingest.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status assetingest.AssetStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE asset SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	if err != nil {
		return handlePostgresError("update status", err)
	}
	if tag.RowsAffected() == 0 {
		return assetingest.ErrAssetNotFound
	}
	return nil
}

func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]*assetingest.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM asset
		WHERE session_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, handlePostgresError("list session assets", err)
	}
	defer rows.Close()

	var assets []*assetingest.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func (r *Repository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM asset WHERE session_id = $1`, sessionID).Scan(&count)
	if err != nil {
		return 0, handlePostgresError("count session assets", err)
	}
	return count, nil
}

func scanAsset(row pgx.Row) (*assetingest.Asset, error) {
	var (
		asset          assetingest.Asset
		metadata       []byte
		deviceLocation []byte
		thumbnails     []byte
	)
	err := row.Scan(
		&asset.ID, &asset.PublicID, &asset.SessionID, &asset.OwnerID, &asset.SpotID,
		&asset.Type, &asset.Status, &asset.MimeType, &asset.OriginalFilename,
		&asset.StorageKey, &asset.LocationSource,
		&metadata, &deviceLocation, &thumbnails,
		&asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, assetingest.ErrAssetNotFound
		}
		return nil, handlePostgresError("scan asset", err)
	}

	if len(metadata) > 0 {
		asset.Metadata = &assetingest.ExtractedMetadata{}
		if err := json.Unmarshal(metadata, asset.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	if len(deviceLocation) > 0 {
		asset.DeviceLocation = &assetingest.GeoPoint{}
		if err := json.Unmarshal(deviceLocation, asset.DeviceLocation); err != nil {
			return nil, fmt.Errorf("failed to decode device location: %w", err)
		}
	}
	if len(thumbnails) > 0 {
		if err := json.Unmarshal(thumbnails, &asset.Thumbnails); err != nil {
			return nil, fmt.Errorf("failed to decode thumbnails: %w", err)
		}
	}
	return &asset, nil
}

// marshalNullable encodes v as JSON, mapping a nil pointer onto SQL NULL.
func marshalNullable(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case *assetingest.ExtractedMetadata:
		if t == nil {
			return nil, nil
		}
	case *assetingest.GeoPoint:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

// marshalThumbnails always encodes a JSON array, never null.
func marshalThumbnails(thumbnails []assetingest.Thumbnail) ([]byte, error) {
	if thumbnails == nil {
		thumbnails = []assetingest.Thumbnail{}
	}
	return json.Marshal(thumbnails)
}

func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("asset already exists")
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
