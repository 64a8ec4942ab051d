// Package config builds a fully wired ingestion service from declarative
// settings.
package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sessionkit/asset-ingest/pkg/assetingest"
	"github.com/sessionkit/asset-ingest/pkg/assetingest/metadata"
	"github.com/sessionkit/asset-ingest/pkg/assetingest/objectkey"
	repomemory "github.com/sessionkit/asset-ingest/pkg/assetingest/repo/memory"
	repopg "github.com/sessionkit/asset-ingest/pkg/assetingest/repo/postgres"
	fsstorage "github.com/sessionkit/asset-ingest/pkg/assetingest/storage/fs"
	memorystorage "github.com/sessionkit/asset-ingest/pkg/assetingest/storage/memory"
	s3storage "github.com/sessionkit/asset-ingest/pkg/assetingest/storage/s3"
	"github.com/sessionkit/asset-ingest/pkg/assetingest/thumbnail"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:               "8080",
		Environment:        "development",
		DatabaseType:       "memory",
		StorageBackend:     "memory",
		ScratchDir:         "./data/scratch",
		StorageRoot:        "./data/storage",
		MaxUploadBytes:     assetingest.DefaultMaxUploadBytes,
		ThumbnailQuality:   thumbnail.DefaultQuality,
		ThumbnailWorkers:   thumbnail.DefaultWorkers,
		ThumbnailQueueSize: thumbnail.DefaultQueueSize,
	}
}

// ServerConfig represents server configuration for the asset ingestion service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Storage configuration
	StorageBackend string // "memory", "fs", "s3"
	StorageRoot    string // fs backend base directory
	ScratchDir     string // temp directory for validation

	// S3 backend configuration
	S3Region                 string
	S3Bucket                 string
	S3AccessKeyID            string
	S3SecretAccessKey        string
	S3Endpoint               string
	S3UsePathStyle           bool
	S3CreateBucketIfNotExist bool

	// Upload limits
	MaxUploadBytes int64

	// Thumbnail pipeline
	ThumbnailQuality   int
	ThumbnailWorkers   int
	ThumbnailQueueSize int
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	switch c.StorageBackend {
	case "memory":
	case "fs":
		if c.StorageRoot == "" {
			return errors.New("storage_root is required for fs backend")
		}
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("s3 bucket is required for s3 backend")
		}
	default:
		return fmt.Errorf("unsupported storage backend type: %s", c.StorageBackend)
	}
	if c.ScratchDir == "" {
		return errors.New("scratch_dir is required")
	}
	return nil
}

// Server bundles the wired components the HTTP layer needs. Close releases
// background workers and pooled connections.
type Server struct {
	Service  assetingest.Service
	Pipeline *thumbnail.Pipeline

	pool *pgxpool.Pool
}

// Close drains the thumbnail pipeline and closes the database pool.
func (s *Server) Close() error {
	var err error
	if s.Pipeline != nil {
		err = s.Pipeline.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// Build wires the repository, blob store, validator, extractor and thumbnail
// pipeline into a ready-to-serve Service.
func (c *ServerConfig) Build() (*Server, error) {
	repo, pool, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	store, err := c.buildStorageBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend: %w", err)
	}

	validator, err := assetingest.NewUploadValidator(c.ScratchDir, c.MaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to build validator: %w", err)
	}

	keys := objectkey.NewDateShardedGenerator()

	pipeline, err := thumbnail.NewPipeline(thumbnail.Config{
		Repository: repo,
		BlobStore:  store,
		Keys:       keys,
		Quality:    c.ThumbnailQuality,
		Workers:    c.ThumbnailWorkers,
		QueueSize:  c.ThumbnailQueueSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build thumbnail pipeline: %w", err)
	}

	svc, err := assetingest.New(
		assetingest.WithRepository(repo),
		assetingest.WithBlobStore(store),
		assetingest.WithValidator(validator),
		assetingest.WithExtractor(metadata.New()),
		assetingest.WithKeyGenerator(keys),
		assetingest.WithThumbnailScheduler(pipeline),
	)
	if err != nil {
		pipeline.Close()
		return nil, err
	}

	return &Server{Service: svc, Pipeline: pipeline, pool: pool}, nil
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository() (assetingest.Repository, *pgxpool.Pool, error) {
	switch c.DatabaseType {
	case "memory":
		return repomemory.New(), nil, nil
	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), pool, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// buildStorageBackend creates a BlobStore based on the configuration
func (c *ServerConfig) buildStorageBackend() (assetingest.BlobStore, error) {
	switch c.StorageBackend {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{BaseDir: c.StorageRoot})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.S3Region,
			Bucket:                 c.S3Bucket,
			AccessKeyID:            c.S3AccessKeyID,
			SecretAccessKey:        c.S3SecretAccessKey,
			Endpoint:               c.S3Endpoint,
			UsePathStyle:           c.S3UsePathStyle,
			CreateBucketIfNotExist: c.S3CreateBucketIfNotExist,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend type: %s", c.StorageBackend)
	}
}

// PingPostgres verifies connectivity to Postgres.
func PingPostgres(databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
