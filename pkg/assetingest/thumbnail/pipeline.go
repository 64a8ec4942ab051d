package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sessionkit/asset-ingest/pkg/assetingest"
)

// Pool defaults: two workers isolate thumbnail throughput from request
// handling; the queue absorbs upload bursts.
const (
	DefaultWorkers   = 2
	DefaultQueueSize = 100
)

// ErrQueueFull is returned by Schedule when the job queue is saturated.
var ErrQueueFull = errors.New("thumbnail queue full")

// Config assembles a Pipeline.
type Config struct {
	Repository assetingest.Repository
	BlobStore  assetingest.BlobStore
	Keys       assetingest.KeyGenerator
	Specs      []assetingest.ThumbnailSpec
	Quality    int
	Workers    int
	QueueSize  int
}

// Pipeline generates every configured derivative size for submitted assets
// and replaces each asset's thumbnail list in a single targeted update.
// Re-running a job regenerates and overwrites; it never duplicates.
type Pipeline struct {
	repo  assetingest.Repository
	store assetingest.BlobStore
	keys  assetingest.KeyGenerator
	specs []assetingest.ThumbnailSpec
	gen   *Generator

	jobs chan assetingest.ThumbnailJob
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPipeline validates the config and starts the workers.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if cfg.BlobStore == nil {
		return nil, errors.New("blob store is required")
	}
	if cfg.Keys == nil {
		return nil, errors.New("key generator is required")
	}
	specs := cfg.Specs
	if len(specs) == 0 {
		specs = assetingest.DefaultThumbnailSpecs()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	p := &Pipeline{
		repo:  cfg.Repository,
		store: cfg.BlobStore,
		keys:  cfg.Keys,
		specs: specs,
		gen:   NewGenerator(cfg.Quality),
		jobs:  make(chan assetingest.ThumbnailJob, queueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p, nil
}

// Schedule enqueues a fire-and-forget job. It never blocks the caller.
func (p *Pipeline) Schedule(job assetingest.ThumbnailJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("thumbnail pipeline closed")
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting jobs, drains the queue and waits for the workers.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.process(context.Background(), job)
	}
}

// process attempts every configured size; one size failing does not abort
// the others. Whatever subset succeeded is persisted as the asset's new
// derivative list.
func (p *Pipeline) process(ctx context.Context, job assetingest.ThumbnailJob) {
	thumbnails := make([]assetingest.Thumbnail, 0, len(p.specs))
	for _, spec := range p.specs {
		t, err := p.generateOne(ctx, job, spec)
		if err != nil {
			slog.Error("thumbnail generation failed",
				"asset_public_id", job.AssetPublicID, "size", spec.Size, "error", err)
			continue
		}
		slog.Debug("generated thumbnail",
			"asset_public_id", job.AssetPublicID, "size", spec.Size, "key", t.StorageKey)
		thumbnails = append(thumbnails, t)
	}

	if err := p.repo.ReplaceThumbnails(ctx, job.AssetID, thumbnails); err != nil {
		slog.Error("failed to persist thumbnail list",
			"asset_public_id", job.AssetPublicID, "error", err)
		return
	}
	slog.Info("thumbnails ready",
		"asset_public_id", job.AssetPublicID, "count", len(thumbnails))
}

func (p *Pipeline) generateOne(ctx context.Context, job assetingest.ThumbnailJob, spec assetingest.ThumbnailSpec) (assetingest.Thumbnail, error) {
	original, err := p.store.Download(ctx, job.OriginalKey)
	if err != nil {
		return assetingest.Thumbnail{}, fmt.Errorf("failed to download original %s: %w", job.OriginalKey, err)
	}
	defer original.Close()

	encoded, err := p.gen.Generate(original, spec.MaxDimension)
	if err != nil {
		return assetingest.Thumbnail{}, err
	}

	key := p.keys.ThumbnailKey(job.AssetPublicID, spec.Size.KeyName())
	if err := p.store.Upload(ctx, key, bytes.NewReader(encoded)); err != nil {
		return assetingest.Thumbnail{}, fmt.Errorf("failed to store thumbnail %s: %w", key, err)
	}
	return assetingest.Thumbnail{Size: spec.Size, StorageKey: key}, nil
}
