// Package objectkey generates storage keys and public ids for assets and
// their derivatives.
package objectkey

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generator defines the interface for key generation strategies.
type Generator interface {
	// GenerateKey creates the original's storage key and the asset's
	// public id.
	GenerateKey(assetType, extension string) (storageKey, publicID string)

	// ThumbnailKey creates the derivative key for one size of an asset.
	ThumbnailKey(publicID, sizeName string) string
}

// DateShardedGenerator produces keys of the form
// {type}/{year}/{month}/{publicId}.{ext} and public ids of the form
// asset_{year}_{month}_original_{8 random hex chars}. The random fragment is
// a readable opaque handle, not a cryptographic identifier; 8 characters
// scoped by year/month/type keep collision probability negligible.
type DateShardedGenerator struct {
	now func() time.Time
}

// NewDateShardedGenerator returns the default key generator.
func NewDateShardedGenerator() *DateShardedGenerator {
	return &DateShardedGenerator{now: time.Now}
}

// NewDateShardedGeneratorAt returns a generator with a fixed clock, for
// tests.
func NewDateShardedGeneratorAt(now func() time.Time) *DateShardedGenerator {
	return &DateShardedGenerator{now: now}
}

func (g *DateShardedGenerator) GenerateKey(assetType, extension string) (string, string) {
	now := g.now()
	publicID := fmt.Sprintf("asset_%d_%d_original_%s",
		now.Year(), int(now.Month()), uuid.NewString()[:8])
	storageKey := fmt.Sprintf("%s/%d/%d/%s.%s",
		strings.ToLower(assetType), now.Year(), int(now.Month()), publicID, strings.ToLower(extension))
	return storageKey, publicID
}

func (g *DateShardedGenerator) ThumbnailKey(publicID, sizeName string) string {
	return fmt.Sprintf("thumbnails/%s_%s.jpg", publicID, strings.ToLower(sizeName))
}
