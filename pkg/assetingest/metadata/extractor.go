// Package metadata pulls best-effort capture metadata (timestamp, GPS
// coordinates, camera identifier) out of validated media files. Extraction
// never fails the pipeline: any internal error degrades to an empty result.
package metadata

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sessionkit/asset-ingest/pkg/assetingest"
)

// Extractor implements assetingest.Extractor over EXIF and ISO-BMFF
// containers.
type Extractor struct{}

// New creates a metadata extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract parses metadata from the file at path according to its validated
// MIME type. A nil result means no metadata, which is the expected outcome
// for most audio and many images.
func (e *Extractor) Extract(ctx context.Context, path, mimeType string) *assetingest.ExtractedMetadata {
	mime := strings.ToLower(mimeType)

	var meta *assetingest.ExtractedMetadata
	switch {
	case strings.HasPrefix(mime, "image/"):
		meta = e.fromImage(path)
	case strings.HasPrefix(mime, "video/"), mime == "audio/mp4", mime == "audio/x-m4a":
		meta = e.fromContainer(path)
	default:
		return nil
	}

	if meta.Empty() {
		return nil
	}
	return meta
}

func logExtractionFailure(path string, err error) {
	// Swallowed by contract; debug level only.
	slog.Debug("metadata extraction failed", "path", path, "error", err)
}
