package metadata

import (
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/sessionkit/asset-ingest/pkg/assetingest"
)

// fromImage parses embedded EXIF: original-capture timestamp, GPS latitude
// and longitude in signed decimal degrees, and a camera label joined from
// make and model.
func (e *Extractor) fromImage(path string) *assetingest.ExtractedMetadata {
	f, err := os.Open(path)
	if err != nil {
		logExtractionFailure(path, err)
		return nil
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		logExtractionFailure(path, err)
		return nil
	}

	var meta assetingest.ExtractedMetadata
	if takenAt, err := x.DateTime(); err == nil {
		meta.TakenAt = &takenAt
	}
	if lat, lng, err := x.LatLong(); err == nil {
		meta.Lat = &lat
		meta.Lng = &lng
	}
	meta.Camera = cameraLabel(tagString(x, exif.Make), tagString(x, exif.Model))
	return &meta
}

func tagString(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// cameraLabel joins make and model with a space, omitting whichever is
// absent.
func cameraLabel(maker, model string) string {
	var parts []string
	if maker != "" {
		parts = append(parts, maker)
	}
	if model != "" {
		parts = append(parts, model)
	}
	return strings.Join(parts, " ")
}
