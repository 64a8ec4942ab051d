package assetingest

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// AssetType is the domain type for the kind of media an asset holds.
type AssetType string

// Asset type constants (typed).
const (
	AssetTypeImage AssetType = "IMAGE"
	AssetTypeAudio AssetType = "AUDIO"
)

// ParseAssetType maps a wire-format string onto an AssetType.
func ParseAssetType(s string) (AssetType, bool) {
	switch AssetType(strings.ToUpper(strings.TrimSpace(s))) {
	case AssetTypeImage:
		return AssetTypeImage, true
	case AssetTypeAudio:
		return AssetTypeAudio, true
	}
	return "", false
}

// AssetStatus is the domain type for asset lifecycle states. Every asset
// starts at RAW; downstream processors move it forward and never back.
type AssetStatus string

// Asset status constants (typed).
const (
	AssetStatusRaw         AssetStatus = "RAW"
	AssetStatusVectorized  AssetStatus = "VECTORIZED"
	AssetStatusTranscribed AssetStatus = "TRANSCRIBED"
	AssetStatusError       AssetStatus = "ERROR"
)

var statusRank = map[AssetStatus]int{
	AssetStatusRaw:         0,
	AssetStatusVectorized:  1,
	AssetStatusTranscribed: 2,
	AssetStatusError:       3,
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle
// monotonic. RAW is a starting state only; no processor may revert to it.
func (s AssetStatus) CanTransitionTo(next AssetStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// LocationSource records where an asset's location came from.
type LocationSource string

// Location source constants (typed).
const (
	LocationSourceUnknown LocationSource = "UNKNOWN"
	LocationSourceExif    LocationSource = "EXIF"
	LocationSourceDevice  LocationSource = "DEVICE"
)

// ThumbnailSize identifies one of the fixed, process-wide derivative sizes.
type ThumbnailSize string

// Thumbnail size constants (typed).
const (
	ThumbSize320 ThumbnailSize = "THUMB_320"
	ThumbSize640 ThumbnailSize = "THUMB_640"
)

// KeyName returns the size name as used in derivative storage keys.
func (s ThumbnailSize) KeyName() string {
	return strings.ToLower(string(s))
}

// ThumbnailSpec pairs a size name with its bounding dimension. The set of
// specs is fixed per process and does not vary per asset.
type ThumbnailSpec struct {
	Size         ThumbnailSize
	MaxDimension int
}

// DefaultThumbnailSpecs returns the built-in derivative sizes, ordered
// smallest first.
func DefaultThumbnailSpecs() []ThumbnailSpec {
	return []ThumbnailSpec{
		{Size: ThumbSize320, MaxDimension: 320},
		{Size: ThumbSize640, MaxDimension: 640},
	}
}

// Thumbnail describes one stored derivative of an asset's original bytes.
type Thumbnail struct {
	Size       ThumbnailSize `json:"size"`
	StorageKey string        `json:"storage_key"`
}

// GeoPoint is a signed decimal-degree coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ExtractedMetadata holds best-effort metadata pulled from an uploaded file.
// Every field is independently optional.
type ExtractedMetadata struct {
	TakenAt *time.Time `json:"taken_at,omitempty"`
	Lat     *float64   `json:"lat,omitempty"`
	Lng     *float64   `json:"lng,omitempty"`
	Camera  string     `json:"camera,omitempty"`
}

// Empty reports whether nothing at all was extracted.
func (m *ExtractedMetadata) Empty() bool {
	if m == nil {
		return true
	}
	return m.TakenAt == nil && m.Lat == nil && m.Lng == nil && m.Camera == ""
}

// HasLocation reports whether both coordinates are present.
func (m *ExtractedMetadata) HasLocation() bool {
	return m != nil && m.Lat != nil && m.Lng != nil
}

// Asset represents one uploaded media item. Its StorageKey always points at
// bytes that passed validation, and its thumbnail list never carries two
// descriptors of the same size.
type Asset struct {
	ID               uuid.UUID          `json:"id"`
	PublicID         string             `json:"public_id"`
	SessionID        string             `json:"session_id"`
	OwnerID          string             `json:"owner_id"`
	SpotID           *string            `json:"spot_id,omitempty"`
	Type             AssetType          `json:"type"`
	Status           AssetStatus        `json:"status"`
	MimeType         string             `json:"mime_type,omitempty"`
	OriginalFilename string             `json:"original_filename,omitempty"`
	StorageKey       string             `json:"storage_key"`
	LocationSource   LocationSource     `json:"location_source"`
	Metadata         *ExtractedMetadata `json:"metadata,omitempty"`
	DeviceLocation   *GeoPoint          `json:"device_location,omitempty"`
	Thumbnails       []Thumbnail        `json:"thumbnails"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// ThumbnailBySize returns the descriptor for the given size, if present.
func (a *Asset) ThumbnailBySize(size ThumbnailSize) (Thumbnail, bool) {
	for _, t := range a.Thumbnails {
		if t.Size == size && t.StorageKey != "" {
			return t, true
		}
	}
	return Thumbnail{}, false
}
