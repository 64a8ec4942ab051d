package assetingest

import (
	"errors"
	"io"
)

// UploadAssetRequest carries everything needed to ingest one uploaded file.
type UploadAssetRequest struct {
	SessionID    string    // owning session public id
	OwnerID      string    // uploading user id
	SpotID       *string   // optional spot association
	Type         AssetType // IMAGE or AUDIO
	Filename     string    // client-supplied original filename
	DeclaredMime string    // client-declared content type
	Reader       io.Reader // untrusted upload stream

	// DeviceLocation is the client-reported capture location, used only when
	// the file itself carries no coordinates.
	DeviceLocation *GeoPoint
}

// Validate checks the request's structural fields. Content validation of the
// stream itself is the Validator's job.
func (r UploadAssetRequest) Validate() error {
	if r.SessionID == "" {
		return errors.New("session id is required")
	}
	if r.OwnerID == "" {
		return errors.New("owner id is required")
	}
	if r.Type != AssetTypeImage && r.Type != AssetTypeAudio {
		return errors.New("asset type must be IMAGE or AUDIO")
	}
	if r.Filename == "" {
		return errors.New("filename is required")
	}
	if r.Reader == nil {
		return errors.New("upload stream is required")
	}
	return nil
}
