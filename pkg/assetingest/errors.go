package assetingest

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrAssetNotFound indicates an asset record was not found
	ErrAssetNotFound = errors.New("asset not found")

	// ErrBlobNotFound indicates a blob was not found under its storage key.
	// Deletion flows surface this distinctly so callers can decide whether
	// "already gone" is acceptable.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrThumbnailNotReady indicates the requested derivative size has not
	// been generated yet
	ErrThumbnailNotReady = errors.New("thumbnail not ready")

	// ErrInvalidStatusTransition indicates a lifecycle change that would
	// break monotonicity
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// ErrorKind classifies an upload failure independent of any transport.
type ErrorKind string

// Error kind constants (typed).
const (
	KindBadInput         ErrorKind = "bad_input"
	KindUnsupportedMedia ErrorKind = "unsupported_media"
	KindTooLarge         ErrorKind = "too_large"
	KindNotFound         ErrorKind = "not_found"
	KindInternal         ErrorKind = "internal"
)

// Machine-readable failure codes for client-side branching.
const (
	CodeUnsupportedExtension = "UNSUPPORTED_EXTENSION"
	CodeUnsupportedMime      = "UNSUPPORTED_MIME_TYPE"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeSignatureMismatch    = "SIGNATURE_MISMATCH"
	CodeAssetNotFound        = "ASSET_NOT_FOUND"
	CodeThumbnailNotReady    = "THUMBNAIL_NOT_READY"
	CodeBlobNotFound         = "BLOB_NOT_FOUND"
	CodeStorageFailure       = "STORAGE_FAILURE"
	CodeUploadFailed         = "ASSET_UPLOAD_ERROR"
)

// UploadError represents a rejected or failed upload. Kind carries the
// HTTP-agnostic status class, Code the stable machine-readable identifier.
type UploadError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// NewUploadError builds an UploadError without a cause.
func NewUploadError(kind ErrorKind, code, message string) *UploadError {
	return &UploadError{Kind: kind, Code: code, Message: message}
}

// WrapUploadError builds an UploadError around an underlying cause.
func WrapUploadError(kind ErrorKind, code, message string, err error) *UploadError {
	return &UploadError{Kind: kind, Code: code, Message: message, Err: err}
}

// StorageError represents an error related to blob storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
