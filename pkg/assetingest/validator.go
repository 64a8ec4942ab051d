package assetingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sessionkit/asset-ingest/pkg/assetingest/sniff"
)

// DefaultMaxUploadBytes is the upload size ceiling applied when none is
// configured.
const DefaultMaxUploadBytes int64 = 10 * 1024 * 1024

var allowedExtensions = map[string]struct{}{
	"jpg": {}, "jpeg": {}, "png": {}, "heic": {},
	"mp3": {}, "m4a": {}, "wav": {}, "mp4": {},
}

var allowedMimeTypes = map[string]struct{}{
	"image/jpeg": {}, "image/png": {}, "image/heic": {}, "image/heif": {},
	"audio/mpeg": {}, "audio/mp4": {}, "audio/x-m4a": {}, "audio/wav": {},
	"video/mp4": {},
}

// ValidatedUpload is the request-scoped handle to a validated temp file.
// Ownership transfers to the caller on success; the caller must guarantee
// eventual Discard, typically after blob storage completes.
type ValidatedUpload struct {
	Path             string
	MimeType         string
	OriginalFilename string
	Extension        string
	Size             int64
}

// Open returns the validated bytes for reading.
func (v *ValidatedUpload) Open() (io.ReadCloser, error) {
	return os.Open(v.Path)
}

// Discard removes the temp file. Discarding an already-removed file is not
// an error.
func (v *ValidatedUpload) Discard() error {
	if err := os.Remove(v.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// UploadValidator checks an untrusted upload stream against the extension
// and MIME allow-lists, materializes it to scratch storage, enforces the
// size ceiling and verifies the magic-byte signature.
type UploadValidator struct {
	scratchDir string
	maxBytes   int64
}

// NewUploadValidator builds a validator writing temp files under scratchDir,
// creating the directory if absent. maxBytes <= 0 selects the default
// ceiling.
func NewUploadValidator(scratchDir string, maxBytes int64) (*UploadValidator, error) {
	if scratchDir == "" {
		return nil, errors.New("scratch directory is required")
	}
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadValidator{scratchDir: scratchDir, maxBytes: maxBytes}, nil
}

// Validate runs the validation pipeline. Failure modes in order:
// UNSUPPORTED_EXTENSION, UNSUPPORTED_MIME_TYPE, PAYLOAD_TOO_LARGE,
// SIGNATURE_MISMATCH. After the stream has been materialized, every failure
// path removes the temp file before the error propagates.
func (v *UploadValidator) Validate(ctx context.Context, reader io.Reader, filename, declaredMime string) (*ValidatedUpload, error) {
	ext := extensionOf(filename)
	if _, ok := allowedExtensions[ext]; !ok {
		return nil, NewUploadError(KindUnsupportedMedia, CodeUnsupportedExtension,
			fmt.Sprintf("not supported extension: .%s", ext))
	}

	mime := normalizeMime(declaredMime)
	if mime == "" {
		return nil, NewUploadError(KindUnsupportedMedia, CodeUnsupportedMime, "no content type")
	}
	if _, ok := allowedMimeTypes[mime]; !ok {
		return nil, NewUploadError(KindUnsupportedMedia, CodeUnsupportedMime,
			fmt.Sprintf("not supported content type %s", mime))
	}

	tmp, err := os.CreateTemp(v.scratchDir, "upload-*-"+sanitizeFilename(filepath.Base(filename)))
	if err != nil {
		return nil, WrapUploadError(KindInternal, CodeUploadFailed, "failed to create temp file", err)
	}
	tmpPath := tmp.Name()

	// Fully consume the input: the signature check needs the bytes on disk
	// and the size check must measure the persisted size, not a
	// client-supplied header.
	size, err := io.Copy(tmp, &contextReader{ctx: ctx, r: reader})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		removeTemp(tmpPath)
		return nil, WrapUploadError(KindBadInput, CodeUploadFailed, "can't validate file", err)
	}

	if size > v.maxBytes {
		removeTemp(tmpPath)
		return nil, NewUploadError(KindTooLarge, CodePayloadTooLarge,
			fmt.Sprintf("max file size %d bytes", v.maxBytes))
	}

	header, err := readHeader(tmpPath)
	if err != nil {
		removeTemp(tmpPath)
		return nil, WrapUploadError(KindBadInput, CodeUploadFailed, "can't validate file", err)
	}
	if !sniff.Matches(header, mime) {
		removeTemp(tmpPath)
		// Audit trail: a signature mismatch means the declared type lies
		// about the content.
		slog.Info("upload rejected: file signature does not match content type",
			"filename", filename, "declared_mime", mime)
		return nil, NewUploadError(KindUnsupportedMedia, CodeSignatureMismatch,
			fmt.Sprintf("file signature is not equal content type: %s", mime))
	}

	return &ValidatedUpload{
		Path:             tmpPath,
		MimeType:         mime,
		OriginalFilename: filename,
		Extension:        ext,
		Size:             size,
	}, nil
}

func extensionOf(filename string) string {
	ext := filepath.Ext(filename)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// normalizeMime lowercases a declared content type and strips parameters
// such as "; charset=...".
func normalizeMime(declared string) string {
	mime, _, _ := strings.Cut(declared, ";")
	return strings.ToLower(strings.TrimSpace(mime))
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer("*", "_", "?", "_", " ", "_")
	return replacer.Replace(name)
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, sniff.HeaderLen)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return header[:n], nil
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove temp file", "path", path, "error", err)
	}
}

// contextReader aborts an in-flight copy when the request context is
// cancelled, so a stalled client cannot hold a scratch file open
// indefinitely.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
