// Package api exposes the asset ingestion service over HTTP.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/sessionkit/asset-ingest/pkg/assetingest"
)

// multipartMemoryLimit bounds how much of a multipart body is buffered in
// memory; the rest spills to disk.
const multipartMemoryLimit = 4 << 20

// AssetHandler handles HTTP requests for assets using pkg/assetingest
type AssetHandler struct {
	service assetingest.Service
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(service assetingest.Service) *AssetHandler {
	return &AssetHandler{service: service}
}

// Routes returns the routes for assets
func (h *AssetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/sessions/{sessionPublicID}", func(r chi.Router) {
		r.Post("/assets", h.UploadAsset)
		r.Get("/assets", h.ListSessionAssets)
		r.Get("/assets/count", h.CountSessionAssets)
		r.Get("/latest-thumbnail/{size}", h.LatestSessionThumbnail)
	})

	r.Route("/assets/{publicID}", func(r chi.Router) {
		r.Get("/", h.GetAsset)
		r.Delete("/", h.DeleteAsset)
		r.Get("/original", h.DownloadOriginal)
		r.Get("/thumbnails/{size}", h.DownloadThumbnail)
		r.Patch("/status", h.UpdateStatus)
	})

	return r
}

// AssetResponse is the response body for an asset
type AssetResponse struct {
	PublicID         string                         `json:"public_id"`
	SessionID        string                         `json:"session_id"`
	OwnerID          string                         `json:"owner_id"`
	SpotID           *string                        `json:"spot_id,omitempty"`
	Type             string                         `json:"type"`
	Status           string                         `json:"status"`
	MimeType         string                         `json:"mime_type,omitempty"`
	OriginalFilename string                         `json:"original_filename,omitempty"`
	LocationSource   string                         `json:"location_source"`
	Metadata         *assetingest.ExtractedMetadata `json:"metadata,omitempty"`
	DeviceLocation   *assetingest.GeoPoint          `json:"device_location,omitempty"`
	Thumbnails       []string                       `json:"thumbnails"`
	CreatedAt        time.Time                      `json:"created_at"`
	UpdatedAt        time.Time                      `json:"updated_at"`
}

func toAssetResponse(a *assetingest.Asset) AssetResponse {
	sizes := make([]string, 0, len(a.Thumbnails))
	for _, t := range a.Thumbnails {
		sizes = append(sizes, string(t.Size))
	}
	return AssetResponse{
		PublicID:         a.PublicID,
		SessionID:        a.SessionID,
		OwnerID:          a.OwnerID,
		SpotID:           a.SpotID,
		Type:             string(a.Type),
		Status:           string(a.Status),
		MimeType:         a.MimeType,
		OriginalFilename: a.OriginalFilename,
		LocationSource:   string(a.LocationSource),
		Metadata:         a.Metadata,
		DeviceLocation:   a.DeviceLocation,
		Thumbnails:       sizes,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// UploadAsset ingests one multipart upload. The file arrives in the "file"
// part; "ownerId" and "type" arrive as form fields.
func (h *AssetHandler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionPublicID")

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		renderError(w, r, assetingest.WrapUploadError(
			assetingest.KindBadInput, assetingest.CodeUploadFailed, "invalid multipart body", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		renderError(w, r, assetingest.NewUploadError(
			assetingest.KindBadInput, assetingest.CodeUploadFailed, "missing file part"))
		return
	}
	defer file.Close()

	assetType, ok := assetingest.ParseAssetType(r.FormValue("type"))
	if !ok {
		renderError(w, r, assetingest.NewUploadError(
			assetingest.KindBadInput, assetingest.CodeUploadFailed, "type must be IMAGE or AUDIO"))
		return
	}

	req := assetingest.UploadAssetRequest{
		SessionID:    sessionID,
		OwnerID:      r.FormValue("ownerId"),
		Type:         assetType,
		Filename:     header.Filename,
		DeclaredMime: header.Header.Get("Content-Type"),
		Reader:       file,
	}
	if spotID := r.FormValue("spotId"); spotID != "" {
		req.SpotID = &spotID
	}

	asset, err := h.service.UploadAsset(r.Context(), req)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toAssetResponse(asset))
}

// GetAsset returns one asset record.
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.service.GetAssetByPublicID(r.Context(), chi.URLParam(r, "publicID"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, toAssetResponse(asset))
}

// DeleteAsset removes an asset and its blobs.
func (h *AssetHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "publicID")
	if err := h.service.DeleteAsset(r.Context(), publicID); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": "deleted", "public_id": publicID})
}

// DownloadOriginal streams the validated original bytes.
func (h *AssetHandler) DownloadOriginal(w http.ResponseWriter, r *http.Request) {
	rc, asset, err := h.service.OpenOriginal(r.Context(), chi.URLParam(r, "publicID"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	defer rc.Close()

	streamBlob(w, rc, asset.MimeType)
}

// DownloadThumbnail streams one derivative size.
func (h *AssetHandler) DownloadThumbnail(w http.ResponseWriter, r *http.Request) {
	size, ok := parseThumbnailSize(chi.URLParam(r, "size"))
	if !ok {
		renderError(w, r, assetingest.NewUploadError(
			assetingest.KindBadInput, assetingest.CodeUploadFailed, "unknown thumbnail size"))
		return
	}

	rc, _, err := h.service.OpenThumbnail(r.Context(), chi.URLParam(r, "publicID"), size)
	if err != nil {
		renderError(w, r, err)
		return
	}
	defer rc.Close()

	streamBlob(w, rc, "image/jpeg")
}

// ListSessionAssets returns a session's assets, newest first.
func (h *AssetHandler) ListSessionAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.ListSessionAssets(r.Context(), chi.URLParam(r, "sessionPublicID"))
	if err != nil {
		renderError(w, r, err)
		return
	}

	resp := make([]AssetResponse, 0, len(assets))
	for _, a := range assets {
		resp = append(resp, toAssetResponse(a))
	}
	render.JSON(w, r, resp)
}

// CountSessionAssets returns a session's asset count.
func (h *AssetHandler) CountSessionAssets(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountSessionAssets(r.Context(), chi.URLParam(r, "sessionPublicID"))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]int64{"count": count})
}

// LatestSessionThumbnail streams the requested size of the newest session
// asset that has one.
func (h *AssetHandler) LatestSessionThumbnail(w http.ResponseWriter, r *http.Request) {
	size, ok := parseThumbnailSize(chi.URLParam(r, "size"))
	if !ok {
		renderError(w, r, assetingest.NewUploadError(
			assetingest.KindBadInput, assetingest.CodeUploadFailed, "unknown thumbnail size"))
		return
	}

	rc, _, err := h.service.LatestSessionThumbnail(r.Context(), chi.URLParam(r, "sessionPublicID"), size)
	if err != nil {
		renderError(w, r, err)
		return
	}
	defer rc.Close()

	streamBlob(w, rc, "image/jpeg")
}

// UpdateStatusRequest is the request body for a status change
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus advances an asset's lifecycle status.
func (h *AssetHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, assetingest.WrapUploadError(
			assetingest.KindBadInput, assetingest.CodeUploadFailed, "invalid request body", err))
		return
	}

	asset, err := h.service.UpdateAssetStatus(r.Context(),
		chi.URLParam(r, "publicID"), assetingest.AssetStatus(strings.ToUpper(req.Status)))
	if err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, toAssetResponse(asset))
}

func parseThumbnailSize(s string) (assetingest.ThumbnailSize, bool) {
	switch strings.ToUpper(s) {
	case string(assetingest.ThumbSize320):
		return assetingest.ThumbSize320, true
	case string(assetingest.ThumbSize640):
		return assetingest.ThumbSize640, true
	}
	return "", false
}

func streamBlob(w http.ResponseWriter, rc io.Reader, contentType string) {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, rc); err != nil {
		// Headers are gone; the client sees a truncated body.
		slog.Error("failed to stream blob", "error", err)
	}
}

// ErrorResponse is the wire shape for every failure.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// renderError maps domain errors onto HTTP statuses.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var uploadErr *assetingest.UploadError
	if errors.As(err, &uploadErr) {
		render.Status(r, statusForKind(uploadErr.Kind))
		render.JSON(w, r, ErrorResponse{Code: uploadErr.Code, Message: uploadErr.Message})
		return
	}

	switch {
	case errors.Is(err, assetingest.ErrAssetNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Code: assetingest.CodeAssetNotFound, Message: "asset not found"})
	case errors.Is(err, assetingest.ErrThumbnailNotReady):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Code: assetingest.CodeThumbnailNotReady, Message: err.Error()})
	case errors.Is(err, assetingest.ErrBlobNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Code: assetingest.CodeBlobNotFound, Message: err.Error()})
	case errors.Is(err, assetingest.ErrInvalidStatusTransition):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, ErrorResponse{Code: "INVALID_STATUS_TRANSITION", Message: err.Error()})
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Code: assetingest.CodeUploadFailed, Message: "internal error"})
	}
}

func statusForKind(kind assetingest.ErrorKind) int {
	switch kind {
	case assetingest.KindBadInput:
		return http.StatusBadRequest
	case assetingest.KindUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case assetingest.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case assetingest.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
