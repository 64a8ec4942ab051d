package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionkit/asset-ingest/pkg/assetingest"
	repomemory "github.com/sessionkit/asset-ingest/pkg/assetingest/repo/memory"
	storagememory "github.com/sessionkit/asset-ingest/pkg/assetingest/storage/memory"
)

// setupAssetHandlerTest creates an AssetHandler with in-memory collaborators.
func setupAssetHandlerTest(t *testing.T) (chi.Router, assetingest.Service) {
	t.Helper()

	repo := repomemory.New()
	store := storagememory.New()
	validator, err := assetingest.NewUploadValidator(t.TempDir(), 0)
	require.NoError(t, err)

	service, err := assetingest.New(
		assetingest.WithRepository(repo),
		assetingest.WithBlobStore(store),
		assetingest.WithValidator(validator),
	)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Mount("/", NewAssetHandler(service).Routes())
	return router, service
}

func multipartUpload(t *testing.T, filename, contentType string, payload []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)

	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func jpegPayload() []byte {
	return append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{7}, 32)...)
}

func uploadTestAsset(t *testing.T, router chi.Router, sessionID string) AssetResponse {
	t.Helper()

	body, contentType := multipartUpload(t, "photo.jpg", "image/jpeg", jpegPayload(),
		map[string]string{"ownerId": "owner-1", "type": "IMAGE"})

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/assets", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp AssetResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestUploadAsset_Success(t *testing.T) {
	router, _ := setupAssetHandlerTest(t)

	resp := uploadTestAsset(t, router, "sess-1")

	assert.NotEmpty(t, resp.PublicID)
	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, "owner-1", resp.OwnerID)
	assert.Equal(t, "IMAGE", resp.Type)
	assert.Equal(t, "RAW", resp.Status)
	assert.Equal(t, "image/jpeg", resp.MimeType)
	assert.Equal(t, "photo.jpg", resp.OriginalFilename)
	assert.Empty(t, resp.Thumbnails)
}

func TestUploadAsset_MissingFilePart(t *testing.T) {
	router, _ := setupAssetHandlerTest(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("ownerId", "owner-1"))
	require.NoError(t, w.WriteField("type", "IMAGE"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/sessions/sess-1/assets", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadAsset_BadType(t *testing.T) {
	router, _ := setupAssetHandlerTest(t)

	body, contentType := multipartUpload(t, "photo.jpg", "image/jpeg", jpegPayload(),
		map[string]string{"ownerId": "owner-1", "type": "VIDEO"})

	req := httptest.NewRequest(http.MethodPost, "/sessions/sess-1/assets", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadAsset_SignatureMismatch(t *testing.T) {
	router, _ := setupAssetHandlerTest(t)

	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 13}
	body, contentType := multipartUpload(t, "photo.jpg", "image/jpeg", png,
		map[string]string{"ownerId": "owner-1", "type": "IMAGE"})

	req := httptest.NewRequest(http.MethodPost, "/sessions/sess-1/assets", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, assetingest.CodeSignatureMismatch, errResp.Code)
}

func TestGetAsset(t *testing.T) {
	router, _ := setupAssetHandlerTest(t)
	uploaded := uploadTestAsset(t, router, "sess-1")

	req := httptest.NewRequest(http.MethodGet, "/assets/"+uploaded.PublicID+"/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AssetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uploaded.PublicID, resp.PublicID)
}

func TestGetAsset_NotFound(t *testing.T) {
	router, _ := setupAssetHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/assets/missing/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, assetingest.CodeAssetNotFound, errResp.Code)
}

func TestDownloadOriginal(t *testing.T) {
	router, _ := setupAssetHandlerTest(t)
	uploaded := uploadTestAsset(t, router, "sess-1")

	req := httptest.NewRequest(http.MethodGet, "/assets/"+uploaded.PublicID+"/original", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	data, _ := io.ReadAll(rec.Body)
	assert.Equal(t, jpegPayload(), data)
}

func TestDownloadThumbnail_NotReady(t *testing.T) {
	router, _ := setupAssetHandlerTest(t)
	uploaded := uploadTestAsset(t, router, "sess-1")

	req := httptest.NewRequest(http.MethodGet, "/assets/"+uploaded.PublicID+"/thumbnails/THUMB_320", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Pending thumbnails are distinguishable from missing assets.
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, assetingest.CodeThumbnailNotReady, errResp.Code)
}

func TestDownloadThumbnail_UnknownSize(t *testing.T) {
	router, _ := setupAssetHandlerTest(t)
	uploaded := uploadTestAsset(t, router, "sess-1")

	req := httptest.NewRequest(http.MethodGet, "/assets/"+uploaded.PublicID+"/thumbnails/THUMB_128", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAsset(t *testing.T) {
	router, _ := setupAssetHandlerTest(t)
	uploaded := uploadTestAsset(t, router, "sess-1")

	req := httptest.NewRequest(http.MethodDelete, "/assets/"+uploaded.PublicID+"/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/assets/"+uploaded.PublicID+"/", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAndCountSessionAssets(t *testing.T) {
	router, _ := setupAssetHandlerTest(t)
	uploadTestAsset(t, router, "sess-1")
	uploadTestAsset(t, router, "sess-1")
	uploadTestAsset(t, router, "sess-2")

	req := httptest.NewRequest(http.MethodGet, "/sessions/sess-1/assets", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []AssetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	req = httptest.NewRequest(http.MethodGet, "/sessions/sess-1/assets/count", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var count map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &count))
	assert.Equal(t, int64(2), count["count"])
}

func TestUpdateStatus(t *testing.T) {
	router, _ := setupAssetHandlerTest(t)
	uploaded := uploadTestAsset(t, router, "sess-1")

	body, _ := json.Marshal(UpdateStatusRequest{Status: "vectorized"})
	req := httptest.NewRequest(http.MethodPatch, "/assets/"+uploaded.PublicID+"/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AssetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VECTORIZED", resp.Status)

	// A backwards transition conflicts.
	body, _ = json.Marshal(UpdateStatusRequest{Status: "RAW"})
	req = httptest.NewRequest(http.MethodPatch, "/assets/"+uploaded.PublicID+"/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
