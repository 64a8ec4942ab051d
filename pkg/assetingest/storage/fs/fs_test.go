package fs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sessionkit/asset-ingest/pkg/assetingest"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	key := "image/2025/3/asset_2025_3_original_ab12cd34.jpg"

	data := []byte("hello fs")
	if err := backend.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		t.Fatalf("upload: %v", err)
	}

	meta, err := backend.GetObjectMeta(ctx, key)
	if err != nil {
		t.Fatalf("get meta: %v", err)
	}
	if meta.Size != int64(len(data)) {
		t.Fatalf("expected size %d, got %d", len(data), meta.Size)
	}

	rc, err := backend.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != string(data) {
		t.Fatalf("download mismatch: %q", string(got))
	}

	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, key)); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	// Empty shard directories disappear with their last blob.
	if _, err := os.Stat(filepath.Join(tmp, "image")); !os.IsNotExist(err) {
		t.Fatalf("expected empty directories removed, stat err=%v", err)
	}
}

func TestFSBackend_NotFound(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()

	if _, err := backend.Download(ctx, "missing/key.jpg"); !errors.Is(err, assetingest.ErrBlobNotFound) {
		t.Fatalf("download: expected ErrBlobNotFound, got %v", err)
	}
	if err := backend.Delete(ctx, "missing/key.jpg"); !errors.Is(err, assetingest.ErrBlobNotFound) {
		t.Fatalf("delete: expected ErrBlobNotFound, got %v", err)
	}
	if _, err := backend.GetObjectMeta(ctx, "missing/key.jpg"); !errors.Is(err, assetingest.ErrBlobNotFound) {
		t.Fatalf("get meta: expected ErrBlobNotFound, got %v", err)
	}
}

func TestFSBackend_RequiresBaseDir(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty base dir")
	}
}
