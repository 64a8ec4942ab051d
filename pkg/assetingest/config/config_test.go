package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	assert.Equal(t, 2, cfg.ThumbnailWorkers)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate Option
	}{
		{"empty port", func(c *ServerConfig) error { c.Port = ""; return nil }},
		{"bad database type", func(c *ServerConfig) error { c.DatabaseType = "mongo"; return nil }},
		{"postgres without url", func(c *ServerConfig) error { c.DatabaseType = "postgres"; return nil }},
		{"bad storage backend", func(c *ServerConfig) error { c.StorageBackend = "tape"; return nil }},
		{"fs without root", func(c *ServerConfig) error {
			c.StorageBackend = "fs"
			c.StorageRoot = ""
			return nil
		}},
		{"s3 without bucket", func(c *ServerConfig) error { c.StorageBackend = "s3"; return nil }},
		{"empty scratch dir", func(c *ServerConfig) error { c.ScratchDir = ""; return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.mutate)
			assert.Error(t, err)
		})
	}
}

func TestBuildMemoryService(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(func(c *ServerConfig) error {
		c.ScratchDir = filepath.Join(dir, "scratch")
		return nil
	})
	require.NoError(t, err)

	srv, err := cfg.Build()
	require.NoError(t, err)
	defer srv.Close()

	assert.NotNil(t, srv.Service)
	assert.NotNil(t, srv.Pipeline)
}

func TestBuildFSService(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(func(c *ServerConfig) error {
		c.StorageBackend = "fs"
		c.StorageRoot = filepath.Join(dir, "storage")
		c.ScratchDir = filepath.Join(dir, "scratch")
		return nil
	})
	require.NoError(t, err)

	srv, err := cfg.Build()
	require.NoError(t, err)
	require.NoError(t, srv.Close())
}
