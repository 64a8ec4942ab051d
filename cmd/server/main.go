package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/sessionkit/asset-ingest/pkg/assetingest/api"
	"github.com/sessionkit/asset-ingest/pkg/assetingest/config"
)

// Config is the environment-driven server configuration.
type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"`
	DatabaseURL  string `env:"DATABASE_URL" env-default:""`

	StorageBackend string `env:"STORAGE_BACKEND" env-default:"fs"`
	StorageRoot    string `env:"STORAGE_ROOT" env-default:"./data/storage"`
	ScratchDir     string `env:"SCRATCH_DIR" env-default:"./data/scratch"`

	S3Region                 string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	S3Bucket                 string `env:"AWS_S3_BUCKET" env-default:""`
	S3AccessKeyID            string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	S3SecretAccessKey        string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	S3Endpoint               string `env:"AWS_S3_ENDPOINT" env-default:""`
	S3UsePathStyle           bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	S3CreateBucketIfNotExist bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`

	MaxUploadBytes     int64 `env:"MAX_UPLOAD_BYTES" env-default:"10485760"`
	ThumbnailQuality   int   `env:"THUMBNAIL_QUALITY" env-default:"85"`
	ThumbnailWorkers   int   `env:"THUMBNAIL_WORKERS" env-default:"2"`
	ThumbnailQueueSize int   `env:"THUMBNAIL_QUEUE_SIZE" env-default:"100"`
}

func main() {
	var envCfg Config
	if err := cleanenv.ReadEnv(&envCfg); err != nil {
		slog.Error("failed to read environment", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(func(c *config.ServerConfig) error {
		c.Port = envCfg.Port
		c.Environment = envCfg.Environment
		c.DatabaseType = envCfg.DatabaseType
		c.DatabaseURL = envCfg.DatabaseURL
		c.StorageBackend = envCfg.StorageBackend
		c.StorageRoot = envCfg.StorageRoot
		c.ScratchDir = envCfg.ScratchDir
		c.S3Region = envCfg.S3Region
		c.S3Bucket = envCfg.S3Bucket
		c.S3AccessKeyID = envCfg.S3AccessKeyID
		c.S3SecretAccessKey = envCfg.S3SecretAccessKey
		c.S3Endpoint = envCfg.S3Endpoint
		c.S3UsePathStyle = envCfg.S3UsePathStyle
		c.S3CreateBucketIfNotExist = envCfg.S3CreateBucketIfNotExist
		c.MaxUploadBytes = envCfg.MaxUploadBytes
		c.ThumbnailQuality = envCfg.ThumbnailQuality
		c.ThumbnailWorkers = envCfg.ThumbnailWorkers
		c.ThumbnailQueueSize = envCfg.ThumbnailQueueSize
		return nil
	})
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if cfg.DatabaseType == "postgres" {
		if err := config.PingPostgres(cfg.DatabaseURL); err != nil {
			slog.Error("database not reachable", "error", err)
			os.Exit(1)
		}
	}

	srv, err := cfg.Build()
	if err != nil {
		slog.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	assetHandler := api.NewAssetHandler(srv.Service)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/", assetHandler.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "storage", cfg.StorageBackend, "database", cfg.DatabaseType)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Drain in-flight thumbnail jobs before exiting.
	if err := srv.Close(); err != nil {
		slog.Warn("failed to drain thumbnail pipeline", "error", err)
	}

	slog.Info("server exiting")
}
