// Package storage connects to the object storage that keeps model weights
package storage

import (
	"context"
	"log"
	"time"

	"github.com/UnendingLoop/BackgroundRemover/internal/storage/miniostorage"
	"github.com/wb-go/wbf/config"
)

// NewModelStorage retries until MinIO answers or ctx is done; nil is returned when MINIO_ENDPOINT is empty
func NewModelStorage(ctx context.Context, cfg *config.Config, delay time.Duration) *miniostorage.MinioWeightsStorage {
	if cfg.GetString("MINIO_ENDPOINT") == "" {
		log.Println("MINIO_ENDPOINT is empty, model weights are expected in MODEL_DIR")
		return nil
	}

	for {
		log.Println("Connecting to model storage...")
		client, err := miniostorage.NewMinioClient(cfg)
		if err == nil {
			log.Println("Successfully connected model storage!")
			return client
		}
		log.Printf("Failed to init connection to model storage: %v\nNext retry in %v...", err, delay)

		select {
		case <-ctx.Done():
			log.Println("Model storage connection canceled")
			return nil
		case <-time.After(delay):
		}
	}
}
