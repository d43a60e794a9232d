package segment

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
)

// WeightsSource - контракт хранилища, из которого докачиваются веса моделей
type WeightsSource interface {
	Get(ctx context.Context, key string) (output io.ReadCloser, ctype string, err error)
}

func WeightsKey(id model.ModelID) string {
	return string(id) + ".onnx"
}

// EnsureWeights returns the local path of the model file, fetching it from src when it is not on disk yet.
func EnsureWeights(ctx context.Context, dir string, id model.ModelID, src WeightsSource) (string, error) {
	path := filepath.Join(dir, WeightsKey(id))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if src == nil {
		return "", fmt.Errorf("weights for model %q not found in %q and no weights storage configured", id, dir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create model dir: %w", err)
	}

	log.Printf("Fetching weights %q from storage...", WeightsKey(id))
	r, _, err := src.Get(ctx, WeightsKey(id))
	if err != nil {
		return "", fmt.Errorf("failed to fetch weights for model %q: %w", id, err)
	}
	defer closeFileFlow(r)

	// качаем во временный файл, чтобы оборванная загрузка не выглядела как готовые веса
	tmp, err := os.CreateTemp(dir, WeightsKey(id)+".*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for weights: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to download weights for model %q: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to flush weights for model %q: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move weights for model %q in place: %w", id, err)
	}

	log.Printf("Weights %q saved to %q", WeightsKey(id), path)
	return path, nil
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Failed to close weights fileflow:", err)
	}
}
