// Package miniostorage provides structure to work with minio-storage holding the model weights
package miniostorage

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/UnendingLoop/BackgroundRemover/internal/appconfig"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/config"
)

type MinioWeightsStorage struct {
	bucket string
	client *minio.Client
}

func NewMinioClient(cfg *config.Config) (*MinioWeightsStorage, error) {
	addr, bucket, opts := clientOptions(cfg)

	// подключаемся к минио - создаем клиента
	strg, err := minio.New(addr, opts)
	if err != nil {
		return nil, err
	}

	// создаем бакет если его нет
	if err := ensureBucket(context.Background(), strg, bucket); err != nil {
		log.Println("Failed to create bucket in MinIO:", err)
		return nil, err
	}

	return &MinioWeightsStorage{bucket: bucket, client: strg}, nil
}

func clientOptions(cfg *config.Config) (string, string, *minio.Options) {
	bucket := appconfig.String(cfg, "BUCKET_NAME", "")
	if bucket == "" {
		bucket = "models"
		log.Printf("Bucket name is empty. Using default value %q...", bucket)
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetString("MINIO_USER"), cfg.GetString("MINIO_PASS"), ""),
		Secure: appconfig.Bool(cfg, "MINIO_SECURE", false),
	}
	return cfg.GetString("MINIO_ENDPOINT"), bucket, opts
}

// Put uploads a weights file, used by the CLI to seed the bucket
func (s *MinioWeightsStorage) Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error {
	if r == nil {
		return errors.New("nil reader passed to storage.Put")
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return err
	}

	return nil
}

func (s *MinioWeightsStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	res, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}

	// GetObject ленивый - отсутствие объекта видно только по Stat
	resStat, err := res.Stat()
	if err != nil {
		if errClose := res.Close(); errClose != nil {
			log.Printf("Failed to close minio object %q: %v", key, errClose)
		}
		return nil, "", err
	}

	return res, resStat.ContentType, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}
