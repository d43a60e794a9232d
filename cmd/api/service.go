package main

import (
	"context"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/results"
	"github.com/wb-go/wbf/retry"
)

type BatchAPIService interface {
	RunBatch(ctx context.Context, images []model.SourceImage, opts model.BatchOptions) (*model.BatchSummary, error)
	Progress() model.Progress
	Current() *results.Store
	ListResults(ctx context.Context) []model.ResultInfo
	LoadResult(ctx context.Context, filename string) (*model.ProcessedResult, error)
	Preview(ctx context.Context, filename string, size int) ([]byte, error)
	Archive(ctx context.Context) ([]byte, error)
	Clear(ctx context.Context)
	GetHistory(ctx context.Context, req *model.ListRequest) ([]model.BatchSummary, error)
	Models() []model.ModelInfo
}

// publisher - продюсер событий о батчах, настоящий из wbf/kafka или заглушка
type publisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
	Close() error
}
