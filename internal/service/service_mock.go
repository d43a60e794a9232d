package service

import (
	"context"

	"github.com/UnendingLoop/BackgroundRemover/internal/batch"
	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/results"
	"github.com/wb-go/wbf/retry"
)

// MOCK RUNNER

type mockRunner struct {
	runFn func(ctx context.Context, images []model.SourceImage, opts model.BatchOptions, onProgress batch.ProgressFunc) (*results.Store, model.FailureReport, error)
}

func (m *mockRunner) Run(ctx context.Context, images []model.SourceImage, opts model.BatchOptions, onProgress batch.ProgressFunc) (*results.Store, model.FailureReport, error) {
	return m.runFn(ctx, images, opts, onProgress)
}

// MOCK RESPOSITORY

type mockRepo struct {
	createFn  func(ctx context.Context, s *model.BatchSummary) error
	getListFn func(ctx context.Context, req *model.ListRequest) ([]model.BatchSummary, error)
}

func (m *mockRepo) Create(ctx context.Context, s *model.BatchSummary) error {
	if m.createFn == nil {
		return nil
	}
	return m.createFn(ctx, s)
}

func (m *mockRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.BatchSummary, error) {
	return m.getListFn(ctx, req)
}

// MOCK PUBLISHER

type mockPublisher struct {
	sendFn func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
	if m.sendFn == nil {
		return nil
	}
	return m.sendFn(ctx, s, key, v)
}
