package batch

import (
	"context"
	"image"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/segment"
)

type mockSessions struct {
	getFn func(ctx context.Context, id model.ModelID) (segment.Session, error)
	calls int
}

func (m *mockSessions) Get(ctx context.Context, id model.ModelID) (segment.Session, error) {
	m.calls++
	return m.getFn(ctx, id)
}

//----------------------------------

type mockSession struct {
	segmentFn func(ctx context.Context, img image.Image, opts segment.Options) (image.Image, error)
}

func (m *mockSession) Model() model.ModelID {
	return model.ModelGeneral
}

func (m *mockSession) Segment(ctx context.Context, img image.Image, opts segment.Options) (image.Image, error) {
	if m.segmentFn == nil {
		return img, nil
	}
	return m.segmentFn(ctx, img, opts)
}

func (m *mockSession) Close() error {
	return nil
}

//----------------------------------

type mockProcessor struct {
	processFn func(ctx context.Context, src model.SourceImage, sess segment.Session, opts model.BatchOptions) (*model.ProcessedResult, *model.ItemError)
}

func (m *mockProcessor) Process(ctx context.Context, src model.SourceImage, sess segment.Session, opts model.BatchOptions) (*model.ProcessedResult, *model.ItemError) {
	return m.processFn(ctx, src, sess, opts)
}
