package imageproc

import (
	"context"
	"image"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/segment"
)

type mockSession struct {
	segmentFn func(ctx context.Context, img image.Image, opts segment.Options) (image.Image, error)
}

func (m *mockSession) Model() model.ModelID {
	return model.ModelGeneral
}

func (m *mockSession) Segment(ctx context.Context, img image.Image, opts segment.Options) (image.Image, error) {
	return m.segmentFn(ctx, img, opts)
}

func (m *mockSession) Close() error {
	return nil
}
