package sessioncache

import (
	"context"
	"image"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/segment"
)

type mockSession struct {
	id     model.ModelID
	closed bool
}

func (m *mockSession) Model() model.ModelID {
	return m.id
}

func (m *mockSession) Segment(ctx context.Context, img image.Image, opts segment.Options) (image.Image, error) {
	return img, nil
}

func (m *mockSession) Close() error {
	m.closed = true
	return nil
}
