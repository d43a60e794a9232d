// Package segment provides the background-segmentation capability: a loaded model session
// that takes an image and returns the same image with an alpha channel.
package segment

import (
	"context"
	"image"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
)

type Options struct {
	AlphaMatting bool
}

// Session - загруженная модель; дорого создать, дешево переиспользовать
type Session interface {
	Model() model.ModelID
	Segment(ctx context.Context, img image.Image, opts Options) (image.Image, error)
	Close() error
}

// Loader создает новую сессию для модели. Кешированием занимается sessioncache.
type Loader func(ctx context.Context, id model.ModelID) (Session, error)
