package transport

import (
	"errors"
	"io"
	"log"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500),
		errors.Is(err, model.ErrModelLoad):
		return 500
	case errors.Is(err, model.ErrResultNotFound),
		errors.Is(err, model.ErrEmptyStore):
		return 404
	case errors.Is(err, model.ErrBatchCancelled):
		return 409
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectModel),
		errors.Is(err, model.ErrNoImages):
		return 400
	default:
		return 500
	}
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Handler failed to close fileflow:", err)
	}
}
