package service

import (
	"strings"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
)

func validateQueryParams(req *model.ListRequest) {
	// Обрабатываем пустые значения, присваиваем дефолты если надо
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 30
	}

	// Валадируем порядок; в запрос уходит только ASC/DESC
	req.Order = strings.ToLower(req.Order)
	req.Order = strings.TrimSpace(req.Order)
	switch {
	case req.Order == "asc", strings.Contains(req.Order, model.OrderASC):
		req.Order = "ASC"
	default:
		req.Order = "DESC" // по дефолту ставим сортировку "новое-выше"
	}
}

func validateOptions(opts *model.BatchOptions, defaultModel model.ModelID) error {
	id := model.ModelID(strings.ToLower(strings.TrimSpace(string(opts.Model))))
	if id == "" {
		id = defaultModel
	}
	if !model.ModelsMap[id] {
		return model.ErrIncorrectModel
	}

	opts.Model = id
	return nil
}
