// Package model provides data-structs for internal app-usage
package model

import (
	"errors"
	"image"
	"time"

	"github.com/google/uuid"
)

type ModelID string

const (
	ModelGeneral   ModelID = "u2net"
	ModelHumanSeg  ModelID = "u2net_human_seg"
	ModelLightWght ModelID = "u2netp"

	DefaultModel = ModelGeneral
)

var ModelsMap = map[ModelID]bool{
	ModelGeneral:   true,
	ModelHumanSeg:  true,
	ModelLightWght: true,
}

// ModelLabels - человекочитаемые названия для выбора модели в UI/CLI
var ModelLabels = map[ModelID]string{
	ModelGeneral:   "General (u2net)",
	ModelHumanSeg:  "Human Focus (u2net_human_seg)",
	ModelLightWght: "Lightweight (u2netp)",
}

// ModelsOrder - порядок вывода моделей в списках
var ModelsOrder = []ModelID{ModelGeneral, ModelHumanSeg, ModelLightWght}

type ModelInfo struct {
	ID      ModelID `json:"id"`
	Label   string  `json:"label"`
	Default bool    `json:"default"`
}

//---------------------

// BatchOptions - настройки одного батча
type BatchOptions struct {
	Model        ModelID `json:"model"`
	AlphaMatting bool    `json:"alpha_matting"`
}

// SourceImage - загруженный файл как есть, живет в пределах одного батча
type SourceImage struct {
	Filename string
	Data     []byte
}

// ProcessedResult - результат обработки одной картинки, ключ в сторе - Filename
type ProcessedResult struct {
	Filename string
	Image    image.Image
	Payload  []byte
	Success  bool
}

// ResultInfo - описание результата для выдачи списком
type ResultInfo struct {
	Filename     string `json:"filename"`
	DownloadName string `json:"download_name"`
	Size         int    `json:"size"`
}

//---------------------

// BatchSummary - метаданные батча без самих картинок: ответ клиенту, запись в историю и событие в очередь
type BatchSummary struct {
	ID           uuid.UUID     `json:"batch_id"`
	Model        ModelID       `json:"model"`
	AlphaMatting bool          `json:"alpha_matting"`
	Total        int           `json:"total"`
	Processed    int           `json:"processed"`
	Failures     FailureReport `json:"failures"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// Progress - снимок прогресса текущего батча
type Progress struct {
	BatchID  uuid.UUID `json:"batch_id"`
	Value    float64   `json:"progress"`
	Running  bool      `json:"running"`
	Total    int       `json:"total"`
	Finished int       `json:"finished"`
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Order string `form:"order"`
}

const (
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

// ------------------

var (
	ErrCommon500      error = errors.New("something went wrong. Try again later")       // 500
	ErrModelLoad      error = errors.New("failed to load segmentation model")           // 500
	ErrIncorrectQuery error = errors.New("incorrect query parameters")                  // 400
	ErrIncorrectModel error = errors.New("model is not supported")                      // 400
	ErrNoImages       error = errors.New("no images provided")                          // 400
	ErrResultNotFound error = errors.New("requested result not found in current batch") // 404
	ErrEmptyStore     error = errors.New("no processed images available")               // 404
	ErrBatchCancelled error = errors.New("batch was cancelled by a newer batch")        // 409
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	ZIP  = "application/zip"
)

// InImageExtMap - расширения, которые предлагает форма загрузки; реальная проверка - декодированием
var InImageExtMap = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}
