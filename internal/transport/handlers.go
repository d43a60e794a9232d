// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/UnendingLoop/BackgroundRemover/internal/archive"
	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/spf13/cast"
	"github.com/wb-go/wbf/ginext"
)

type BatchHandler struct {
	service        BatchService
	archiveName    string
	maxUploadBytes int64
}

type BatchService interface {
	RunBatch(ctx context.Context, images []model.SourceImage, opts model.BatchOptions) (*model.BatchSummary, error)
	Progress() model.Progress
	ListResults(ctx context.Context) []model.ResultInfo
	LoadResult(ctx context.Context, filename string) (*model.ProcessedResult, error)
	Preview(ctx context.Context, filename string, size int) ([]byte, error)
	Archive(ctx context.Context) ([]byte, error)
	Clear(ctx context.Context)                                                            // "обработать новый батч"
	GetHistory(ctx context.Context, req *model.ListRequest) ([]model.BatchSummary, error) // история батчей с пагинацией
	Models() []model.ModelInfo
}

func NewBatchHandler(svc BatchService, archiveName string, maxUploadBytes int64) *BatchHandler {
	if archiveName == "" {
		archiveName = archive.DefaultName
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &BatchHandler{
		service:        svc,
		archiveName:    archiveName,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h BatchHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

func (h BatchHandler) Models(ctx *ginext.Context) {
	ctx.JSON(200, h.service.Models())
}

func (h BatchHandler) CreateBatch(ctx *ginext.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.maxUploadBytes)
	if err := ctx.Request.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			ctx.JSON(413, map[string]string{"error": "upload is too large"})
			return
		}
		ctx.JSON(400, map[string]string{"error": "failed to parse multipart form"})
		return
	}

	opts := model.BatchOptions{
		Model:        model.ModelID(ctx.PostForm("model")),
		AlphaMatting: cast.ToBool(ctx.PostForm("alpha_matting")),
	}

	// файлы читаем целиком - дальше батч живет только в памяти
	headers := ctx.Request.MultipartForm.File["images"]
	images := make([]model.SourceImage, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			ctx.JSON(400, map[string]string{"error": "failed to read uploaded file " + fh.Filename})
			return
		}
		data, err := io.ReadAll(f)
		closeFileFlow(f)
		if err != nil {
			ctx.JSON(400, map[string]string{"error": "failed to read uploaded file " + fh.Filename})
			return
		}
		images = append(images, model.SourceImage{Filename: fh.Filename, Data: data})
	}

	// передаем в сервис
	res, err := h.service.RunBatch(ctx.Request.Context(), images, opts)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h BatchHandler) Progress(ctx *ginext.Context) {
	ctx.JSON(200, h.service.Progress())
}

func (h BatchHandler) GetHistory(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": "failed to parse query-params"})
		return
	}

	res, err := h.service.GetHistory(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h BatchHandler) ListResults(ctx *ginext.Context) {
	ctx.JSON(200, h.service.ListResults(ctx.Request.Context()))
}

func (h BatchHandler) LoadResult(ctx *ginext.Context) {
	name := ctx.Param("name")

	// ?preview=N - уменьшенная копия для галереи
	if p := ctx.Query("preview"); p != "" {
		size, err := cast.ToIntE(p)
		if err != nil {
			ctx.JSON(400, map[string]string{"error": model.ErrIncorrectQuery.Error()})
			return
		}
		data, err := h.service.Preview(ctx.Request.Context(), name, size)
		if err != nil {
			ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
			return
		}
		ctx.Data(200, model.PNG, data)
		return
	}

	res, err := h.service.LoadResult(ctx.Request.Context(), name)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Header("Content-Disposition", attachment(archive.EntryName(res.Filename)))
	ctx.Data(200, model.PNG, res.Payload)
}

func (h BatchHandler) LoadArchive(ctx *ginext.Context) {
	data, err := h.service.Archive(ctx.Request.Context())
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Header("Content-Disposition", attachment(h.archiveName))
	ctx.Data(200, model.ZIP, data)
}

func (h BatchHandler) ClearResults(ctx *ginext.Context) {
	h.service.Clear(ctx.Request.Context())
	ctx.Status(204)
}

func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
