package transport

import (
	"context"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/wb-go/wbf/ginext"
)

type mockBatchService struct {
	runBatchFn    func(ctx context.Context, images []model.SourceImage, opts model.BatchOptions) (*model.BatchSummary, error)
	progressFn    func() model.Progress
	listResultsFn func(ctx context.Context) []model.ResultInfo
	loadResultFn  func(ctx context.Context, filename string) (*model.ProcessedResult, error)
	previewFn     func(ctx context.Context, filename string, size int) ([]byte, error)
	archiveFn     func(ctx context.Context) ([]byte, error)
	getHistoryFn  func(ctx context.Context, req *model.ListRequest) ([]model.BatchSummary, error)
	cleared       int
}

func (m *mockBatchService) RunBatch(ctx context.Context, images []model.SourceImage, opts model.BatchOptions) (*model.BatchSummary, error) {
	return m.runBatchFn(ctx, images, opts)
}

func (m *mockBatchService) Progress() model.Progress {
	return m.progressFn()
}

func (m *mockBatchService) ListResults(ctx context.Context) []model.ResultInfo {
	return m.listResultsFn(ctx)
}

func (m *mockBatchService) LoadResult(ctx context.Context, filename string) (*model.ProcessedResult, error) {
	return m.loadResultFn(ctx, filename)
}

func (m *mockBatchService) Preview(ctx context.Context, filename string, size int) ([]byte, error) {
	return m.previewFn(ctx, filename, size)
}

func (m *mockBatchService) Archive(ctx context.Context) ([]byte, error) {
	return m.archiveFn(ctx)
}

func (m *mockBatchService) Clear(ctx context.Context) {
	m.cleared++
}

func (m *mockBatchService) GetHistory(ctx context.Context, req *model.ListRequest) ([]model.BatchSummary, error) {
	return m.getHistoryFn(ctx, req)
}

func (m *mockBatchService) Models() []model.ModelInfo {
	return []model.ModelInfo{{ID: model.ModelGeneral, Label: model.ModelLabels[model.ModelGeneral], Default: true}}
}

// wrap переводит хендлер ginext в gin для тестового роутера
func wrap(h func(*ginext.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		h((*ginext.Context)(c))
	}
}
