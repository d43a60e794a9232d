// Package service provides business-logic for the app: it owns the current batch results and coordinates batch runs
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/UnendingLoop/BackgroundRemover/internal/archive"
	"github.com/UnendingLoop/BackgroundRemover/internal/batch"
	"github.com/UnendingLoop/BackgroundRemover/internal/imageproc"
	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/mwlogger"
	"github.com/UnendingLoop/BackgroundRemover/internal/repository"
	"github.com/UnendingLoop/BackgroundRemover/internal/results"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
)

// BatchRunner - контракт прогона одного батча
type BatchRunner interface {
	Run(ctx context.Context, images []model.SourceImage, opts model.BatchOptions, onProgress batch.ProgressFunc) (*results.Store, model.FailureReport, error)
}

// TaskPublisher - контракт для работы с очередью
type TaskPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// Стратегия ретрая отправки в очередь - можно потом вынести значения в конфиг/env
var retryStrategy = retry.Strategy{
	Attempts: 5,
	Delay:    3 * time.Second,
	Backoff:  1.5,
}

type BatchService struct {
	runner       BatchRunner
	repo         repository.BatchRepo
	publisher    TaskPublisher
	defaultModel model.ModelID

	current  atomic.Pointer[results.Store]
	progress atomic.Pointer[model.Progress]

	// runSlot - один батч в работе; новый батч отменяет текущий и ждет освобождения слота
	runSlot   chan struct{}
	cancelMu  sync.Mutex
	cancelCur context.CancelFunc
	gen       uint64
}

func NewBatchService(runner BatchRunner, repo repository.BatchRepo, pub TaskPublisher, defaultModel model.ModelID) *BatchService {
	if !model.ModelsMap[defaultModel] {
		defaultModel = model.DefaultModel
	}

	s := &BatchService{
		runner:       runner,
		repo:         repo,
		publisher:    pub,
		defaultModel: defaultModel,
		runSlot:      make(chan struct{}, 1),
	}
	s.current.Store(results.New())
	s.progress.Store(&model.Progress{})

	return s
}

// RunBatch processes images and, on success, replaces the current results with the new batch.
// A newer RunBatch or Clear cancels the one in flight: the cancelled batch publishes nothing and gets ErrBatchCancelled.
func (s *BatchService) RunBatch(ctx context.Context, images []model.SourceImage, opts model.BatchOptions) (*model.BatchSummary, error) {
	if err := validateOptions(&opts, s.defaultModel); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, model.ErrNoImages
	}

	runCtx, myGen := s.takeOver(ctx)
	defer s.release(myGen)

	// ждем, пока предыдущий (уже отмененный) батч освободит слот
	select {
	case s.runSlot <- struct{}{}:
	case <-runCtx.Done():
		return nil, model.ErrBatchCancelled
	}
	summary, err := s.run(runCtx, images, opts)
	<-s.runSlot

	if err != nil {
		return nil, err
	}

	// история и события - best effort, на ответ клиенту не влияют
	s.notify(context.WithoutCancel(runCtx), summary)

	return summary, nil
}

func (s *BatchService) run(ctx context.Context, images []model.SourceImage, opts model.BatchOptions) (*model.BatchSummary, error) {
	if ctx.Err() != nil {
		return nil, model.ErrBatchCancelled
	}

	started := time.Now().UTC()
	summary := &model.BatchSummary{
		ID:           uuid.New(),
		Model:        opts.Model,
		AlphaMatting: opts.AlphaMatting,
		Total:        len(images),
		StartedAt:    &started,
	}

	ctx = mwlogger.WithBatch(ctx, summary.ID.String())
	logger := mwlogger.LoggerFromContext(ctx)
	logger.Info().Str("model", string(opts.Model)).Int("total", len(images)).Msg("Batch started")

	s.progress.Store(&model.Progress{BatchID: summary.ID, Running: true, Total: len(images)})

	// результаты прошлого батча прячем только когда модель загрузилась
	var hideOnce sync.Once
	hidePrevious := func() {
		hideOnce.Do(func() { s.publish(ctx, results.New()) })
	}

	store, report, err := s.runner.Run(ctx, images, opts, func(done float64) {
		hidePrevious()
		s.progress.Store(&model.Progress{
			BatchID:  summary.ID,
			Value:    done,
			Running:  true,
			Total:    len(images),
			Finished: int(done*float64(len(images)) + 0.5),
		})
	})

	last := s.progress.Load()
	s.progress.Store(&model.Progress{BatchID: summary.ID, Value: last.Value, Total: last.Total, Finished: last.Finished})

	if err != nil {
		if errors.Is(err, model.ErrModelLoad) {
			return nil, err // 500 с причиной, старые результаты остаются
		}
		hidePrevious()

		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			logger.Warn().Msg("Batch cancelled")
			return nil, model.ErrBatchCancelled
		default:
			logger.Error().Err(err).Msg("Batch failed")
			return nil, model.ErrCommon500
		}
	}

	if !s.publish(ctx, store) {
		logger.Warn().Msg("Batch cancelled before publishing results")
		return nil, model.ErrBatchCancelled
	}

	finished := time.Now().UTC()
	summary.FinishedAt = &finished
	summary.Processed = store.Len()
	summary.Failures = report

	return summary, nil
}

// takeOver cancels the batch in flight and registers a new cancellable context as current
func (s *BatchService) takeOver(parent context.Context) (context.Context, uint64) {
	ctx, cancel := context.WithCancel(parent)

	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()

	if s.cancelCur != nil {
		s.cancelCur()
	}
	s.gen++
	s.cancelCur = cancel

	return ctx, s.gen
}

func (s *BatchService) release(gen uint64) {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()

	if s.gen == gen && s.cancelCur != nil {
		s.cancelCur()
		s.cancelCur = nil
	}
}

// publish swaps the current store unless ctx was cancelled; отмена и публикация идут под одним локом
func (s *BatchService) publish(ctx context.Context, store *results.Store) bool {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()

	if ctx.Err() != nil {
		return false
	}
	s.current.Store(store)
	return true
}

func (s *BatchService) notify(ctx context.Context, summary *model.BatchSummary) {
	logger := mwlogger.LoggerFromContext(ctx).With().Str("batch_id", summary.ID.String()).Logger()

	if err := s.repo.Create(ctx, summary); err != nil {
		logger.Error().Err(err).Msg("Failed to save batch summary in DB")
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal batch summary")
		return
	}
	if err := s.publisher.SendWithRetry(ctx, retryStrategy, []byte(summary.ID.String()), payload); err != nil {
		logger.Error().Err(err).Msg(fmt.Sprintf("Failed to publish batch %q to events-queue", summary.ID))
	}
}

// Clear drops the current results and cancels a batch in flight
func (s *BatchService) Clear(ctx context.Context) {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()

	if s.cancelCur != nil {
		s.cancelCur()
		s.cancelCur = nil
	}
	s.current.Store(results.New())

	logger := mwlogger.LoggerFromContext(ctx)
	logger.Info().Msg("Current results cleared")
}

func (s *BatchService) Current() *results.Store {
	return s.current.Load()
}

func (s *BatchService) Progress() model.Progress {
	return *s.progress.Load()
}

func (s *BatchService) ListResults(ctx context.Context) []model.ResultInfo {
	store := s.Current()

	list := make([]model.ResultInfo, 0, store.Len())
	store.Range(func(res *model.ProcessedResult) bool {
		list = append(list, model.ResultInfo{
			Filename:     res.Filename,
			DownloadName: archive.EntryName(res.Filename),
			Size:         len(res.Payload),
		})
		return true
	})

	return list
}

func (s *BatchService) LoadResult(ctx context.Context, filename string) (*model.ProcessedResult, error) {
	res, ok := s.Current().Get(filename)
	if !ok {
		return nil, model.ErrResultNotFound
	}
	return res, nil
}

// Preview returns a downscaled PNG of one result for the web gallery
func (s *BatchService) Preview(ctx context.Context, filename string, size int) ([]byte, error) {
	if size <= 0 || size > imageproc.MaxPreviewSize {
		return nil, model.ErrIncorrectQuery
	}

	logger := mwlogger.LoggerFromContext(ctx)

	res, err := s.LoadResult(ctx, filename)
	if err != nil {
		return nil, err
	}

	img := res.Image
	if img == nil {
		if img, err = imageproc.Decode(res.Payload); err != nil {
			logger.Error().Err(err).Str("item", filename).Msg("Failed to decode stored result")
			return nil, model.ErrCommon500
		}
	}

	data, err := imageproc.Preview(img, size)
	if err != nil {
		logger.Error().Err(err).Str("item", filename).Msg("Failed to build preview")
		return nil, model.ErrCommon500
	}
	return data, nil
}

func (s *BatchService) Archive(ctx context.Context) ([]byte, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	store := s.Current()
	if store.Len() == 0 {
		return nil, model.ErrEmptyStore
	}

	data, err := archive.Bytes(store)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build results archive")
		return nil, model.ErrCommon500
	}
	return data, nil
}

func (s *BatchService) GetHistory(ctx context.Context, req *model.ListRequest) ([]model.BatchSummary, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := s.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch batch history from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (s *BatchService) Models() []model.ModelInfo {
	list := make([]model.ModelInfo, 0, len(model.ModelsOrder))
	for _, id := range model.ModelsOrder {
		list = append(list, model.ModelInfo{
			ID:      id,
			Label:   model.ModelLabels[id],
			Default: id == s.defaultModel,
		})
	}
	return list
}
