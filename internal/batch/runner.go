// Package batch runs one batch of uploaded images through a model session with per-item failure isolation
package batch

import (
	"context"
	"sync"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/mwlogger"
	"github.com/UnendingLoop/BackgroundRemover/internal/results"
	"github.com/UnendingLoop/BackgroundRemover/internal/segment"
	"golang.org/x/sync/errgroup"
)

// SessionProvider - контракт кеша сессий моделей
type SessionProvider interface {
	Get(ctx context.Context, id model.ModelID) (segment.Session, error)
}

// ItemProcessor - контракт обработки одной картинки
type ItemProcessor interface {
	Process(ctx context.Context, src model.SourceImage, sess segment.Session, opts model.BatchOptions) (*model.ProcessedResult, *model.ItemError)
}

// ProgressFunc получает 0 сразу после загрузки модели, затем долю завершенных элементов после каждого элемента
type ProgressFunc func(done float64)

type Runner struct {
	sessions  SessionProvider
	processor ItemProcessor
	workers   int
}

func NewRunner(sessions SessionProvider, processor ItemProcessor, workers int) *Runner {
	return &Runner{sessions: sessions, processor: processor, workers: max(workers, 1)}
}

type outcome struct {
	res *model.ProcessedResult
	err *model.ItemError
}

// Run processes images in input order and returns a fresh store with the successful results.
// A model load failure aborts the batch before any item is touched and before onProgress is called. Item failures go to the report
// and never stop the batch. A cancelled ctx stops launching new items and the partial state is dropped.
func (r *Runner) Run(ctx context.Context, images []model.SourceImage, opts model.BatchOptions, onProgress ProgressFunc) (*results.Store, model.FailureReport, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	report := model.FailureReport{}

	sess, err := r.sessions.Get(ctx, opts.Model)
	if err != nil {
		logger.Error().Err(err).Str("model", string(opts.Model)).Msg("Failed to get model session, batch aborted")
		return nil, report, err
	}

	if onProgress == nil {
		onProgress = func(float64) {}
	}
	// сессия есть - батч стартовал
	onProgress(0)

	var outcomes []outcome
	if r.workers > 1 && len(images) > 1 {
		outcomes, err = r.runParallel(ctx, sess, images, opts, onProgress)
	} else {
		outcomes, err = r.runSequential(ctx, sess, images, opts, onProgress)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Batch interrupted, partial results discarded")
		return nil, model.FailureReport{}, err
	}

	// в стор кладем строго в порядке входа, независимо от порядка завершения
	store := results.New()
	for _, o := range outcomes {
		if o.err != nil {
			logger.Warn().Str("item", o.err.Item).Str("kind", string(o.err.Kind)).Msg(o.err.Detail)
			report = append(report, *o.err)
			continue
		}
		store.Put(o.res)
	}

	logger.Info().
		Str("model", string(opts.Model)).
		Int("total", len(images)).
		Int("stored", store.Len()).
		Int("failed", report.Len()).
		Msg("Batch finished")

	return store, report, nil
}

func (r *Runner) runSequential(ctx context.Context, sess segment.Session, images []model.SourceImage, opts model.BatchOptions, onProgress ProgressFunc) ([]outcome, error) {
	outcomes := make([]outcome, 0, len(images))
	total := float64(len(images))

	for i, src := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, itemErr := r.processor.Process(ctx, src, sess, opts)
		outcomes = append(outcomes, outcome{res: res, err: itemErr})

		onProgress(float64(i+1) / total)
	}

	// отмена во время последнего элемента тоже означает, что батч никому не нужен
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *Runner) runParallel(ctx context.Context, sess segment.Session, images []model.SourceImage, opts model.BatchOptions, onProgress ProgressFunc) ([]outcome, error) {
	outcomes := make([]outcome, len(images))
	total := float64(len(images))

	var (
		g    errgroup.Group
		mu   sync.Mutex
		done int
	)
	g.SetLimit(r.workers)

	for i, src := range images {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res, itemErr := r.processor.Process(ctx, src, sess, opts)
			outcomes[i] = outcome{res: res, err: itemErr}

			// счетчик и колбэк под одним локом - прогресс не убывает
			mu.Lock()
			done++
			onProgress(float64(done) / total)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
