package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sentiment_aggregator/internal/ingest"
	"sentiment_aggregator/internal/logger"
	"sentiment_aggregator/internal/metrics"
	"sentiment_aggregator/internal/models"
	"sentiment_aggregator/internal/sentiment"

	"github.com/google/uuid"
)

var (
	ErrRunInProgress = errors.New("pipeline run already in progress")
	ErrStopped       = errors.New("pipeline runner is stopped")
)

// SchemaStore — проверка доступности хранилища перед запуском.
type SchemaStore interface {
	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
}

type Ingester interface {
	Run(ctx context.Context) ingest.Result
}

type Labeler interface {
	Run(ctx context.Context) (sentiment.Result, error)
}

// SummaryPublisher получает итог каждого запуска.
type SummaryPublisher interface {
	PublishSummary(ctx context.Context, summary models.RunSummary) error
}

// Runner выполняет загрузку и классификацию как один запуск.
// Одновременно идёт не больше одного запуска.
type Runner struct {
	store      SchemaStore
	ingester   Ingester
	labeler    Labeler
	metrics    *metrics.Metrics
	publishers []SummaryPublisher

	mu     sync.Mutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRunner(store SchemaStore, ingester Ingester, labeler Labeler, m *metrics.Metrics) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		store:    store,
		ingester: ingester,
		labeler:  labeler,
		metrics:  m,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// AddPublisher подписывает p на итоги запусков.
func (r *Runner) AddPublisher(p SummaryPublisher) {
	r.publishers = append(r.publishers, p)
}

// Run ждёт завершения текущего запуска, если он есть, и выполняет новый.
// Ошибки не возвращаются наружу, а попадают в RunSummary.Errors.
func (r *Runner) Run(ctx context.Context) models.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run(ctx)
}

// Trigger запускает асинхронный запуск и сразу возвращает управление.
// ErrRunInProgress — запуск уже идёт; ErrStopped — Runner закрыт.
func (r *Runner) Trigger() error {
	if r.ctx.Err() != nil {
		return ErrStopped
	}
	if !r.mu.TryLock() {
		return ErrRunInProgress
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.mu.Unlock()
		r.run(r.ctx)
	}()
	return nil
}

// Close отменяет фоновые запуски и ждёт их завершения.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}

// StartPolling выполняет запуск сразу и затем каждые interval до отмены ctx.
func (r *Runner) StartPolling(ctx context.Context, interval time.Duration) {
	log := logger.Log.WithFields(logger.Fields{
		"service":  "poller",
		"interval": interval.String(),
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("Starting first polling cycle")
	r.Run(ctx)

	for {
		select {
		case <-ticker.C:
			log.Info("Starting new polling cycle")
			r.Run(ctx)

		case <-ctx.Done():
			log.Info("Stopping poller by context")
			return
		}
	}
}

func (r *Runner) run(ctx context.Context) (summary models.RunSummary) {
	summary = models.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Errors:    []string{},
	}
	log := logger.For("runner").WithField("run_id", summary.RunID)
	log.Info("Pipeline run started")

	defer func() {
		if p := recover(); p != nil {
			log.Errorf("Pipeline run panicked: %v", p)
			summary.Errors = append(summary.Errors, fmt.Sprintf("panic: %v", p))
			summary.Aborted = true
		}
		summary.Finish(time.Now().UTC())
		took := summary.FinishedAt.Sub(summary.StartedAt)
		r.metrics.RunFinished(summary.Status, took)

		log.WithFields(logger.Fields{
			"status":   summary.Status,
			"inserted": summary.InsertedCount,
			"labeled":  summary.LabeledCount,
			"errors":   len(summary.Errors),
			"took":     took.String(),
		}).Info("Pipeline run finished")

		r.publish(ctx, summary)
	}()

	if err := r.store.Ping(ctx); err != nil {
		log.Errorf("Storage unavailable: %v", err)
		summary.Errors = append(summary.Errors, fmt.Sprintf("storage unavailable: %v", err))
		summary.Aborted = true
		return summary
	}
	if err := r.store.EnsureSchema(ctx); err != nil {
		log.Errorf("Ensure schema failed: %v", err)
		summary.Errors = append(summary.Errors, err.Error())
		summary.Aborted = true
		return summary
	}

	ingested := r.ingester.Run(ctx)
	summary.InsertedCount = ingested.Inserted
	summary.Errors = append(summary.Errors, ingested.Errors...)

	labeled, err := r.labeler.Run(ctx)
	summary.LabeledCount = labeled.Labeled
	summary.Errors = append(summary.Errors, labeled.Errors...)
	if err != nil {
		log.Errorf("Classification failed: %v", err)
		summary.Errors = append(summary.Errors, fmt.Sprintf("classify: %v", err))
		summary.Aborted = true
	}

	return summary
}

func (r *Runner) publish(ctx context.Context, summary models.RunSummary) {
	for _, p := range r.publishers {
		if err := p.PublishSummary(context.WithoutCancel(ctx), summary); err != nil {
			logger.For("runner").Warnf("Publish run summary failed: %v", err)
		}
	}
}
