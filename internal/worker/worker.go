package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sentiment_aggregator/internal/logger"
	"sentiment_aggregator/internal/models"
)

// PipelineRunner выполняет один запуск конвейера.
type PipelineRunner interface {
	Run(ctx context.Context) models.RunSummary
}

// RunRequest — тело сообщения из очереди запусков. Пустое тело допустимо.
type RunRequest struct {
	RequestedBy string `json:"requested_by"`
}

type Worker struct {
	runner PipelineRunner
}

func NewWorker(runner PipelineRunner) *Worker {
	return &Worker{runner: runner}
}

// HandleTask выполняет запуск по сообщению из очереди. Отмена ctx
// прерывает запуск. Ошибка возвращается только для прерванного запуска:
// сбои отдельных лент его не проваливают.
func (w *Worker) HandleTask(ctx context.Context, body []byte) error {
	var req RunRequest
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return fmt.Errorf("decode run request: %w", err)
		}
	}

	log := logger.Log.WithField("requested_by", req.RequestedBy)
	log.Info("Processing run request")

	summary := w.runner.Run(ctx)
	if summary.Failed() {
		return fmt.Errorf("run %s aborted with %d errors", summary.RunID, len(summary.Errors))
	}

	log.Infof("Run %s (%s): %d inserted, %d labeled", summary.RunID, summary.Status,
		summary.InsertedCount, summary.LabeledCount)
	return nil
}
