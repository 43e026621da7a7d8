package worker_test

import (
	"context"
	"testing"

	"sentiment_aggregator/internal/models"
	"sentiment_aggregator/internal/worker"

	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	summary models.RunSummary
	calls   int
	ctxErr  error
}

func (s *stubRunner) Run(ctx context.Context) models.RunSummary {
	s.calls++
	s.ctxErr = ctx.Err()
	return s.summary
}

func TestHandleTask(t *testing.T) {
	r := &stubRunner{summary: models.RunSummary{RunID: "r1", Status: models.RunOK, InsertedCount: 2}}
	w := worker.NewWorker(r)

	require.NoError(t, w.HandleTask(context.Background(), nil))
	require.NoError(t, w.HandleTask(context.Background(), []byte(`{"requested_by":"cron"}`)))
	require.Equal(t, 2, r.calls)
}

func TestHandleTaskInvalidBody(t *testing.T) {
	r := &stubRunner{}
	err := worker.NewWorker(r).HandleTask(context.Background(), []byte("not json"))
	require.Error(t, err)
	require.Zero(t, r.calls)
}

func TestHandleTaskPartialRun(t *testing.T) {
	r := &stubRunner{summary: models.RunSummary{
		RunID:  "r3",
		Status: models.RunPartial,
		Errors: []string{"Yahoo (https://finance.yahoo.com/news/rssindex): unexpected status 403"},
	}}
	require.NoError(t, worker.NewWorker(r).HandleTask(context.Background(), []byte("{}")))
}

func TestHandleTaskAbortedRun(t *testing.T) {
	r := &stubRunner{summary: models.RunSummary{
		RunID:   "r2",
		Status:  models.RunFailed,
		Aborted: true,
		Errors:  []string{"storage unavailable"},
	}}
	err := worker.NewWorker(r).HandleTask(context.Background(), []byte("{}"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "r2")
}

func TestHandleTaskPassesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &stubRunner{}
	require.NoError(t, worker.NewWorker(r).HandleTask(ctx, nil))
	require.ErrorIs(t, r.ctxErr, context.Canceled)
}
