package runner_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sentiment_aggregator/internal/config"
	"sentiment_aggregator/internal/db"
	"sentiment_aggregator/internal/ingest"
	"sentiment_aggregator/internal/models"
	"sentiment_aggregator/internal/runner"
	"sentiment_aggregator/internal/sentiment"

	"github.com/stretchr/testify/require"
)

type fixedIngester struct {
	res   ingest.Result
	block chan struct{}
	calls int
	mu    sync.Mutex
}

func (f *fixedIngester) Run(ctx context.Context) ingest.Result {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.res
}

func (f *fixedIngester) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixedLabeler struct {
	res sentiment.Result
	err error
}

func (f *fixedLabeler) Run(ctx context.Context) (sentiment.Result, error) {
	return f.res, f.err
}

type panickyLabeler struct{}

func (panickyLabeler) Run(ctx context.Context) (sentiment.Result, error) {
	panic("lexicon exploded")
}

type recordingPublisher struct {
	mu        sync.Mutex
	summaries []models.RunSummary
}

func (p *recordingPublisher) PublishSummary(ctx context.Context, s models.RunSummary) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, s)
	return nil
}

func (p *recordingPublisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.summaries)
}

func TestRunSummary(t *testing.T) {
	store := db.NewMemoryStore()
	ing := &fixedIngester{res: ingest.Result{Inserted: 7, Errors: []string{"Two (https://two/rss): timeout"}}}
	lab := &fixedLabeler{res: sentiment.Result{Labeled: 5}}
	pub := &recordingPublisher{}

	r := runner.NewRunner(store, ing, lab, nil)
	r.AddPublisher(pub)
	defer r.Close()

	summary := r.Run(context.Background())
	require.NotEmpty(t, summary.RunID)
	require.Equal(t, 7, summary.InsertedCount)
	require.Equal(t, 5, summary.LabeledCount)
	require.Equal(t, []string{"Two (https://two/rss): timeout"}, summary.Errors)
	require.False(t, summary.Failed())
	require.Equal(t, models.RunPartial, summary.Status)
	require.False(t, summary.FinishedAt.Before(summary.StartedAt))
	require.Equal(t, 1, pub.Len())
}

func TestRunStorageUnavailable(t *testing.T) {
	store := db.NewMemoryStore()
	store.SetPingError(errors.New("dial tcp: connection refused"))
	ing := &fixedIngester{}

	r := runner.NewRunner(store, ing, &fixedLabeler{}, nil)
	defer r.Close()

	summary := r.Run(context.Background())
	require.True(t, summary.Failed())
	require.Equal(t, models.RunFailed, summary.Status)
	require.Contains(t, summary.Errors[0], "storage unavailable")
	require.Zero(t, ing.Calls())

	// Следующий запуск проходит, как только хранилище вернулось.
	store.SetPingError(nil)
	summary = r.Run(context.Background())
	require.False(t, summary.Failed())
	require.Equal(t, models.RunOK, summary.Status)
	require.Equal(t, 1, ing.Calls())
}

func TestRunRecoversPanic(t *testing.T) {
	r := runner.NewRunner(db.NewMemoryStore(), &fixedIngester{res: ingest.Result{Inserted: 2}}, panickyLabeler{}, nil)
	defer r.Close()

	var summary models.RunSummary
	require.NotPanics(t, func() { summary = r.Run(context.Background()) })
	require.Equal(t, 2, summary.InsertedCount)
	require.Contains(t, summary.Errors[len(summary.Errors)-1], "lexicon exploded")
	require.True(t, summary.Failed())
}

func TestRunClassifierError(t *testing.T) {
	r := runner.NewRunner(db.NewMemoryStore(), &fixedIngester{}, &fixedLabeler{err: errors.New("boom")}, nil)
	defer r.Close()

	summary := r.Run(context.Background())
	require.Equal(t, []string{"classify: boom"}, summary.Errors)
	require.Equal(t, models.RunFailed, summary.Status)
}

type explodingFetcher struct{}

func (explodingFetcher) Fetch(ctx context.Context, url string, headers map[string]string) ([]models.FeedEntry, error) {
	if url == "https://a/rss" {
		panic("parser exploded on " + url)
	}
	published := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return []models.FeedEntry{{Title: "Headline", Link: url + "/1", Published: &published}}, nil
}

func TestRunContainsIngestPanic(t *testing.T) {
	store := db.NewMemoryStore()
	sources := []config.Source{
		{Name: "A", URLs: []string{"https://a/rss"}},
		{Name: "B", URLs: []string{"https://b/rss"}},
	}
	pipeline := ingest.NewPipeline(sources, explodingFetcher{}, store, 2, nil)
	r := runner.NewRunner(store, pipeline, &fixedLabeler{}, nil)
	defer r.Close()

	var summary models.RunSummary
	require.NotPanics(t, func() { summary = r.Run(context.Background()) })
	require.Equal(t, 1, summary.InsertedCount)
	require.Len(t, summary.Errors, 1)
	require.Contains(t, summary.Errors[0], "parser exploded")
	require.Equal(t, models.RunPartial, summary.Status)
}

func TestTriggerSingleFlight(t *testing.T) {
	ing := &fixedIngester{block: make(chan struct{})}
	pub := &recordingPublisher{}
	r := runner.NewRunner(db.NewMemoryStore(), ing, &fixedLabeler{}, nil)
	r.AddPublisher(pub)

	require.NoError(t, r.Trigger())
	require.Eventually(t, func() bool { return ing.Calls() == 1 }, time.Second, 5*time.Millisecond)
	require.ErrorIs(t, r.Trigger(), runner.ErrRunInProgress)

	close(ing.block)
	require.Eventually(t, func() bool { return pub.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return r.Trigger() == nil }, time.Second, 5*time.Millisecond)
	r.Close()
	require.Equal(t, 2, ing.Calls())
	require.ErrorIs(t, r.Trigger(), runner.ErrStopped)
}

func TestStartPollingRunsImmediately(t *testing.T) {
	ing := &fixedIngester{}
	r := runner.NewRunner(db.NewMemoryStore(), ing, &fixedLabeler{}, nil)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.StartPolling(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool { return ing.Calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}
