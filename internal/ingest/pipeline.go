package ingest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"sentiment_aggregator/internal/config"
	"sentiment_aggregator/internal/logger"
	"sentiment_aggregator/internal/metrics"
	"sentiment_aggregator/internal/models"

	"golang.org/x/sync/errgroup"
)

// FeedFetcher загружает записи одной ленты.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) ([]models.FeedEntry, error)
}

// ArticleWriter — часть хранилища, нужная конвейеру.
type ArticleWriter interface {
	InsertIfAbsent(ctx context.Context, article *models.Article) (bool, error)
}

// Result — итог прохода по всем источникам.
type Result struct {
	Inserted int
	Dropped  int
	Errors   []string
}

type job struct {
	source  string
	url     string
	headers map[string]string
}

// Pipeline обходит реестр источников и сохраняет новые статьи.
type Pipeline struct {
	sources []config.Source
	fetcher FeedFetcher
	store   ArticleWriter
	workers int
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPipeline(sources []config.Source, f FeedFetcher, store ArticleWriter, workers int, m *metrics.Metrics) *Pipeline {
	if workers <= 0 {
		workers = len(sources)
	}
	if workers <= 0 {
		workers = 1
	}
	return &Pipeline{
		sources: sources,
		fetcher: f,
		store:   store,
		workers: workers,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run загружает каждую ленту в пуле из workers горутин. Сбой или паника
// одной ленты не останавливает остальные: ошибки копятся в Result.Errors.
func (p *Pipeline) Run(ctx context.Context) Result {
	var (
		mu  sync.Mutex
		res Result
		g   errgroup.Group
	)
	g.SetLimit(p.workers)

	for _, j := range p.jobs() {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			inserted, dropped, err := p.safeProcess(ctx, j)

			mu.Lock()
			defer mu.Unlock()
			res.Inserted += inserted
			res.Dropped += dropped
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s (%s): %v", j.source, j.url, err))
			}
			return nil
		})
	}
	g.Wait()

	return res
}

// safeProcess превращает панику при обработке ленты в ошибку этой ленты.
func (p *Pipeline) safeProcess(ctx context.Context, j job) (inserted, dropped int, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.For("ingest").WithFields(logger.Fields{"source": j.source, "url": j.url}).
				Errorf("Feed processing panicked: %v", r)
			p.metrics.FetchFailed(j.source)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.process(ctx, j)
}

func (p *Pipeline) jobs() []job {
	var jobs []job
	for _, src := range p.sources {
		for _, u := range src.URLs {
			jobs = append(jobs, job{source: src.Name, url: u, headers: src.Headers})
		}
	}
	return jobs
}

func (p *Pipeline) process(ctx context.Context, j job) (inserted, dropped int, err error) {
	log := logger.For("ingest").WithFields(logger.Fields{"source": j.source, "url": j.url})

	entries, err := p.fetcher.Fetch(ctx, j.url, j.headers)
	if err != nil {
		log.Errorf("Fetch failed: %v", err)
		p.metrics.FetchFailed(j.source)
		return 0, 0, err
	}

	now := p.now()
	for _, entry := range entries {
		if missing := entry.MissingFields(); len(missing) > 0 {
			log.WithField("link", entry.Link).Warnf("Dropping entry without %s", strings.Join(missing, ", "))
			p.metrics.EntryDropped(j.source)
			dropped++
			continue
		}

		article := entry.ToArticle(j.source, now)
		ok, err := p.store.InsertIfAbsent(ctx, &article)
		if err != nil {
			log.Errorf("Insert failed: %v", err)
			return inserted, dropped, err
		}
		if ok {
			inserted++
			p.metrics.ArticleInserted(j.source)
		}
	}

	log.Infof("Processed %d entries, %d new", len(entries), inserted)
	return inserted, dropped, nil
}
