package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — счётчики конвейера. Нулевой указатель допустим: методы ничего не делают.
type Metrics struct {
	articlesInserted *prometheus.CounterVec
	fetchFailures    *prometheus.CounterVec
	entriesDropped   *prometheus.CounterVec
	articlesLabeled  *prometheus.CounterVec
	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
}

// New регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		articlesInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aggregator",
			Name:      "articles_inserted_total",
			Help:      "Articles stored for the first time, by source.",
		}, []string{"source"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aggregator",
			Name:      "feed_fetch_failures_total",
			Help:      "Feed URLs that could not be fetched or parsed, by source.",
		}, []string{"source"}),
		entriesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aggregator",
			Name:      "feed_entries_dropped_total",
			Help:      "Feed entries dropped for missing required fields, by source.",
		}, []string{"source"}),
		articlesLabeled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aggregator",
			Name:      "articles_labeled_total",
			Help:      "Articles assigned a sentiment label, by label.",
		}, []string{"label"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aggregator",
			Name:      "pipeline_runs_total",
			Help:      "Completed pipeline runs, by status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aggregator",
			Name:      "pipeline_run_duration_seconds",
			Help:      "Wall time of a pipeline run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
	}

	reg.MustRegister(m.articlesInserted, m.fetchFailures, m.entriesDropped,
		m.articlesLabeled, m.runs, m.runDuration)
	return m
}

func (m *Metrics) ArticleInserted(source string) {
	if m == nil {
		return
	}
	m.articlesInserted.WithLabelValues(source).Inc()
}

func (m *Metrics) FetchFailed(source string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) EntryDropped(source string) {
	if m == nil {
		return
	}
	m.entriesDropped.WithLabelValues(source).Inc()
}

func (m *Metrics) ArticleLabeled(label string) {
	if m == nil {
		return
	}
	m.articlesLabeled.WithLabelValues(label).Inc()
}

// RunFinished учитывает запуск по статусу: ok, partial или failed.
func (m *Metrics) RunFinished(status string, took time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(took.Seconds())
}
