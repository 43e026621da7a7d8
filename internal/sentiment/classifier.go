package sentiment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sentiment_aggregator/internal/db"
	"sentiment_aggregator/internal/logger"
	"sentiment_aggregator/internal/metrics"
	"sentiment_aggregator/internal/models"

	"github.com/jonreiter/govader"
)

const (
	PositiveThreshold = 0.05
	NegativeThreshold = -0.05
)

// Scorer возвращает компаунд-оценку тональности текста в [-1, 1].
type Scorer interface {
	Compound(text string) float64
}

// VaderScorer — лексиконный анализатор VADER.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderScorer) Compound(text string) float64 {
	return v.analyzer.PolarityScores(text).Compound
}

// LabelFor переводит оценку в метку по фиксированным порогам.
func LabelFor(score float64) models.Label {
	switch {
	case score >= PositiveThreshold:
		return models.LabelPositive
	case score <= NegativeThreshold:
		return models.LabelNegative
	default:
		return models.LabelNeutral
	}
}

// LabelStore — часть хранилища, нужная классификатору.
type LabelStore interface {
	FetchUnlabeled(ctx context.Context, limit int) ([]models.Article, error)
	ApplyLabel(ctx context.Context, id int64, score float64, label models.Label) error
}

// Result — итог одного прохода.
type Result struct {
	Labeled int
	Skipped int
	Errors  []string
}

type Classifier struct {
	store     LabelStore
	scorer    Scorer
	batchSize int
	metrics   *metrics.Metrics
}

// NewClassifier создаёт классификатор; batchSize <= 0 — все статьи без метки за проход.
func NewClassifier(store LabelStore, scorer Scorer, batchSize int, m *metrics.Metrics) *Classifier {
	if scorer == nil {
		scorer = NewVaderScorer()
	}
	return &Classifier{store: store, scorer: scorer, batchSize: batchSize, metrics: m}
}

// Run размечает статьи без метки. Ошибка возвращается только если не удалось
// прочитать список; ошибки отдельных статей попадают в Result.Errors.
func (c *Classifier) Run(ctx context.Context) (Result, error) {
	log := logger.For("sentiment")
	var res Result

	articles, err := c.store.FetchUnlabeled(ctx, c.batchSize)
	if err != nil {
		return res, fmt.Errorf("fetch unlabeled: %w", err)
	}
	log.Debugf("Classifying %d articles", len(articles))

	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		text := Text(a)
		if text == "" {
			log.WithField("article_id", a.ID).Warn("Empty text, leaving article unlabeled")
			res.Skipped++
			continue
		}

		score := clamp(c.scorer.Compound(text))
		label := LabelFor(score)

		err := c.store.ApplyLabel(ctx, a.ID, score, label)
		switch {
		case err == nil:
			res.Labeled++
			c.metrics.ArticleLabeled(string(label))
		case errors.Is(err, db.ErrAlreadyLabeled):
			res.Skipped++
		default:
			log.WithField("article_id", a.ID).Errorf("Apply label failed: %v", err)
			res.Errors = append(res.Errors, err.Error())
		}
	}

	log.Infof("Labeled %d articles, skipped %d", res.Labeled, res.Skipped)
	return res, nil
}

// Text собирает текст для оценки из заголовка и описания.
func Text(a models.Article) string {
	return strings.TrimSpace(strings.TrimSpace(a.Title) + " " + strings.TrimSpace(a.Summary))
}

func clamp(score float64) float64 {
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}
