package db

import (
	"context"

	"sentiment_aggregator/internal/models"
)

// Store — полный контракт хранилища статей.
type Store interface {
	Ping(ctx context.Context) error
	EnsureSchema(ctx context.Context) error
	InsertIfAbsent(ctx context.Context, article *models.Article) (bool, error)
	FetchUnlabeled(ctx context.Context, limit int) ([]models.Article, error)
	ApplyLabel(ctx context.Context, id int64, score float64, label models.Label) error
	Query(ctx context.Context, filter models.Filter, page models.Page) ([]models.Article, error)
	CountByLabel(ctx context.Context) ([]models.LabelCount, error)
	Sources(ctx context.Context) ([]string, error)
}

var (
	_ Store = (*Database)(nil)
	_ Store = (*MemoryStore)(nil)
)
