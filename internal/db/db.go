package db

import (
	"context"
	"errors"
	"fmt"

	"sentiment_aggregator/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrArticleNotFound = errors.New("article not found")
	ErrAlreadyLabeled  = errors.New("article already labeled")
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id              BIGSERIAL PRIMARY KEY,
	title           TEXT NOT NULL,
	link            TEXT NOT NULL UNIQUE,
	published       TIMESTAMPTZ NOT NULL,
	summary         TEXT,
	source          TEXT NOT NULL,
	type            TEXT NOT NULL DEFAULT 'news',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	sentiment_score DOUBLE PRECISION CHECK (sentiment_score BETWEEN -1 AND 1),
	sentiment_label TEXT CHECK (sentiment_label IN ('positive', 'neutral', 'negative')),
	CHECK ((sentiment_score IS NULL) = (sentiment_label IS NULL))
);

CREATE INDEX IF NOT EXISTS articles_published_idx ON articles (published DESC, id DESC);
CREATE INDEX IF NOT EXISTS articles_source_idx ON articles (source);
CREATE INDEX IF NOT EXISTS articles_unlabeled_idx ON articles (id) WHERE sentiment_label IS NULL;
`

var articleColumns = []string{
	"id", "title", "link", "published", "summary", "source", "type",
	"created_at", "sentiment_score", "sentiment_label",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Database инкапсулирует пул соединений к PostgreSQL.
// Каждая операция берёт соединение из пула и сразу возвращает его.
type Database struct {
	Pool *pgxpool.Pool
}

// NewDB создаёт пул по connString. Пул подключается лениво, поэтому
// недоступная база не мешает запуску процесса: ошибки проявятся в операциях.
func NewDB(ctx context.Context, connString string) (*Database, error) {
	if connString == "" {
		return nil, errors.New("database url is not configured")
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return &Database{Pool: pool}, nil
}

// Close закрывает пул соединений.
func (db *Database) Close() {
	db.Pool.Close()
}

// Ping проверяет доступность базы.
func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// EnsureSchema идемпотентно создаёт таблицу articles и индексы.
func (db *Database) EnsureSchema(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InsertIfAbsent сохраняет статью, если ссылки ещё нет в таблице.
// Повтор ссылки — не ошибка: возвращается false и строка не меняется.
func (db *Database) InsertIfAbsent(ctx context.Context, article *models.Article) (bool, error) {
	articleType := article.Type
	if articleType == "" {
		articleType = models.TypeNews
	}

	var id int64
	err := db.Pool.QueryRow(ctx, `
        INSERT INTO articles (title, link, published, summary, source, type, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (link) DO NOTHING
        RETURNING id
    `, article.Title, article.Link, article.Published, nullString(article.Summary),
		article.Source, articleType, article.CreatedAt).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert article %s: %w", article.Link, err)
	}

	article.ID = id
	article.Type = articleType
	return true, nil
}

// FetchUnlabeled возвращает статьи без метки тональности; limit <= 0 — без ограничения.
func (db *Database) FetchUnlabeled(ctx context.Context, limit int) ([]models.Article, error) {
	query, args, err := buildUnlabeledQuery(limit)
	if err != nil {
		return nil, err
	}
	return db.queryArticles(ctx, query, args...)
}

// ApplyLabel записывает оценку и метку. Обновляется только строка без метки,
// поэтому повторная классификация невозможна.
func (db *Database) ApplyLabel(ctx context.Context, id int64, score float64, label models.Label) error {
	if !label.Valid() {
		return fmt.Errorf("apply label: invalid label %q", label)
	}

	tag, err := db.Pool.Exec(ctx, `
        UPDATE articles
        SET sentiment_score = $1, sentiment_label = $2
        WHERE id = $3 AND sentiment_label IS NULL
    `, score, string(label), id)
	if err != nil {
		return fmt.Errorf("apply label to article %d: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check article %d: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("article %d: %w", id, ErrArticleNotFound)
	}
	return fmt.Errorf("article %d: %w", id, ErrAlreadyLabeled)
}

// Query возвращает статьи по фильтрам, новые первыми.
func (db *Database) Query(ctx context.Context, filter models.Filter, page models.Page) ([]models.Article, error) {
	query, args, err := buildArticlesQuery(filter, page)
	if err != nil {
		return nil, err
	}
	return db.queryArticles(ctx, query, args...)
}

// CountByLabel возвращает количество статей по меткам; статьи без метки
// учитываются под ключом models.UnlabeledKey.
func (db *Database) CountByLabel(ctx context.Context) ([]models.LabelCount, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT COALESCE(sentiment_label, $1) AS label, COUNT(*)
        FROM articles
        GROUP BY label
        ORDER BY label
    `, models.UnlabeledKey)
	if err != nil {
		return nil, fmt.Errorf("count by label: %w", err)
	}
	defer rows.Close()

	counts := []models.LabelCount{}
	for rows.Next() {
		var c models.LabelCount
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, fmt.Errorf("scan label count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// Sources возвращает отсортированный список источников, у которых есть статьи.
func (db *Database) Sources(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `SELECT DISTINCT source FROM articles ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	sources := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (db *Database) queryArticles(ctx context.Context, query string, args ...any) ([]models.Article, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	articles := []models.Article{}
	for rows.Next() {
		var (
			a       models.Article
			summary *string
			label   *string
		)
		if err := rows.Scan(&a.ID, &a.Title, &a.Link, &a.Published, &summary, &a.Source,
			&a.Type, &a.CreatedAt, &a.SentimentScore, &label); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if summary != nil {
			a.Summary = *summary
		}
		if label != nil {
			l := models.Label(*label)
			a.SentimentLabel = &l
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

func buildArticlesQuery(filter models.Filter, page models.Page) (string, []any, error) {
	if err := filter.Validate(); err != nil {
		return "", nil, err
	}
	if err := page.Validate(); err != nil {
		return "", nil, err
	}

	q := psql.Select(articleColumns...).From("articles")
	if filter.SentimentLabel != "" {
		q = q.Where(sq.Eq{"sentiment_label": string(filter.SentimentLabel)})
	}
	if filter.Source != "" {
		q = q.Where(sq.Eq{"source": filter.Source})
	}
	if filter.Published != "" {
		start, end, err := models.PublishedRange(filter.Published)
		if err != nil {
			return "", nil, err
		}
		q = q.Where(sq.GtOrEq{"published": start}).Where(sq.Lt{"published": end})
	}

	return q.OrderBy("published DESC", "id DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset)).
		ToSql()
}

func buildUnlabeledQuery(limit int) (string, []any, error) {
	q := psql.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"sentiment_label": nil}).
		OrderBy("id")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q.ToSql()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
