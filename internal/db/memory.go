package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"sentiment_aggregator/internal/models"
)

// MemoryStore — хранилище статей в памяти с той же семантикой, что и Database.
// Используется в тестах и при локальной отладке без PostgreSQL.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	articles []models.Article
	byLink   map[string]int
	pingErr  error
}

// NewMemoryStore создаёт пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byLink: make(map[string]int)}
}

// SetPingError имитирует недоступность хранилища: Ping и все операции
// возвращают err, пока он не сброшен в nil.
func (m *MemoryStore) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingErr
}

func (m *MemoryStore) EnsureSchema(ctx context.Context) error {
	return m.Ping(ctx)
}

func (m *MemoryStore) InsertIfAbsent(ctx context.Context, article *models.Article) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pingErr != nil {
		return false, m.pingErr
	}
	if _, ok := m.byLink[article.Link]; ok {
		return false, nil
	}

	m.nextID++
	stored := *article
	stored.ID = m.nextID
	if stored.Type == "" {
		stored.Type = models.TypeNews
	}
	stored.SentimentScore = nil
	stored.SentimentLabel = nil

	m.byLink[stored.Link] = len(m.articles)
	m.articles = append(m.articles, stored)

	article.ID = stored.ID
	article.Type = stored.Type
	return true, nil
}

func (m *MemoryStore) FetchUnlabeled(ctx context.Context, limit int) ([]models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pingErr != nil {
		return nil, m.pingErr
	}

	result := []models.Article{}
	for _, a := range m.articles {
		if a.Labeled() {
			continue
		}
		result = append(result, copyArticle(a))
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *MemoryStore) ApplyLabel(ctx context.Context, id int64, score float64, label models.Label) error {
	if !label.Valid() {
		return fmt.Errorf("apply label: invalid label %q", label)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pingErr != nil {
		return m.pingErr
	}
	for i := range m.articles {
		if m.articles[i].ID != id {
			continue
		}
		if m.articles[i].Labeled() {
			return fmt.Errorf("article %d: %w", id, ErrAlreadyLabeled)
		}
		s, l := score, label
		m.articles[i].SentimentScore = &s
		m.articles[i].SentimentLabel = &l
		return nil
	}
	return fmt.Errorf("article %d: %w", id, ErrArticleNotFound)
}

func (m *MemoryStore) Query(ctx context.Context, filter models.Filter, page models.Page) ([]models.Article, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pingErr != nil {
		return nil, m.pingErr
	}

	matched := []models.Article{}
	for _, a := range m.articles {
		if matches(a, filter) {
			matched = append(matched, copyArticle(a))
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Published.Equal(matched[j].Published) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].Published.After(matched[j].Published)
	})

	if page.Offset >= len(matched) {
		return []models.Article{}, nil
	}
	end := page.Offset + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[page.Offset:end], nil
}

func (m *MemoryStore) CountByLabel(ctx context.Context) ([]models.LabelCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pingErr != nil {
		return nil, m.pingErr
	}

	totals := map[string]int64{}
	for _, a := range m.articles {
		key := models.UnlabeledKey
		if a.Labeled() {
			key = string(*a.SentimentLabel)
		}
		totals[key]++
	}

	counts := make([]models.LabelCount, 0, len(totals))
	for label, n := range totals {
		counts = append(counts, models.LabelCount{Label: label, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Label < counts[j].Label })
	return counts, nil
}

func (m *MemoryStore) Sources(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pingErr != nil {
		return nil, m.pingErr
	}

	seen := map[string]struct{}{}
	sources := []string{}
	for _, a := range m.articles {
		if _, ok := seen[a.Source]; ok {
			continue
		}
		seen[a.Source] = struct{}{}
		sources = append(sources, a.Source)
	}
	sort.Strings(sources)
	return sources, nil
}

func matches(a models.Article, f models.Filter) bool {
	if f.SentimentLabel != "" && (a.SentimentLabel == nil || *a.SentimentLabel != f.SentimentLabel) {
		return false
	}
	if f.Source != "" && a.Source != f.Source {
		return false
	}
	if f.Published != "" {
		start, end, err := models.PublishedRange(f.Published)
		if err != nil {
			return false
		}
		if a.Published.Before(start) || !a.Published.Before(end) {
			return false
		}
	}
	return true
}

func copyArticle(a models.Article) models.Article {
	if a.SentimentScore != nil {
		s := *a.SentimentScore
		a.SentimentScore = &s
	}
	if a.SentimentLabel != nil {
		l := *a.SentimentLabel
		a.SentimentLabel = &l
	}
	return a
}
