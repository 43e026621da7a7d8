package models

import (
	"strings"
	"time"
)

// FeedEntry — одна запись из RSS/Atom-ленты после разбора.
// Необязательные поля пусты, если источник их не прислал.
type FeedEntry struct {
	Title        string
	Link         string
	Published    *time.Time
	PublishedRaw string
	Summary      string
	Content      string
}

// SummaryText возвращает первое непустое из summary, content, title.
func (e FeedEntry) SummaryText() string {
	for _, candidate := range []string{e.Summary, e.Content, e.Title} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s
		}
	}
	return ""
}

// MissingFields перечисляет обязательные поля, которых нет в записи.
func (e FeedEntry) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(e.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(e.Link) == "" {
		missing = append(missing, "link")
	}
	if e.Published == nil || e.Published.IsZero() {
		missing = append(missing, "published")
	}
	return missing
}

// ToArticle строит статью из записи ленты. Запись должна быть полной.
func (e FeedEntry) ToArticle(source string, now time.Time) Article {
	return Article{
		Title:     strings.TrimSpace(e.Title),
		Link:      strings.TrimSpace(e.Link),
		Published: *e.Published,
		Summary:   e.SummaryText(),
		Source:    source,
		Type:      TypeNews,
		CreatedAt: now,
	}
}
