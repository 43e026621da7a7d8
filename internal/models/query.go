package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultLimit = 1000
	MaxLimit     = 10000
)

var ErrInvalidFilter = errors.New("invalid filter")

// Filter описывает фильтры выборки статей. Пустое поле не фильтрует.
type Filter struct {
	SentimentLabel Label
	Source         string
	// Published — префикс даты публикации: YYYY, YYYY-MM или YYYY-MM-DD.
	Published string
}

// Page задаёт пагинацию offset/limit.
type Page struct {
	Limit  int
	Offset int
}

// Validate проверяет значения фильтра.
func (f Filter) Validate() error {
	if f.SentimentLabel != "" && !f.SentimentLabel.Valid() {
		return fmt.Errorf("%w: unknown sentiment_label %q", ErrInvalidFilter, f.SentimentLabel)
	}
	if f.Published != "" {
		if _, _, err := PublishedRange(f.Published); err != nil {
			return err
		}
	}
	return nil
}

// Validate проверяет границы пагинации.
func (p Page) Validate() error {
	if p.Limit < 1 || p.Limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidFilter, MaxLimit)
	}
	if p.Offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0", ErrInvalidFilter)
	}
	return nil
}

// PublishedRange переводит префикс даты в полуоткрытый интервал [start, end) в UTC.
func PublishedRange(prefix string) (time.Time, time.Time, error) {
	prefix = strings.TrimSpace(prefix)
	switch len(prefix) {
	case len("2006"):
		start, err := time.Parse("2006", prefix)
		if err != nil {
			break
		}
		return start, start.AddDate(1, 0, 0), nil
	case len("2006-01"):
		start, err := time.Parse("2006-01", prefix)
		if err != nil {
			break
		}
		return start, start.AddDate(0, 1, 0), nil
	case len("2006-01-02"):
		start, err := time.Parse("2006-01-02", prefix)
		if err != nil {
			break
		}
		return start, start.AddDate(0, 0, 1), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("%w: published must be YYYY, YYYY-MM or YYYY-MM-DD, got %q", ErrInvalidFilter, prefix)
}
