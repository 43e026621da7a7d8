package models

import "time"

// TypeNews — единственный пока вид записи.
const TypeNews = "news"

// Label — метка тональности статьи.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// Valid сообщает, входит ли метка в допустимый набор.
func (l Label) Valid() bool {
	switch l {
	case LabelPositive, LabelNeutral, LabelNegative:
		return true
	}
	return false
}

// Article представляет сохранённую новость.
// SentimentScore и SentimentLabel заполняются вместе и ровно один раз.
type Article struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Link           string    `json:"link"`
	Published      time.Time `json:"published"`
	Summary        string    `json:"summary"`
	Source         string    `json:"source"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"created_at"`
	SentimentScore *float64  `json:"sentiment_score"`
	SentimentLabel *Label    `json:"sentiment_label"`
}

// Labeled сообщает, была ли статья уже классифицирована.
func (a Article) Labeled() bool {
	return a.SentimentLabel != nil
}

// LabelCount — количество статей с данной меткой.
type LabelCount struct {
	Label string `json:"sentiment_label"`
	Count int64  `json:"count"`
}

// UnlabeledKey обозначает в агрегатах статьи без метки.
const UnlabeledKey = "unlabeled"
