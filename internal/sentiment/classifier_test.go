package sentiment_test

import (
	"context"
	"testing"
	"time"

	"sentiment_aggregator/internal/db"
	"sentiment_aggregator/internal/models"
	"sentiment_aggregator/internal/sentiment"

	"github.com/stretchr/testify/require"
)

type stubScorer map[string]float64

func (s stubScorer) Compound(text string) float64 {
	return s[text]
}

func TestLabelFor(t *testing.T) {
	testCases := []struct {
		score    float64
		expected models.Label
	}{
		{0.05, models.LabelPositive},
		{0.9, models.LabelPositive},
		{-0.05, models.LabelNegative},
		{-1, models.LabelNegative},
		{0.0, models.LabelNeutral},
		{0.049999, models.LabelNeutral},
		{-0.049999, models.LabelNeutral},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.expected, sentiment.LabelFor(tc.score), "score %v", tc.score)
	}
}

func TestText(t *testing.T) {
	require.Equal(t, "Title body", sentiment.Text(models.Article{Title: " Title ", Summary: "body "}))
	require.Equal(t, "Title", sentiment.Text(models.Article{Title: "Title"}))
	require.Equal(t, "body", sentiment.Text(models.Article{Summary: "body"}))
	require.Equal(t, "", sentiment.Text(models.Article{Title: "  ", Summary: "\n"}))
}

func insert(t *testing.T, store *db.MemoryStore, title, summary, link string) int64 {
	t.Helper()
	a := &models.Article{
		Title:     title,
		Summary:   summary,
		Link:      link,
		Source:    "CNBC",
		Published: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	inserted, err := store.InsertIfAbsent(context.Background(), a)
	require.NoError(t, err)
	require.True(t, inserted)
	return a.ID
}

func TestClassifierRun(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()

	insert(t, store, "Stocks soar", "record highs", "https://x/1")
	insert(t, store, "Markets crash", "heavy losses", "https://x/2")
	insert(t, store, "Rates unchanged", "", "https://x/3")
	insert(t, store, " ", "", "https://x/4")

	scorer := stubScorer{
		"Stocks soar record highs":  0.8,
		"Markets crash heavy losses": -0.7,
		"Rates unchanged":            0.0,
	}
	c := sentiment.NewClassifier(store, scorer, 0, nil)

	res, err := c.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, res.Labeled)
	require.Equal(t, 1, res.Skipped)
	require.Empty(t, res.Errors)

	counts, err := store.CountByLabel(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []models.LabelCount{
		{Label: "negative", Count: 1},
		{Label: "neutral", Count: 1},
		{Label: "positive", Count: 1},
		{Label: models.UnlabeledKey, Count: 1},
	}, counts)

	// Статья с пустым текстом остаётся доступной следующему проходу.
	left, err := store.FetchUnlabeled(ctx, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
	require.Equal(t, "https://x/4", left[0].Link)
}

func TestClassifierLabelOnce(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	id := insert(t, store, "Stocks soar", "", "https://x/1")

	first := sentiment.NewClassifier(store, stubScorer{"Stocks soar": 0.6}, 0, nil)
	res, err := first.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Labeled)

	second := sentiment.NewClassifier(store, stubScorer{"Stocks soar": -0.9}, 0, nil)
	res, err = second.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, res.Labeled)

	got, err := store.Query(ctx, models.Filter{}, models.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, id, got[0].ID)
	require.Equal(t, models.LabelPositive, *got[0].SentimentLabel)
	require.Equal(t, 0.6, *got[0].SentimentScore)
}

func TestClassifierClampsScore(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	insert(t, store, "Off the charts", "", "https://x/1")

	res, err := sentiment.NewClassifier(store, stubScorer{"Off the charts": 3.2}, 0, nil).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, res.Labeled)

	got, err := store.Query(ctx, models.Filter{}, models.Page{Limit: 1})
	require.NoError(t, err)
	require.Equal(t, 1.0, *got[0].SentimentScore)
}

func TestClassifierBatchSize(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemoryStore()
	insert(t, store, "a", "", "https://x/1")
	insert(t, store, "b", "", "https://x/2")
	insert(t, store, "c", "", "https://x/3")

	res, err := sentiment.NewClassifier(store, stubScorer{}, 2, nil).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, res.Labeled)

	left, err := store.FetchUnlabeled(ctx, 0)
	require.NoError(t, err)
	require.Len(t, left, 1)
}

func TestClassifierStorageUnavailable(t *testing.T) {
	store := db.NewMemoryStore()
	store.SetPingError(context.DeadlineExceeded)

	_, err := sentiment.NewClassifier(store, stubScorer{}, 0, nil).Run(context.Background())
	require.Error(t, err)
}

func TestVaderScorer(t *testing.T) {
	v := sentiment.NewVaderScorer()
	require.Greater(t, v.Compound("Great profits, excellent growth and a wonderful outlook"), 0.05)
	require.Less(t, v.Compound("Terrible losses and a horrible, awful crash"), -0.05)
	require.Equal(t, models.LabelNeutral, sentiment.LabelFor(v.Compound("The meeting is on Tuesday")))
}
