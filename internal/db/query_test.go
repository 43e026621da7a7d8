package db

import (
	"testing"
	"time"

	"sentiment_aggregator/internal/models"

	"github.com/stretchr/testify/require"
)

func TestBuildArticlesQuery_NoFilters(t *testing.T) {
	query, args, err := buildArticlesQuery(models.Filter{}, models.Page{Limit: 10})
	require.NoError(t, err)
	require.NotContains(t, query, "WHERE")
	require.Contains(t, query, "FROM articles")
	require.Contains(t, query, "ORDER BY published DESC, id DESC")
	require.Contains(t, query, "LIMIT 10")
	require.Contains(t, query, "OFFSET 0")
	require.Empty(t, args)
}

func TestBuildArticlesQuery_AllFilters(t *testing.T) {
	query, args, err := buildArticlesQuery(models.Filter{
		SentimentLabel: models.LabelPositive,
		Source:         "A",
		Published:      "2024-05",
	}, models.Page{Limit: 10, Offset: 20})
	require.NoError(t, err)

	require.Contains(t, query, "sentiment_label = $1")
	require.Contains(t, query, "source = $2")
	require.Contains(t, query, "published >= $3")
	require.Contains(t, query, "published < $4")
	require.Contains(t, query, "LIMIT 10")
	require.Contains(t, query, "OFFSET 20")

	require.Equal(t, []any{
		"positive",
		"A",
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}, args)
}

func TestBuildArticlesQuery_Invalid(t *testing.T) {
	_, _, err := buildArticlesQuery(models.Filter{SentimentLabel: "mixed"}, models.Page{Limit: 10})
	require.ErrorIs(t, err, models.ErrInvalidFilter)

	_, _, err = buildArticlesQuery(models.Filter{}, models.Page{Limit: 0})
	require.ErrorIs(t, err, models.ErrInvalidFilter)

	_, _, err = buildArticlesQuery(models.Filter{}, models.Page{Limit: 10, Offset: -5})
	require.ErrorIs(t, err, models.ErrInvalidFilter)
}

func TestBuildUnlabeledQuery(t *testing.T) {
	query, args, err := buildUnlabeledQuery(0)
	require.NoError(t, err)
	require.Contains(t, query, "sentiment_label IS NULL")
	require.NotContains(t, query, "LIMIT")
	require.Empty(t, args)

	query, _, err = buildUnlabeledQuery(50)
	require.NoError(t, err)
	require.Contains(t, query, "LIMIT 50")
}
