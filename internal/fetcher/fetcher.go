package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sentiment_aggregator/internal/logger"
	"sentiment_aggregator/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const (
	// DefaultTimeout — верхняя граница одной загрузки ленты.
	DefaultTimeout = 15 * time.Second
	// MaxBodySize ограничивает размер читаемого тела ответа.
	MaxBodySize = 10 << 20

	defaultUserAgent = "sentiment-aggregator/1.0"
)

// StatusError возвращается, если лента ответила не 2xx.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Fetcher загружает и разбирает RSS/Atom-ленты.
type Fetcher struct {
	client *http.Client
}

// NewFetcher создаёт загрузчик с таймаутом timeout на один запрос.
// insecureSkipVerify отключает проверку TLS-сертификатов; использовать только осознанно.
func NewFetcher(timeout time.Duration, insecureSkipVerify bool) *Fetcher {
	if timeout <= 0 || timeout > DefaultTimeout {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		logger.For("fetcher").Warn("TLS certificate verification is disabled for feed fetching")
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Fetcher{client: &http.Client{Timeout: timeout, Transport: transport}}
}

// NewFetcherWithClient использует готовый HTTP-клиент.
func NewFetcherWithClient(client *http.Client) *Fetcher {
	if client == nil {
		return NewFetcher(DefaultTimeout, false)
	}
	return &Fetcher{client: client}
}

// Fetch выполняет один GET по url с заголовками headers и возвращает записи ленты.
// Любая сетевая ошибка, не-2xx статус или неразборчивое тело возвращаются как error.
func (f *Fetcher) Fetch(ctx context.Context, url string, headers map[string]string) ([]models.FeedEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	feed, err := gofeed.NewParser().Parse(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]models.FeedEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, toEntry(item))
	}
	return entries, nil
}

func toEntry(item *gofeed.Item) models.FeedEntry {
	link := strings.TrimSpace(item.Link)
	if link == "" && len(item.Links) > 0 {
		link = strings.TrimSpace(item.Links[0])
	}

	return models.FeedEntry{
		Title:        PlainText(item.Title),
		Link:         link,
		Published:    publishedAt(item),
		PublishedRaw: item.Published,
		Summary:      PlainText(item.Description),
		Content:      PlainText(item.Content),
	}
}

// publishedAt берёт дату, разобранную gofeed, затем пробует свои форматы,
// затем updated (Atom-ленты часто не содержат published).
func publishedAt(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	if t, err := ParsePublished(item.Published); err == nil {
		return &t
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed
	}
	return nil
}

// PlainText убирает HTML-разметку и схлопывает пробелы.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
