package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"sentiment_aggregator/internal/logger"
	"sentiment_aggregator/internal/models"
	"sentiment_aggregator/internal/runner"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const triggerHeader = "X-Trigger-Token"

// ArticleReader — путь чтения хранилища для API.
type ArticleReader interface {
	Ping(ctx context.Context) error
	Query(ctx context.Context, filter models.Filter, page models.Page) ([]models.Article, error)
	CountByLabel(ctx context.Context) ([]models.LabelCount, error)
	Sources(ctx context.Context) ([]string, error)
}

// Trigger планирует асинхронный запуск конвейера.
type Trigger interface {
	Trigger() error
}

// Server хранит зависимости HTTP-обработчиков.
type Server struct {
	store   ArticleReader
	trigger Trigger
	secret  string
	metrics http.Handler
}

// NewServer создаёт Server. Пустой secret отключает запуск по запросу;
// metrics может быть nil.
func NewServer(store ArticleReader, trigger Trigger, secret string, metrics http.Handler) *Server {
	return &Server{store: store, trigger: trigger, secret: secret, metrics: metrics}
}

// Routes собирает маршрутизатор со всеми обработчиками.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.HealthCheck)
	r.Get("/articles", s.GetArticles)
	r.Get("/articles/sentiment-counts", s.GetSentimentCounts)
	r.Get("/articles/sources", s.GetSources)
	r.Post("/pipeline/run", s.TriggerRun)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// HealthCheck отвечает 200 OK, если база доступна, иначе 503.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		http.Error(w, "DB unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("OK"))
}

// GetArticles возвращает статьи по фильтрам sentiment_label, source, published
// с пагинацией limit/offset, новые первыми.
func (s *Server) GetArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := models.Filter{
		SentimentLabel: models.Label(q.Get("sentiment_label")),
		Source:         q.Get("source"),
		Published:      q.Get("published"),
	}
	if err := filter.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page := models.Page{Limit: models.DefaultLimit}
	var err error
	if raw := q.Get("limit"); raw != "" {
		if page.Limit, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if page.Offset, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
	}
	if err := page.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	articles, err := s.store.Query(r.Context(), filter, page)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

// GetSentimentCounts возвращает количество статей по меткам.
func (s *Server) GetSentimentCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountByLabel(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// GetSources возвращает список известных источников.
func (s *Server) GetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.Sources(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

// TriggerRun планирует запуск конвейера и сразу отвечает 202.
func (s *Server) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.secret == "" || s.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline trigger is not configured")
		return
	}

	token := r.Header.Get(triggerHeader)
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid trigger token")
		return
	}

	switch err := s.trigger.Trigger(); {
	case err == nil:
	case errors.Is(err, runner.ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, runner.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "service is shutting down")
		return
	default:
		logger.For("api").Errorf("Trigger failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.For("api").WithField("request_id", r.Header.Get(requestIDHeader))

	if errors.Is(err, models.ErrInvalidFilter) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if pingErr := s.store.Ping(r.Context()); pingErr != nil {
		log.Errorf("Storage unavailable: %v", err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	log.Errorf("Storage error: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.For("api").Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
