package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentiment_aggregator/internal/config"
	"sentiment_aggregator/internal/db"
	"sentiment_aggregator/internal/fetcher"
	"sentiment_aggregator/internal/ingest"
	"sentiment_aggregator/internal/logger"
	"sentiment_aggregator/internal/metrics"
	"sentiment_aggregator/internal/queue"
	"sentiment_aggregator/internal/runner"
	"sentiment_aggregator/internal/sentiment"
	"sentiment_aggregator/internal/server"
	"sentiment_aggregator/internal/worker"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "config.json", "path to JSON or YAML config")
	once := flag.Bool("once", false, "run the pipeline once and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Log.Warnf("Failed to load .env: %v", err)
	}
	logger.Init()
	defer logger.Log.Info("Application stopped")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Загрузка конфигурации
	cfg, err := config.LoadConfig(*configPath)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Log.Warnf("Config %s not found, using built-in source registry", *configPath)
		cfg = config.Default()
		cfg.ApplyEnv()
	} else if err != nil {
		logger.Log.Fatalf("Config load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Log.Fatalf("Invalid config: %v", err)
	}

	// Инициализация БД: пул подключается лениво, недоступная база
	// проявится как неудачный запуск, а не как падение процесса.
	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("DB init error: %v", err)
	}
	defer database.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	pipeline := ingest.NewPipeline(
		cfg.Sources,
		fetcher.NewFetcher(cfg.FetchTimeout(), cfg.Fetch.InsecureSkipVerify),
		database,
		cfg.FetchWorkers(),
		m,
	)
	classifier := sentiment.NewClassifier(database, sentiment.NewVaderScorer(), cfg.Classifier.BatchSize, m)
	run := runner.NewRunner(database, pipeline, classifier, m)
	defer run.Close()

	if *once {
		summary := run.Run(ctx)
		if summary.Failed() {
			logger.Log.Errorf("Run aborted: %v", summary.Errors)
			os.Exit(1)
		}
		if len(summary.Errors) > 0 {
			logger.Log.Warnf("Run finished with %d per-feed errors", len(summary.Errors))
		}
		return
	}

	// RabbitMQ необязателен: итоги запусков и запросы на запуск через очередь
	if cfg.RabbitMQ.URL != "" {
		producer, err := queue.NewProducer(cfg.RabbitMQ.URL, cfg.RabbitMQ.SummaryQueue)
		if err != nil {
			logger.Log.Errorf("RabbitMQ producer error: %v", err)
		} else {
			defer producer.Close()
			run.AddPublisher(producer)
		}

		consumer, err := queue.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.RunQueue, cfg.RabbitMQ.Workers)
		if err != nil {
			logger.Log.Errorf("RabbitMQ consumer error: %v", err)
		} else {
			defer consumer.Close()
			wrk := worker.NewWorker(run)
			if err := consumer.Consume(ctx, wrk.HandleTask); err != nil {
				logger.Log.Errorf("RabbitMQ consume error: %v", err)
			}
		}
	}

	// Запуск периодического опроса
	go run.StartPolling(ctx, cfg.PollEvery())

	// HTTP сервер
	srv := server.NewServer(database, run, cfg.TriggerSecret,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	if cfg.TriggerSecret == "" {
		logger.Log.Warn("TRIGGER_SECRET is not set, POST /pipeline/run is disabled")
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	go func() {
		logger.Log.Infof("Starting HTTP server on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Log.Info("Shutting down...")
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		logger.Log.Errorf("Forced shutdown: %v", err)
	}
}
