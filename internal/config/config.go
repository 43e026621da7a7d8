package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPollInterval = 30
	defaultHTTPAddr     = ":8080"
	defaultFetchTimeout = 15
	maxFetchTimeout     = 15
	defaultRunQueue     = "pipeline.runs"
	defaultSummaryQueue = "pipeline.summaries"
)

// Config хранит настройки процесса и реестр источников.
type Config struct {
	DatabaseURL   string           `json:"database_url" yaml:"database_url"`
	PollInterval  int              `json:"poll_interval" yaml:"poll_interval"`
	HTTPAddr      string           `json:"http_addr" yaml:"http_addr"`
	TriggerSecret string           `json:"trigger_secret" yaml:"trigger_secret"`
	Fetch         FetchConfig      `json:"fetch" yaml:"fetch"`
	Classifier    ClassifierConfig `json:"classifier" yaml:"classifier"`
	RabbitMQ      RabbitMQConfig   `json:"rabbitmq" yaml:"rabbitmq"`
	Sources       []Source         `json:"sources" yaml:"sources"`
}

// FetchConfig описывает HTTP-загрузку лент.
// InsecureSkipVerify отключает проверку TLS-сертификатов и включается только явно.
type FetchConfig struct {
	TimeoutSeconds     int  `json:"timeout_seconds" yaml:"timeout_seconds"`
	InsecureSkipVerify bool `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	Workers            int  `json:"workers" yaml:"workers"`
}

// ClassifierConfig ограничивает размер одного прохода классификатора (0 — все).
type ClassifierConfig struct {
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// RabbitMQConfig — необязательная очередь запросов на запуск и итогов запусков.
type RabbitMQConfig struct {
	URL          string `json:"url" yaml:"url"`
	RunQueue     string `json:"run_queue" yaml:"run_queue"`
	SummaryQueue string `json:"summary_queue" yaml:"summary_queue"`
	Workers      int    `json:"workers" yaml:"workers"`
}

// Source — именованный источник с одной или несколькими лентами.
type Source struct {
	Name    string            `json:"name" yaml:"name"`
	URLs    []string          `json:"urls" yaml:"urls"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// FetchTimeout возвращает таймаут одной загрузки.
func (cfg *Config) FetchTimeout() time.Duration {
	return time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
}

// PollEvery возвращает интервал опроса.
func (cfg *Config) PollEvery() time.Duration {
	return time.Duration(cfg.PollInterval) * time.Minute
}

// FetchWorkers возвращает размер пула загрузчиков; по умолчанию — число источников.
func (cfg *Config) FetchWorkers() int {
	if cfg.Fetch.Workers > 0 {
		return cfg.Fetch.Workers
	}
	if len(cfg.Sources) > 0 {
		return len(cfg.Sources)
	}
	return 1
}

// Validate проверяет интервал, таймаут и реестр источников.
func (cfg *Config) Validate() error {
	if cfg.PollInterval < 1 {
		return errors.New("poll interval must be ≥ 1 minute")
	}
	if cfg.Fetch.TimeoutSeconds < 1 || cfg.Fetch.TimeoutSeconds > maxFetchTimeout {
		return fmt.Errorf("fetch timeout must be between 1 and %d seconds", maxFetchTimeout)
	}
	if cfg.Fetch.Workers < 0 {
		return errors.New("fetch workers cannot be negative")
	}
	if cfg.Classifier.BatchSize < 0 {
		return errors.New("classifier batch size cannot be negative")
	}
	if len(cfg.Sources) == 0 {
		return errors.New("at least one source is required")
	}

	seen := make(map[string]struct{}, len(cfg.Sources))
	for _, src := range cfg.Sources {
		name := strings.TrimSpace(src.Name)
		if name == "" {
			return errors.New("source name must not be empty")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate source name: %s", name)
		}
		seen[name] = struct{}{}

		if len(src.URLs) == 0 {
			return fmt.Errorf("source %s has no feed URLs", name)
		}
		for _, u := range src.URLs {
			parsed, err := url.ParseRequestURI(u)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
				return fmt.Errorf("invalid RSS URL: %s", u)
			}
		}
	}
	return nil
}

// LoadConfig читает JSON- или YAML-файл по пути path, накладывает
// значения по умолчанию и переменные окружения.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, cfg)
	default:
		err = json.Unmarshal(raw, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.ApplyEnv()
	return cfg, nil
}

// Default возвращает конфигурацию со встроенным реестром источников.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// ApplyEnv переопределяет секреты и адреса из окружения.
func (cfg *Config) ApplyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("TRIGGER_SECRET"); v != "" {
		cfg.TriggerSecret = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		cfg.RabbitMQ.URL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.Fetch.TimeoutSeconds == 0 {
		cfg.Fetch.TimeoutSeconds = defaultFetchTimeout
	}
	if cfg.RabbitMQ.RunQueue == "" {
		cfg.RabbitMQ.RunQueue = defaultRunQueue
	}
	if cfg.RabbitMQ.SummaryQueue == "" {
		cfg.RabbitMQ.SummaryQueue = defaultSummaryQueue
	}
	if cfg.RabbitMQ.Workers <= 0 {
		cfg.RabbitMQ.Workers = 1
	}
	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}
}
