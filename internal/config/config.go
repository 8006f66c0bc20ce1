// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string `env:"HTTP_ADDR" envDefault:":8080"`
	PostgresURL    string `env:"POSTGRES_URL"`
	PostgresSchema string `env:"POSTGRES_SCHEMA" envDefault:"lamp"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	ReceiptCacheTTL time.Duration `env:"RECEIPT_CACHE_TTL" envDefault:"10m"`

	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopicOrders string   `env:"KAFKA_TOPIC_ORDERS" envDefault:"lamp.order.events"`
	KafkaTopicPrint  string   `env:"KAFKA_TOPIC_PRINT" envDefault:"lamp.receipt.print"`
	KafkaGroupID     string   `env:"KAFKA_GROUP_ID" envDefault:"lamp-worker"`

	OTelEnabled    bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	ServiceName    string `env:"SERVICE_NAME" envDefault:"lampd"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"dev"`

	SweepInterval      time.Duration `env:"SWEEP_INTERVAL" envDefault:"0s"`
	LockDefaultSeconds int           `env:"LOCK_DEFAULT_SECONDS" envDefault:"300"`
	LockMinSeconds     int           `env:"LOCK_MIN_SECONDS" envDefault:"60"`
	LockMaxSeconds     int           `env:"LOCK_MAX_SECONDS" envDefault:"600"`

	LogLevel   string `env:"LOG_LEVEL" envDefault:"INFO"`
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`

	TempleName    string `env:"TEMPLE_NAME" envDefault:"範例宮"`
	TempleAddress string `env:"TEMPLE_ADDRESS" envDefault:"台北市中正區範例路一號"`
	TemplePhone   string `env:"TEMPLE_PHONE" envDefault:"02-1234-5678"`
}

// Load reads a .env file when present, then the environment.
func Load() (*Config, error) {
	return load(true)
}

// LoadWorker is Load for processes that never touch Postgres.
func LoadWorker() (*Config, error) {
	return load(false)
}

func load(needDB bool) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(needDB); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate(needDB bool) error {
	var errs []error
	if needDB && c.PostgresURL == "" {
		errs = append(errs, errors.New("POSTGRES_URL must be set"))
	}
	if c.LockMinSeconds <= 0 {
		errs = append(errs, errors.New("LOCK_MIN_SECONDS must be positive"))
	}
	if c.LockMinSeconds > c.LockDefaultSeconds || c.LockDefaultSeconds > c.LockMaxSeconds {
		errs = append(errs, fmt.Errorf("lock bounds must satisfy min <= default <= max, got %d/%d/%d",
			c.LockMinSeconds, c.LockDefaultSeconds, c.LockMaxSeconds))
	}
	if c.SweepInterval < 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must not be negative"))
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// KafkaEnabled reports whether events and print jobs should be produced.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func (c *Config) LockBounds() (def, lo, hi time.Duration) {
	return time.Duration(c.LockDefaultSeconds) * time.Second,
		time.Duration(c.LockMinSeconds) * time.Second,
		time.Duration(c.LockMaxSeconds) * time.Second
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO", "":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
