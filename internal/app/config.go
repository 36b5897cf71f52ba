package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	HTTPAddr    string
	MetricsAddr string
	// APIPrefix — префикс маршрутов API, например /api/v1.
	APIPrefix          string
	CORSAllowedOrigins []string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool
	// CatalogSeedPath — YAML с каталогом и пользователями; пустой путь — без начальных данных.
	CatalogSeedPath   string
	CreateConcurrency int

	KafkaBrokers       []string
	KafkaTopic         string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyTTL              time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает настройки по умолчанию.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                    ":3000",
		MetricsAddr:                 ":9090",
		APIPrefix:                   "/api/v1",
		CORSAllowedOrigins:          []string{"*"},
		StorageDriver:               StorageDriverMemory,
		PostgresAutoMigrate:         true,
		CreateConcurrency:           8,
		KafkaTopic:                  "eshop.orders",
		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            100 * time.Millisecond,
		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  time.Minute,
		IdempotencyCleanupBatchSize: 500,
		ShutdownTimeout:             5 * time.Second,
	}
}

// Validate проверяет согласованность настроек до запуска.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres DSN is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}
	if c.CreateConcurrency < 0 {
		errs = append(errs, errors.New("create concurrency must not be negative"))
	}
	return errors.Join(errs...)
}

// KafkaEnabled сообщает, настроена ли публикация событий.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
