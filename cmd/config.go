package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"orders/internal/core/application/usecases/commands"
	"orders/internal/core/domain/model/outbox"
	"orders/internal/jobs"
	"orders/internal/pkg/errs"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	HTTPPort     string
	Store        string
	StoreTimeout time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	KafkaBrokers          string
	KafkaConsumerGroup    string
	KafkaStockFailedTopic string

	OutboxBatchSize      int
	OutboxWorkers        int
	OutboxLease          time.Duration
	OutboxPublishTimeout time.Duration
	OutboxBaseDelay      time.Duration
	OutboxMaxDelay       time.Duration
	OutboxMaxAttempts    int
	OutboxSchedule       string

	CatalogFile string
	LogLevel    string
}

// LoadConfig reads the environment once. Values from envFile are loaded first
// when the file exists; variables already set in the environment win.
func LoadConfig(envFile string) (Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	relay := commands.DefaultRelayOptions()
	env := envReader{}
	config := Config{
		HTTPPort:     env.String("HTTP_PORT", "8080"),
		Store:        strings.ToLower(env.String("STORE", StorePostgres)),
		StoreTimeout: env.Duration("STORE_TIMEOUT", 5*time.Second),

		DBHost:     env.String("DB_HOST", "localhost"),
		DBPort:     env.String("DB_PORT", "5432"),
		DBUser:     env.String("DB_USER", "postgres"),
		DBPassword: env.String("DB_PASSWORD", ""),
		DBName:     env.String("DB_NAME", "orders"),
		DBSslMode:  env.String("DB_SSLMODE", "disable"),

		KafkaBrokers:          env.String("KAFKA_BROKERS", ""),
		KafkaConsumerGroup:    env.String("KAFKA_CONSUMER_GROUP", "orders-notifications"),
		KafkaStockFailedTopic: env.String("KAFKA_STOCK_FAILED_TOPIC", "order.failed.stock"),

		OutboxBatchSize:      env.Int("OUTBOX_BATCH_SIZE", relay.BatchSize),
		OutboxWorkers:        env.Int("OUTBOX_WORKERS", relay.Workers),
		OutboxLease:          env.Duration("OUTBOX_LEASE", relay.Lease),
		OutboxPublishTimeout: env.Duration("OUTBOX_PUBLISH_TIMEOUT", relay.PublishTimeout),
		OutboxBaseDelay:      env.Duration("OUTBOX_BASE_DELAY", relay.RetryPolicy.BaseDelay),
		OutboxMaxDelay:       env.Duration("OUTBOX_MAX_DELAY", relay.RetryPolicy.MaxDelay),
		OutboxMaxAttempts:    env.Int("OUTBOX_MAX_ATTEMPTS", relay.RetryPolicy.MaxAttempts),
		OutboxSchedule:       env.String("OUTBOX_SCHEDULE", jobs.DefaultRelaySchedule),

		CatalogFile: env.String("CATALOG_FILE", "configs/catalog.yaml"),
		LogLevel:    env.String("LOG_LEVEL", "info"),
	}
	if len(env.problems) > 0 {
		return Config{}, errors.Join(env.problems...)
	}

	return config, config.Validate()
}

// Validate checks the settings that have a closed set of values.
func (c Config) Validate() error {
	var problems []error
	if c.Store != StoreMemory && c.Store != StorePostgres {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("STORE", fmt.Errorf("%q is neither %s nor %s", c.Store, StoreMemory, StorePostgres)))
	}
	if c.StoreTimeout <= 0 {
		problems = append(problems, errs.NewValueIsInvalidErrorWithCause("STORE_TIMEOUT", fmt.Errorf("%s is not positive", c.StoreTimeout)))
	}
	if err := c.RelayOptions().Validate(); err != nil {
		problems = append(problems, err)
	}
	return errors.Join(problems...)
}

func (c Config) RelayOptions() commands.RelayOptions {
	return commands.RelayOptions{
		BatchSize:      c.OutboxBatchSize,
		Workers:        c.OutboxWorkers,
		Lease:          c.OutboxLease,
		PublishTimeout: c.OutboxPublishTimeout,
		RetryPolicy: outbox.RetryPolicy{
			BaseDelay:   c.OutboxBaseDelay,
			MaxDelay:    c.OutboxMaxDelay,
			MaxAttempts: c.OutboxMaxAttempts,
		},
	}
}

// DSN is the libpq connection string shared by gorm and pgx.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

// envReader collects parse failures so every bad variable is reported at once.
type envReader struct {
	problems []error
}

func (r *envReader) String(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (r *envReader) Int(key string, fallback int) int {
	raw := r.String(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.problems = append(r.problems, errs.NewValueIsInvalidErrorWithCause(key, err))
		return fallback
	}
	return v
}

func (r *envReader) Duration(key string, fallback time.Duration) time.Duration {
	raw := r.String(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.problems = append(r.problems, errs.NewValueIsInvalidErrorWithCause(key, err))
		return fallback
	}
	return v
}
