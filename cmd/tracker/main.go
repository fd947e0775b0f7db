package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/app"
)

// Переменные окружения для переопределения конфигурации.
const (
	envHTTPAddr                    = "DELIVERY_HTTP_ADDR"
	envMetricsAddr                 = "DELIVERY_METRICS_ADDR"
	envStorageDriver               = "DELIVERY_STORAGE_DRIVER"
	envPostgresDSN                 = "DELIVERY_POSTGRES_DSN"
	envPostgresAutoMigrate         = "DELIVERY_POSTGRES_AUTO_MIGRATE"
	envKafkaBrokers                = "DELIVERY_KAFKA_BROKERS"
	envOutboxPollInterval          = "DELIVERY_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize             = "DELIVERY_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts           = "DELIVERY_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay            = "DELIVERY_OUTBOX_RETRY_DELAY"
	envOutboxMaxPending            = "DELIVERY_OUTBOX_MAX_PENDING"
	envSimulatorTickInterval       = "DELIVERY_SIMULATOR_TICK_INTERVAL"
	envIdempotencyCleanupInterval  = "DELIVERY_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "DELIVERY_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
	envSeedDemoData                = "DELIVERY_SEED_DEMO_DATA"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv формирует конфигурацию приложения из переменных
// окружения. Невалидные значения не валят процесс: остаётся значение
// по умолчанию, а предупреждение возвращается вызывающему.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	readString(lookup, envHTTPAddr, &cfg.HTTPAddr)
	readString(lookup, envMetricsAddr, &cfg.MetricsAddr)
	readString(lookup, envPostgresDSN, &cfg.PostgresDSN)
	readString(lookup, envKafkaBrokers, &cfg.KafkaBrokers)

	if raw, ok := lookup(envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(raw))
	}

	readBool(lookup, envPostgresAutoMigrate, &cfg.PostgresAutoMigrate, &warnings)
	readBool(lookup, envSeedDemoData, &cfg.SeedDemoData, &warnings)

	readDuration(lookup, envOutboxPollInterval, &cfg.OutboxPollInterval,
		func(v time.Duration) bool { return v > 0 }, "must be > 0", &warnings)
	readInt(lookup, envOutboxBatchSize, &cfg.OutboxBatchSize,
		func(v int) bool { return v > 0 }, "must be > 0", &warnings)
	readInt(lookup, envOutboxMaxAttempts, &cfg.OutboxMaxAttempts,
		func(v int) bool { return v > 0 }, "must be > 0", &warnings)
	readDuration(lookup, envOutboxRetryDelay, &cfg.OutboxRetryDelay,
		func(v time.Duration) bool { return v >= 0 }, "must be >= 0", &warnings)
	readInt(lookup, envOutboxMaxPending, &cfg.OutboxMaxPending,
		func(v int) bool { return v > 0 }, "must be > 0", &warnings)
	readDuration(lookup, envSimulatorTickInterval, &cfg.SimulatorTickInterval,
		func(v time.Duration) bool { return v > 0 }, "must be > 0", &warnings)
	readDuration(lookup, envIdempotencyCleanupInterval, &cfg.IdempotencyCleanupInterval,
		func(v time.Duration) bool { return v > 0 }, "must be > 0", &warnings)
	readInt(lookup, envIdempotencyCleanupBatchSize, &cfg.IdempotencyCleanupBatchSize,
		func(v int) bool { return v > 0 }, "must be > 0", &warnings)

	return cfg, warnings
}

func readString(lookup envLookup, key string, target *string) {
	if raw, ok := lookup(key); ok {
		if value := strings.TrimSpace(raw); value != "" {
			*target = value
		}
	}
}

func readBool(lookup envLookup, key string, target *bool, warnings *[]string) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	value, err := parseBool(raw)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s: %v", key, err))
		return
	}
	*target = value
}

func readInt(lookup envLookup, key string, target *int, valid func(int) bool, hint string, warnings *[]string) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	value, err := parseInt(raw, valid, hint)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s: %v", key, err))
		return
	}
	*target = value
}

func readDuration(lookup envLookup, key string, target *time.Duration, valid func(time.Duration) bool, hint string, warnings *[]string) {
	raw, ok := lookup(key)
	if !ok {
		return
	}
	value, err := parseDuration(raw, valid, hint)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s: %v", key, err))
		return
	}
	*target = value
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, hint string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %d is out of range: %s", value, hint)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, hint string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("value %s is out of range: %s", value, hint)
	}
	return value, nil
}

func main() {
	setupLogger()

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warnf("конфигурация: %s, используем значение по умолчанию", warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
	}).Info("запускаем сервис отслеживания заказов")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("сервис остановлен")
}
