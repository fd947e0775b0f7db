package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	httpapi "github.com/vladislavdragonenkov/delivery-tracker/internal/api/http"
	healthcheck "github.com/vladislavdragonenkov/delivery-tracker/internal/health"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/metrics"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/registry"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/seed"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/service/idempotency"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/service/outbox"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/simulator"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run собирает зависимости и запускает все компоненты сервиса:
// HTTP API, сервер метрик, relay outbox, симулятор курьеров и
// фоновую очистку идемпотентных ключей. Блокируется до отмены ctx
// или фатальной ошибки HTTP-сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	if cfg.SeedDemoData {
		if err := seed.Load(deps.Orders, time.Now().UTC()); err != nil {
			logger.WithError(err).Warn("failed to seed demo orders, continuing with empty registry")
		} else {
			logger.Info("demo orders seeded")
		}
	}

	svc := registry.NewService(
		deps.Orders,
		deps.Timeline,
		deps.Outbox,
		logger.WithField("layer", "registry"),
		registry.WithPaymentService(deps.PaymentSvc),
		registry.WithDispatchService(deps.DispatchSvc),
		registry.WithMetrics(metrics.NewRegistryMetrics()),
	)

	// Kafka опционален: без брокеров события копятся в outbox,
	// relay не запускается.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	if kafkaProducer != nil {
		relay := outbox.NewWorker(
			deps.Outbox,
			kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents),
			outbox.WithLogger(logger.WithField("worker", "outbox-relay")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		go relay.Run(ctx)
	}

	courierSim := simulator.NewWorker(
		svc,
		simulator.WithLogger(logger.WithField("worker", "courier-simulator")),
		simulator.WithTickInterval(cfg.SimulatorTickInterval),
	)
	go courierSim.Run(ctx)

	cleanup := idempotency.NewCleanupWorker(
		deps.Idempotency,
		idempotency.WithLogger(logger.WithField("worker", "idempotency-cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	go cleanup.Run(ctx)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxBacklogChecker(deps.Outbox, cfg.OutboxMaxPending, 5*time.Minute))
	if deps.Store != nil {
		store := deps.Store
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiHandler := httpapi.NewHandler(
		svc,
		httpapi.WithIdempotencyRepository(deps.Idempotency),
		httpapi.WithLogger(logger.WithField("layer", "http")),
	)
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: apiHandler.Routes()}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
