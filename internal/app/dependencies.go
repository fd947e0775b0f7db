package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/service/dispatch"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/service/payment"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/storage/memory"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Orders      domain.OrderRepository
	Timeline    domain.TimelineRepository
	Outbox      domain.OutboxRepository
	Idempotency domain.IdempotencyRepository
	PaymentSvc  domain.PaymentService
	DispatchSvc domain.DispatchService
	Store       *postgres.Store
	Logger      *log.Entry
}

// defaultFleet — стартовый парк курьеров для диспетчеризации.
// NOTE: В production окружении парк должен приходить из внешнего
// сервиса управления курьерами, а оплата — из платёжного шлюза.
func defaultFleet() []domain.Courier {
	return []domain.Courier{
		{ID: "courier_1", Name: "Oleg"},
		{ID: "courier_2", Name: "Marina"},
		{ID: "courier_3", Name: "Timur"},
	}
}

// NewDependencies создаёт и инициализирует все зависимости приложения.
// Для postgres-драйвера открывает пул соединений и при необходимости
// накатывает миграции.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{
		Outbox:      memory.NewOutboxRepository(),
		Idempotency: memory.NewIdempotencyRepository(),
		PaymentSvc:  payment.NewMockService(),
		DispatchSvc: dispatch.NewPool(defaultFleet()),
		Logger:      logger,
	}

	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		deps.Orders = memory.NewOrderRepository()
		deps.Timeline = memory.NewTimelineRepository()
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		deps.Store = store
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Timeline = postgres.NewTimelineRepository(store)
		logger.Info("postgres storage initialized")
	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}

	return deps, nil
}

// Close освобождает ресурсы зависимостей.
func (d *Dependencies) Close() {
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
