package simulator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
)

const (
	defaultTickInterval = 5 * time.Second

	// maxDriftDegrees — максимальное смещение координаты за тик по
	// каждой оси. Порядка 50 метров: курьер едет, а не телепортируется.
	maxDriftDegrees = 0.0005
)

var (
	simulatorSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "delivery_simulator_sweeps_total",
		Help: "Total number of simulator sweeps over out-for-delivery orders.",
	})
	simulatorMoves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_simulator_moves_total",
		Help: "Total number of simulated courier moves grouped by result.",
	}, []string{"result"})
)

// OrderTracker — минимальный срез реестра, нужный симулятору.
type OrderTracker interface {
	ListByStatus(status domain.OrderStatus) ([]domain.Order, error)
	UpdateLocation(orderID string, loc domain.Location) (domain.Order, error)
}

// WorkerOptions задаёт параметры симулятора.
type WorkerOptions struct {
	Logger       *log.Entry
	TickInterval time.Duration
	Rand         *rand.Rand
}

// Option настраивает Worker.
type Option func(*WorkerOptions)

// WithLogger задаёт logger для симулятора.
func WithLogger(logger *log.Entry) Option {
	return func(opts *WorkerOptions) {
		opts.Logger = logger
	}
}

// WithTickInterval задаёт период между проходами по заказам в доставке.
func WithTickInterval(interval time.Duration) Option {
	return func(opts *WorkerOptions) {
		opts.TickInterval = interval
	}
}

// WithRand подменяет источник случайности (для тестов).
func WithRand(rnd *rand.Rand) Option {
	return func(opts *WorkerOptions) {
		opts.Rand = rnd
	}
}

// Worker периодически сдвигает геопозицию курьеров по заказам в статусе
// out_for_delivery. Каждый сдвиг проходит через реестр как обычное
// обновление позиции, поэтому подписчики заказа получают уведомление.
type Worker struct {
	tracker      OrderTracker
	logger       *log.Entry
	tickInterval time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewWorker создаёт симулятор перемещений курьеров.
func NewWorker(tracker OrderTracker, options ...Option) *Worker {
	opts := WorkerOptions{
		TickInterval: defaultTickInterval,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "courier-simulator")
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Worker{
		tracker:      tracker,
		logger:       logger,
		tickInterval: opts.TickInterval,
		rnd:          rnd,
	}
}

// Run запускает периодические проходы до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.tracker == nil {
		w.logger.Warn("courier simulator is disabled: tracker is nil")
		return
	}

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce выполняет один проход: сдвигает позицию каждого заказа в
// доставке на случайную дельту в пределах maxDriftDegrees по обеим осям.
func (w *Worker) SweepOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	simulatorSweeps.Inc()

	orders, err := w.tracker.ListByStatus(domain.OrderStatusOutForDelivery)
	if err != nil {
		w.logger.WithError(err).Warn("failed to list out-for-delivery orders")
		return
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			return
		}
		if order.Location == nil {
			// Курьер назначен, но позиция ещё не сообщалась. До первой
			// реальной точки симулировать нечего.
			simulatorMoves.WithLabelValues("skipped").Inc()
			continue
		}

		next := domain.Location{
			Lat:     order.Location.Lat + w.drift(),
			Lng:     order.Location.Lng + w.drift(),
			Address: order.Location.Address,
		}
		if _, err := w.tracker.UpdateLocation(order.ID, next); err != nil {
			// Заказ мог сменить статус между List и Update.
			w.logger.WithError(err).WithField("order_id", order.ID).Debug("simulated move rejected")
			simulatorMoves.WithLabelValues("rejected").Inc()
			continue
		}
		simulatorMoves.WithLabelValues("moved").Inc()
	}
}

// drift возвращает равномерную дельту из [-maxDriftDegrees, maxDriftDegrees].
func (w *Worker) drift() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return (w.rnd.Float64()*2 - 1) * maxDriftDegrees
}
