package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RegistryMetrics содержит метрики реестра заказов.
type RegistryMetrics struct {
	// Счётчики мутаций
	ordersCreated       prometheus.Counter
	statusUpdates       *prometheus.CounterVec
	transitionsRejected prometheus.Counter
	couriersAssigned    prometheus.Counter
	locationUpdates     prometheus.Counter

	// Доставка уведомлений подписчикам
	notificationsDelivered prometheus.Counter

	// Гистограмма времени выполнения мутаций
	mutationDuration *prometheus.HistogramVec

	// Gauge активных подписок
	activeSubscriptions prometheus.Gauge
}

// NewRegistryMetrics создаёт метрики реестра на default registerer.
func NewRegistryMetrics() *RegistryMetrics {
	return newRegistryMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newRegistryMetricsWithRegisterer(registerer prometheus.Registerer) *RegistryMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &RegistryMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "delivery_orders_created_total",
			Help: "Total number of orders created in the registry.",
		}),
		statusUpdates: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "delivery_status_updates_total",
			Help: "Total number of order status updates grouped by new status.",
		}, []string{"status"}),
		transitionsRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "delivery_transitions_rejected_total",
			Help: "Total number of status updates rejected by the transition table.",
		}),
		couriersAssigned: registerCounter(registerer, prometheus.CounterOpts{
			Name: "delivery_couriers_assigned_total",
			Help: "Total number of courier assignments.",
		}),
		locationUpdates: registerCounter(registerer, prometheus.CounterOpts{
			Name: "delivery_location_updates_total",
			Help: "Total number of courier location updates.",
		}),
		notificationsDelivered: registerCounter(registerer, prometheus.CounterOpts{
			Name: "delivery_notifications_delivered_total",
			Help: "Total number of subscriber callbacks invoked.",
		}),
		mutationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "delivery_registry_mutation_duration_seconds",
			Help:    "Duration of registry mutations in seconds.",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"op"}),
		activeSubscriptions: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "delivery_active_subscriptions",
			Help: "Number of currently registered order subscriptions.",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *RegistryMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordStatusUpdate увеличивает счётчик смен статуса.
func (m *RegistryMetrics) RecordStatusUpdate(status string) {
	m.statusUpdates.WithLabelValues(status).Inc()
}

// RecordTransitionRejected увеличивает счётчик отклонённых переходов.
func (m *RegistryMetrics) RecordTransitionRejected() {
	m.transitionsRejected.Inc()
}

// RecordCourierAssigned увеличивает счётчик назначений курьера.
func (m *RegistryMetrics) RecordCourierAssigned() {
	m.couriersAssigned.Inc()
}

// RecordLocationUpdate увеличивает счётчик обновлений геопозиции.
func (m *RegistryMetrics) RecordLocationUpdate() {
	m.locationUpdates.Inc()
}

// RecordNotificationDelivered увеличивает счётчик отработавших подписок.
func (m *RegistryMetrics) RecordNotificationDelivered() {
	m.notificationsDelivered.Inc()
}

// RecordMutationDuration записывает время выполнения мутации.
func (m *RegistryMetrics) RecordMutationDuration(op string, duration time.Duration) {
	m.mutationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// SubscriptionOpened увеличивает количество активных подписок.
func (m *RegistryMetrics) SubscriptionOpened() {
	m.activeSubscriptions.Inc()
}

// SubscriptionClosed уменьшает количество активных подписок.
func (m *RegistryMetrics) SubscriptionClosed() {
	m.activeSubscriptions.Dec()
}
