package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/metrics"
)

const (
	// actorSystem подписывается под записями, которые создаёт сам реестр.
	actorSystem = "system"
	// actorDispatch — автор назначений, сделанных диспетчеризацией.
	actorDispatch = "dispatch"

	// createIDAttempts — сколько идентификаторов перебираем при коллизии
	// с уже существующим заказом (например, загруженным из seed-данных).
	createIDAttempts = 5

	defaultName = "Unknown"
)

// PaymentMethod — способ оплаты, выбранный на checkout.
type PaymentMethod string

const (
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCash PaymentMethod = "cash"
)

// CreateParams — входные данные создания заказа. Незаполненные поля
// получают значения по умолчанию.
type CreateParams struct {
	Customer    domain.Customer
	Restaurant  domain.Restaurant
	Items       []domain.OrderItem
	AmountMinor int64
	Priority    domain.Priority
}

// Service — реестр заказов: единственный владелец коллекции заказов,
// истории статусов и подписок. Все мутации проходят через него и
// синхронно уведомляют подписчиков соответствующего заказа.
//
// В отличие от репозиториев, Service держит одну блокировку на мутацию
// целиком (чтение -> запись -> уведомление), поэтому каждый подписчик
// видит согласованный снимок после каждой мутации.
type Service struct {
	orders   domain.OrderRepository
	timeline domain.TimelineRepository
	outbox   domain.OutboxRepository
	payments domain.PaymentService
	dispatch domain.DispatchService
	logger   *log.Entry
	metrics  *metrics.RegistryMetrics
	now      func() time.Time

	mu     sync.Mutex
	subs   map[string]map[string]UpdateFunc
	nextID int64
}

// Option настраивает Service.
type Option func(*Service)

// WithPaymentService задаёт платёжный провайдер для checkout.
func WithPaymentService(payments domain.PaymentService) Option {
	return func(s *Service) { s.payments = payments }
}

// WithDispatchService задаёт сервис подбора курьеров.
func WithDispatchService(dispatch domain.DispatchService) Option {
	return func(s *Service) { s.dispatch = dispatch }
}

// WithMetrics задаёт метрики реестра.
func WithMetrics(m *metrics.RegistryMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService создаёт реестр заказов поверх переданных хранилищ.
func NewService(
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
	outbox domain.OutboxRepository,
	logger *log.Entry,
	options ...Option,
) *Service {
	if logger == nil {
		logger = log.WithField("component", "order-registry")
	}

	s := &Service{
		orders:   orders,
		timeline: timeline,
		outbox:   outbox,
		logger:   logger,
		now:      time.Now,
		subs:     make(map[string]map[string]UpdateFunc),
	}
	for _, option := range options {
		option(s)
	}

	// База для коротких числовых идентификаторов. Счётчик с инкрементом
	// гарантирует уникальность в рамках процесса даже при быстром
	// создании заказов подряд.
	s.nextID = s.now().UTC().UnixMilli()%900000 + 100000

	return s
}

// GetOrder возвращает снимок заказа или ErrOrderNotFound.
func (s *Service) GetOrder(id string) (domain.Order, error) {
	return s.orders.Get(id)
}

// ListAll возвращает все заказы в порядке создания.
func (s *Service) ListAll() ([]domain.Order, error) {
	return s.orders.List(domain.OrderFilter{})
}

// ListByStatus возвращает заказы в заданном статусе.
func (s *Service) ListByStatus(status domain.OrderStatus) ([]domain.Order, error) {
	return s.orders.List(domain.OrderFilter{Status: status})
}

// ListByRestaurant возвращает заказы ресторана.
func (s *Service) ListByRestaurant(restaurantID string) ([]domain.Order, error) {
	return s.orders.List(domain.OrderFilter{RestaurantID: restaurantID})
}

// ListByCustomer возвращает заказы клиента.
func (s *Service) ListByCustomer(customerID string) ([]domain.Order, error) {
	return s.orders.List(domain.OrderFilter{CustomerID: customerID})
}

// ListByCourier возвращает заказы курьера.
func (s *Service) ListByCourier(courierID string) ([]domain.Order, error) {
	return s.orders.List(domain.OrderFilter{CourierID: courierID})
}

// Timeline возвращает события аудита заказа.
func (s *Service) Timeline(orderID string) ([]domain.TimelineEvent, error) {
	if _, err := s.orders.Get(orderID); err != nil {
		return nil, err
	}
	return s.timeline.List(orderID)
}

// CreateOrder создаёт заказ в статусе pending с одной записью истории.
// Уведомления не рассылаются: на свежесозданный идентификатор ещё никто
// не мог подписаться.
func (s *Service) CreateOrder(params CreateParams) (domain.Order, error) {
	return s.createOrder(params, domain.PaymentStatusUnpaid)
}

// Checkout оформляет заказ с учётом способа оплаты: для карты списание
// идёт через платёжный провайдер, наличные остаются cash_on_delivery.
// Отклонённый платёж не отменяет заказ — он остаётся unpaid, решение за
// оператором.
func (s *Service) Checkout(params CreateParams, method PaymentMethod) (domain.Order, error) {
	payment := domain.PaymentStatusUnpaid
	if method == PaymentMethodCash {
		payment = domain.PaymentStatusCashOnDelivery
	}

	order, err := s.createOrder(params, payment)
	if err != nil {
		return domain.Order{}, err
	}

	if method == PaymentMethodCard && s.payments != nil {
		result, payErr := s.payments.Pay(order.ID, order.AmountMinor, "RUB")
		switch {
		case payErr != nil:
			s.logger.WithError(payErr).WithField("order_id", order.ID).Warn("payment failed, order stays unpaid")
		case result == domain.PaymentResultCaptured || result == domain.PaymentResultAuthorized:
			order, err = s.markPaid(order.ID)
			if err != nil {
				return domain.Order{}, err
			}
		default:
			s.logger.WithFields(log.Fields{
				"order_id": order.ID,
				"result":   result,
			}).Warn("payment declined, order stays unpaid")
		}
	}

	s.enqueueEvent(kafka.EventTypeCheckoutCompleted, order, actorSystem, map[string]interface{}{
		"payment_method": string(method),
		"payment_status": string(order.PaymentStatus),
	})

	return order, nil
}

// UpdateStatus переводит заказ в новый статус. Переход сверяется с
// таблицей переходов; история получает ровно одну новую запись;
// подписчики заказа уведомляются снимком после мутации.
func (s *Service) UpdateStatus(orderID string, next domain.OrderStatus, actor, note string) (domain.Order, error) {
	start := s.now()
	defer s.observeMutation("update_status", start)

	if actor == "" {
		return domain.Order{}, domain.ErrActorRequired
	}
	if !next.Valid() {
		return domain.Order{}, fmt.Errorf("%w: %q", domain.ErrStatusUnknown, next)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	if !domain.CanTransition(order.Status, next) {
		if s.metrics != nil {
			s.metrics.RecordTransitionRejected()
		}
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, order.Status, next)
	}

	now := s.now().UTC()
	order.Status = next
	order.History = append(order.History, domain.StatusEntry{Status: next, Actor: actor, Note: note, At: now})
	if next != domain.OrderStatusOutForDelivery {
		// Геопозиция имеет смысл только в пути к клиенту.
		order.Location = nil
	}
	order.UpdatedAt = now

	if err := s.orders.Save(order); err != nil {
		return domain.Order{}, err
	}
	order.Version++

	s.appendTimeline(domain.TimelineEvent{
		OrderID:  orderID,
		Kind:     domain.TimelineKindStatusChanged,
		Status:   next,
		Actor:    actor,
		Note:     note,
		Occurred: now,
	})
	s.enqueueEvent(kafka.EventTypeStatusChanged, order, actor, nil)
	if s.metrics != nil {
		s.metrics.RecordStatusUpdate(string(next))
	}
	s.notifyLocked(order)

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"status":   next,
		"actor":    actor,
	}).Info("order status updated")

	return order.Clone(), nil
}

// AssignCourier назначает курьера на заказ. Назначение — событие аудита,
// а не смена статуса: история статусов заказа не изменяется.
func (s *Service) AssignCourier(orderID string, courier domain.Courier, actor string) (domain.Order, error) {
	start := s.now()
	defer s.observeMutation("assign_courier", start)

	if courier.ID == "" {
		return domain.Order{}, domain.ErrCourierRequired
	}
	if actor == "" {
		actor = actorSystem
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.now().UTC()
	assigned := courier
	order.Courier = &assigned
	order.UpdatedAt = now

	if err := s.orders.Save(order); err != nil {
		return domain.Order{}, err
	}
	order.Version++

	s.appendTimeline(domain.TimelineEvent{
		OrderID:  orderID,
		Kind:     domain.TimelineKindCourierAssigned,
		Status:   order.Status,
		Actor:    actor,
		Note:     fmt.Sprintf("assigned courier %s (%s)", courier.Name, courier.ID),
		Occurred: now,
	})
	s.enqueueEvent(kafka.EventTypeCourierAssigned, order, actor, map[string]interface{}{
		"courier_id":   courier.ID,
		"courier_name": courier.Name,
	})
	if s.metrics != nil {
		s.metrics.RecordCourierAssigned()
	}
	s.notifyLocked(order)

	s.logger.WithFields(log.Fields{
		"order_id":   orderID,
		"courier_id": courier.ID,
	}).Info("courier assigned")

	return order.Clone(), nil
}

// DispatchCourier подбирает свободного курьера через DispatchService и
// назначает его на заказ.
func (s *Service) DispatchCourier(orderID string) (domain.Order, error) {
	if s.dispatch == nil {
		return domain.Order{}, domain.ErrNoCourierAvailable
	}
	courier, err := s.dispatch.Assign(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return s.AssignCourier(orderID, courier, actorDispatch)
}

// UpdateLocation заменяет геопозицию курьера по заказу. История статусов
// не изменяется; подписчики уведомляются. Позиция ведётся только для
// заказов out_for_delivery.
func (s *Service) UpdateLocation(orderID string, loc domain.Location) (domain.Order, error) {
	start := s.now()
	defer s.observeMutation("update_location", start)

	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status != domain.OrderStatusOutForDelivery {
		return domain.Order{}, domain.ErrLocationNotTracked
	}

	now := s.now().UTC()
	if loc.At.IsZero() {
		loc.At = now
	}
	order.Location = &loc
	order.UpdatedAt = now

	if err := s.orders.Save(order); err != nil {
		return domain.Order{}, err
	}
	order.Version++

	s.enqueueEvent(kafka.EventTypeLocationUpdated, order, actorSystem, map[string]interface{}{
		"lat": loc.Lat,
		"lng": loc.Lng,
	})
	if s.metrics != nil {
		s.metrics.RecordLocationUpdate()
	}
	s.notifyLocked(order)

	return order.Clone(), nil
}

// Subscribe регистрирует callback на обновления одного заказа и
// возвращает токен для отписки. Подписок на один заказ может быть
// сколько угодно.
func (s *Service) Subscribe(orderID string, fn UpdateFunc) *Subscription {
	sub := &Subscription{
		id:      uuid.NewString(),
		orderID: orderID,
		svc:     s,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[orderID] == nil {
		s.subs[orderID] = make(map[string]UpdateFunc)
	}
	s.subs[orderID][sub.id] = fn
	if s.metrics != nil {
		s.metrics.SubscriptionOpened()
	}

	return sub
}

// SubscriberCount возвращает число активных подписок на заказ.
func (s *Service) SubscriberCount(orderID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[orderID])
}

func (s *Service) unsubscribe(orderID, subID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.subs[orderID]
	if !ok {
		return
	}
	if _, ok := set[subID]; !ok {
		return
	}
	delete(set, subID)
	// Пустые наборы не храним.
	if len(set) == 0 {
		delete(s.subs, orderID)
	}
	if s.metrics != nil {
		s.metrics.SubscriptionClosed()
	}
}

// notifyLocked вызывается под s.mu. Каждый подписчик получает
// независимую копию снимка; порядок обхода подписчиков не гарантируется.
func (s *Service) notifyLocked(order domain.Order) {
	for _, fn := range s.subs[order.ID] {
		fn(order.Clone())
		if s.metrics != nil {
			s.metrics.RecordNotificationDelivered()
		}
	}
}

func (s *Service) createOrder(params CreateParams, payment domain.PaymentStatus) (domain.Order, error) {
	start := s.now()
	defer s.observeMutation("create_order", start)

	now := s.now().UTC()
	order := domain.Order{
		Status:        domain.OrderStatusPending,
		Customer:      params.Customer,
		Restaurant:    params.Restaurant,
		Items:         append([]domain.OrderItem(nil), params.Items...),
		AmountMinor:   params.AmountMinor,
		PaymentStatus: payment,
		Priority:      params.Priority,
		History: []domain.StatusEntry{
			{Status: domain.OrderStatusPending, Actor: actorSystem, Note: "order created", At: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if order.Customer.Name == "" {
		order.Customer.Name = defaultName
	}
	if order.Restaurant.Name == "" {
		order.Restaurant.Name = defaultName
	}
	if order.Priority == "" {
		order.Priority = domain.PriorityMedium
	}
	if order.AmountMinor == 0 {
		for _, item := range order.Items {
			order.AmountMinor += int64(item.Qty) * item.PriceMinor
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for attempt := 0; attempt < createIDAttempts; attempt++ {
		order.ID = strconv.FormatInt(s.nextID, 10)
		s.nextID++
		if err = s.orders.Create(order); err == nil {
			break
		}
		if !errors.Is(err, domain.ErrOrderExists) {
			return domain.Order{}, err
		}
	}
	if err != nil {
		return domain.Order{}, err
	}

	s.appendTimeline(domain.TimelineEvent{
		OrderID:  order.ID,
		Kind:     domain.TimelineKindOrderCreated,
		Status:   domain.OrderStatusPending,
		Actor:    actorSystem,
		Note:     "order created",
		Occurred: now,
	})
	s.enqueueEvent(kafka.EventTypeOrderCreated, order, actorSystem, nil)
	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}

	s.logger.WithFields(log.Fields{
		"order_id":      order.ID,
		"restaurant_id": order.Restaurant.ID,
	}).Info("order created")

	return order.Clone(), nil
}

// markPaid выставляет статус оплаты после успешного списания.
func (s *Service) markPaid(orderID string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	order.PaymentStatus = domain.PaymentStatusPaid
	order.UpdatedAt = s.now().UTC()
	if err := s.orders.Save(order); err != nil {
		return domain.Order{}, err
	}
	order.Version++
	s.notifyLocked(order)
	return order.Clone(), nil
}

func (s *Service) appendTimeline(event domain.TimelineEvent) {
	if s.timeline == nil {
		return
	}
	if err := s.timeline.Append(event); err != nil {
		s.logger.WithError(err).WithField("order_id", event.OrderID).Warn("failed to append timeline event")
	}
}

func (s *Service) enqueueEvent(eventType kafka.EventType, order domain.Order, actor string, metadata map[string]interface{}) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, order.ID, order.Customer.ID, string(order.Status), actor, metadata)
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to marshal order event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to enqueue outbox event")
	}
}

func (s *Service) observeMutation(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordMutationDuration(op, s.now().Sub(start))
	}
}
