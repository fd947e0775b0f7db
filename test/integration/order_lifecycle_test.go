package integration

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/delivery-tracker/internal/domain"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/registry"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/service/dispatch"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/service/payment"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/simulator"
	"github.com/vladislavdragonenkov/delivery-tracker/internal/storage/memory"
)

// OrderLifecycleTestSuite тестирует полный жизненный цикл заказа доставки.
type OrderLifecycleTestSuite struct {
	suite.Suite
	service  *registry.Service
	orders   domain.OrderRepository
	timeline domain.TimelineRepository
	payment  *payment.MockService
	dispatch *dispatch.MockService
}

func (suite *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel) // Уменьшаем шум в тестах
	logger := baseLogger.WithField("component", "integration-test")

	suite.orders = memory.NewOrderRepository()
	suite.timeline = memory.NewTimelineRepository()
	outbox := memory.NewOutboxRepository()

	suite.payment = payment.NewMockService()
	suite.dispatch = dispatch.NewMockService()

	suite.service = registry.NewService(
		suite.orders,
		suite.timeline,
		outbox,
		logger,
		registry.WithPaymentService(suite.payment),
		registry.WithDispatchService(suite.dispatch),
	)
}

func (suite *OrderLifecycleTestSuite) checkoutOrder() domain.Order {
	order, err := suite.service.Checkout(registry.CreateParams{
		Customer:   domain.Customer{ID: "customer-123", Name: "Ivan Petrov", Phone: "+79990001122"},
		Restaurant: domain.Restaurant{ID: "restaurant-7", Name: "Pizzeria Napoli"},
		Items: []domain.OrderItem{
			{ID: "item-1", Name: "Margherita", Qty: 1, PriceMinor: 45000},
			{ID: "item-2", Name: "Cola", Qty: 2, PriceMinor: 9000},
		},
	}, registry.PaymentMethodCard)
	require.NoError(suite.T(), err)
	return order
}

func (suite *OrderLifecycleTestSuite) advance(orderID string, statuses ...domain.OrderStatus) domain.Order {
	var (
		order domain.Order
		err   error
	)
	for _, status := range statuses {
		order, err = suite.service.UpdateStatus(orderID, status, "operator", "")
		require.NoError(suite.T(), err)
	}
	return order
}

func (suite *OrderLifecycleTestSuite) TestSuccessfulDelivery() {
	// 1. Оформляем заказ картой
	order := suite.checkoutOrder()
	require.Equal(suite.T(), domain.OrderStatusPending, order.Status)
	require.Equal(suite.T(), int64(63000), order.AmountMinor) // 45000 + 2*9000
	require.Equal(suite.T(), domain.PaymentStatusPaid, order.PaymentStatus)
	require.Equal(suite.T(), 1, suite.payment.PayCalls)

	// 2. Ведём заказ по жизненному циклу до передачи курьеру
	suite.advance(order.ID,
		domain.OrderStatusConfirmed,
		domain.OrderStatusCooking,
		domain.OrderStatusReadyForDelivery,
	)

	// 3. Диспетчеризация назначает курьера
	withCourier, err := suite.service.DispatchCourier(order.ID)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), withCourier.Courier)
	require.Equal(suite.T(), 1, suite.dispatch.AssignCalls)

	// 4. Курьер выехал, позиция начинает обновляться
	suite.advance(order.ID, domain.OrderStatusOutForDelivery)

	tracked, err := suite.service.UpdateLocation(order.ID, domain.Location{Lat: 55.7558, Lng: 37.6173})
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), tracked.Location)

	// 5. Доставлен: позиция очищается, история полная
	final := suite.advance(order.ID, domain.OrderStatusDelivered)
	require.Equal(suite.T(), domain.OrderStatusDelivered, final.Status)
	require.Nil(suite.T(), final.Location)
	require.Len(suite.T(), final.History, 6) // pending..delivered

	// 6. Timeline содержит создание, смены статусов и назначение курьера
	events, err := suite.service.Timeline(order.ID)
	require.NoError(suite.T(), err)
	require.GreaterOrEqual(suite.T(), len(events), 7)
	require.Equal(suite.T(), domain.TimelineKindOrderCreated, events[0].Kind)

	hasCourierAssigned := false
	for _, event := range events {
		if event.Kind == domain.TimelineKindCourierAssigned {
			hasCourierAssigned = true
		}
	}
	require.True(suite.T(), hasCourierAssigned, "timeline should contain courier_assigned event")
}

func (suite *OrderLifecycleTestSuite) TestCancellationBeforeConfirmation() {
	order := suite.checkoutOrder()

	cancelled, err := suite.service.UpdateStatus(order.ID, domain.OrderStatusCancelled, "customer", "передумал")
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), domain.OrderStatusCancelled, cancelled.Status)

	// Терминальный статус: дальнейшие переходы запрещены
	_, err = suite.service.UpdateStatus(order.ID, domain.OrderStatusConfirmed, "operator", "")
	require.ErrorIs(suite.T(), err, domain.ErrInvalidTransition)

	// История не пострадала от отклонённого перехода
	got, err := suite.service.GetOrder(order.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), got.History, 2)
}

func (suite *OrderLifecycleTestSuite) TestSubscriberSeesWholeLifecycle() {
	order := suite.checkoutOrder()

	var updates []domain.OrderStatus
	sub := suite.service.Subscribe(order.ID, func(updated domain.Order) {
		updates = append(updates, updated.Status)
	})
	defer sub.Cancel()

	suite.advance(order.ID,
		domain.OrderStatusConfirmed,
		domain.OrderStatusCooking,
		domain.OrderStatusReadyForDelivery,
		domain.OrderStatusOutForDelivery,
		domain.OrderStatusDelivered,
	)

	require.Equal(suite.T(), []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusCooking,
		domain.OrderStatusReadyForDelivery,
		domain.OrderStatusOutForDelivery,
		domain.OrderStatusDelivered,
	}, updates)
}

func (suite *OrderLifecycleTestSuite) TestSimulatorMovesActiveCouriers() {
	order := suite.checkoutOrder()
	suite.advance(order.ID,
		domain.OrderStatusConfirmed,
		domain.OrderStatusCooking,
		domain.OrderStatusReadyForDelivery,
		domain.OrderStatusOutForDelivery,
	)

	start := domain.Location{Lat: 55.7558, Lng: 37.6173, At: time.Now().UTC()}
	_, err := suite.service.UpdateLocation(order.ID, start)
	require.NoError(suite.T(), err)

	worker := simulator.NewWorker(suite.service)
	worker.SweepOnce(context.Background())

	moved, err := suite.service.GetOrder(order.ID)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), moved.Location)
	require.InDelta(suite.T(), start.Lat, moved.Location.Lat, 0.001)
	require.InDelta(suite.T(), start.Lng, moved.Location.Lng, 0.001)
	require.False(suite.T(), moved.Location.Lat == start.Lat && moved.Location.Lng == start.Lng,
		"simulator should perturb the location")
}

func TestOrderLifecycleSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}
