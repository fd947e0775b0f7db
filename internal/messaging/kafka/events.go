package kafka

import "time"

// EventType определяет тип доменного события заказа.
type EventType string

const (
	EventTypeOrderCreated      EventType = "order.created"
	EventTypeStatusChanged     EventType = "order.status_changed"
	EventTypeCourierAssigned   EventType = "order.courier_assigned"
	EventTypeLocationUpdated   EventType = "order.location_updated"
	EventTypeCheckoutCompleted EventType = "order.checkout_completed"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "delivery.order.events"
	TopicDeadLetterQueue = "delivery.dlq"
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие заказа, уходящее наружу.
type OrderEvent struct {
	EventType  EventType              `json:"event_type"`
	OrderID    string                 `json:"order_id"`
	CustomerID string                 `json:"customer_id"`
	Status     string                 `json:"status"`
	Actor      string                 `json:"actor,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создаёт событие заказа с текущим временем.
func NewOrderEvent(eventType EventType, orderID, customerID, status, actor string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		CustomerID: customerID,
		Status:     status,
		Actor:      actor,
		Timestamp:  time.Now().UTC(),
		Metadata:   metadata,
	}
}
