package domain

// OrderStatus описывает жизненный цикл заказа доставки.
type OrderStatus string

const (
	// OrderStatusPending — заказ оформлен, ресторан ещё не подтвердил.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — ресторан принял заказ в работу.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusCooking — заказ готовится на кухне.
	OrderStatusCooking OrderStatus = "cooking"
	// OrderStatusReadyForDelivery — заказ собран и ждёт курьера.
	OrderStatusReadyForDelivery OrderStatus = "ready_for_delivery"
	// OrderStatusOutForDelivery — курьер забрал заказ и едет к клиенту.
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	// OrderStatusDelivered — заказ вручён клиенту. Терминальный статус.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён до подтверждения. Терминальный статус.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// allowedTransitions — таблица разрешённых переходов статуса.
// Отмена возможна только из pending; delivered и cancelled терминальны.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:          {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:        {OrderStatusCooking},
	OrderStatusCooking:          {OrderStatusReadyForDelivery},
	OrderStatusReadyForDelivery: {OrderStatusOutForDelivery},
	OrderStatusOutForDelivery:   {OrderStatusDelivered},
	OrderStatusDelivered:        {},
	OrderStatusCancelled:        {},
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Terminal сообщает, является ли статус конечным.
func (s OrderStatus) Terminal() bool {
	next, ok := allowedTransitions[s]
	return ok && len(next) == 0
}

// CanTransition сообщает, разрешён ли переход from → to.
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// NextStatuses возвращает копию списка статусов, достижимых из from.
func NextStatuses(from OrderStatus) []OrderStatus {
	return append([]OrderStatus(nil), allowedTransitions[from]...)
}
