package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	// Мутации по неизвестному идентификатору не «тихие no-op», а явная ошибка.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists — заказ с таким идентификатором уже существует.
	ErrOrderExists = errors.New("order already exists")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrInvalidTransition — запрошенный переход статуса не разрешён таблицей переходов.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrLocationNotTracked — геопозиция ведётся только для заказов out_for_delivery.
	ErrLocationNotTracked = errors.New("location tracked only while out for delivery")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("order_id is required")
	// Ошибка неизвестного значения статуса.
	ErrStatusUnknown = errors.New("unknown order status")
	// Ошибка пустой истории статусов.
	ErrHistoryEmpty = errors.New("status history must not be empty")
	// Ошибка расхождения последней записи истории и текущего статуса.
	ErrHistoryDiverged = errors.New("status history diverged from current status")
	// Ошибка отрицательной суммы заказа.
	ErrAmountNegative = errors.New("amount_minor must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrAmountMismatch = errors.New("order amount does not match items sum")
	// ErrActorRequired — у смены статуса должен быть автор.
	ErrActorRequired = errors.New("actor is required")
	// ErrCourierRequired — назначение курьера без идентификатора.
	ErrCourierRequired = errors.New("courier id is required")
	// ErrNoCourierAvailable — диспетчеризация не нашла свободного курьера.
	ErrNoCourierAvailable = errors.New("no courier available")
	// ErrPaymentDeclined — платёж отклонён провайдером.
	ErrPaymentDeclined = errors.New("payment declined")
	// ErrPaymentTemporary — временная ошибка платёжного провайдера.
	ErrPaymentTemporary = errors.New("payment temporary error")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// Ошибки идемпотентности checkout-запросов.
	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	ErrIdempotencyKeyAlreadyExists    = errors.New("idempotency key already exists")
	ErrIdempotencyHashMismatch        = errors.New("idempotency key reused with different request")
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")
)

// IsNotFound проверяет, является ли ошибка отсутствием заказа.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound)
}

// IsInvalidTransition проверяет, является ли ошибка запретом перехода статуса.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}
