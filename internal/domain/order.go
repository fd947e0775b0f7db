package domain

import "time"

// PaymentStatus описывает состояние оплаты заказа.
type PaymentStatus string

const (
	// PaymentStatusPaid — оплата подтверждена провайдером.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusUnpaid — заказ создан, оплата не выполнена.
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	// PaymentStatusCashOnDelivery — оплата наличными курьеру при вручении.
	PaymentStatusCashOnDelivery PaymentStatus = "cash_on_delivery"
)

// Priority задаёт приоритет обработки заказа на кухне.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Customer — данные клиента, оформившего заказ.
type Customer struct {
	ID      string
	Name    string
	Phone   string
	Address string
}

// Restaurant — ресторан, готовящий заказ.
type Restaurant struct {
	ID      string
	Name    string
	Address string
}

// Courier — курьер, назначенный на доставку.
type Courier struct {
	ID    string
	Name  string
	Phone string
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции меню, из которой сделан снимок.
	ID string
	// Name — название позиции на момент заказа.
	Name string
	// Qty — количество единиц.
	Qty int32
	// PriceMinor — цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	// ImageRef — ссылка на изображение позиции для витрины.
	ImageRef string
}

// StatusEntry — одна запись append-only истории статусов заказа.
type StatusEntry struct {
	Status OrderStatus
	Actor  string
	Note   string
	At     time.Time
}

// Location — последняя известная геопозиция курьера по заказу.
// Присутствует только пока заказ в статусе out_for_delivery.
type Location struct {
	Lat     float64
	Lng     float64
	Address string
	At      time.Time
}

// Order агрегирует состояние заказа доставки еды.
type Order struct {
	ID            string
	Status        OrderStatus
	Customer      Customer
	Restaurant    Restaurant
	Courier       *Courier
	Items         []OrderItem
	AmountMinor   int64
	PaymentStatus PaymentStatus
	Priority      Priority
	// History — история смен статуса. Непустая; последняя запись
	// всегда совпадает со Status.
	History   []StatusEntry
	Location  *Location
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone возвращает глубокую копию заказа. Репозитории и реестр отдают
// наружу только копии, чтобы вызывающий код не мог изменить общее состояние
// в обход мутирующего API.
func (o Order) Clone() Order {
	dst := o
	if o.Courier != nil {
		courier := *o.Courier
		dst.Courier = &courier
	}
	if o.Location != nil {
		loc := *o.Location
		dst.Location = &loc
	}
	dst.Items = append([]OrderItem(nil), o.Items...)
	dst.History = append([]StatusEntry(nil), o.History...)
	return dst
}

// CurrentStatusEntry возвращает последнюю запись истории.
func (o Order) CurrentStatusEntry() (StatusEntry, bool) {
	if len(o.History) == 0 {
		return StatusEntry{}, false
	}
	return o.History[len(o.History)-1], true
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.ID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusUnknown)
	}
	if len(o.History) == 0 {
		errs = append(errs, ErrHistoryEmpty)
	} else if o.History[len(o.History)-1].Status != o.Status {
		errs = append(errs, ErrHistoryDiverged)
	}
	if o.AmountMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if o.Location != nil && o.Status != OrderStatusOutForDelivery {
		errs = append(errs, ErrLocationNotTracked)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	var calc int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.PriceMinor
	}
	if len(o.Items) > 0 && calc != o.AmountMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
