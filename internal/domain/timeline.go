package domain

import "time"

// TimelineKind различает виды событий аудита. История статусов заказа и
// аудит — разные потоки: в History попадают только смены статуса, всё
// остальное (назначение курьера, вехи геотрекинга) живёт в timeline.
type TimelineKind string

const (
	// TimelineKindStatusChanged — заказ перешёл в новый статус.
	TimelineKindStatusChanged TimelineKind = "status_changed"
	// TimelineKindCourierAssigned — на заказ назначен курьер.
	TimelineKindCourierAssigned TimelineKind = "courier_assigned"
	// TimelineKindOrderCreated — заказ появился в реестре.
	TimelineKindOrderCreated TimelineKind = "order_created"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  string
	Kind     TimelineKind
	Status   OrderStatus
	Actor    string
	Note     string
	Occurred time.Time
}
